package domain

// DefaultChannel is the broadcast channel every client listens on.
const DefaultChannel = "default"

// EventTaskCompleted is published once per successful download.
const EventTaskCompleted = "task-completed"

// Event is one pub/sub message. Data is already serialized.
type Event struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// CompletionPayload is the JSON body of a task-completed event.
type CompletionPayload struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Data     *Metadata `json:"data,omitempty"`
	Error    string    `json:"error,omitempty"`
	TaskID   string    `json:"taskId"`
	FileName string    `json:"fileName"`
}

// Metadata describes the app inside an artifact.
type Metadata struct {
	BundleID         string `json:"bundleId"`
	Name             string `json:"name"`
	Version          string `json:"version"`
	Build            string `json:"build"`
	MinimumOSVersion string `json:"minimumOsVersion,omitempty"`
	FileName         string `json:"fileName"`
	FileSize         int64  `json:"fileSize"`
}
