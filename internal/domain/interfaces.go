package domain

import (
	"context"
	"io"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the task manager depends on them.

// Invocation is everything the downloader needs to fetch one artifact.
type Invocation struct {
	TaskID            string
	BundleID          string
	OutputPath        string
	ExplicitVersionID string // empty = let the store pick the current version
}

// Downloader launches the external download tool.
type Downloader interface {
	// Start spawns the tool. A non-nil error means the process never ran.
	Start(ctx context.Context, inv Invocation) (Process, error)
}

// Process is a running download. Stdout and Stderr must be drained
// before Wait is called.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader

	// Wait blocks until exit and returns the exit code. err is non-nil only
	// when the exit status could not be determined.
	Wait() (exitCode int, err error)

	// Terminate asks the process to stop. It does not wait.
	Terminate() error
}

// MetadataExtractor reads app metadata out of a finished artifact.
type MetadataExtractor interface {
	Extract(fileName string) (Metadata, error)
}

// Publisher delivers events to every subscriber of a channel.
type Publisher interface {
	Publish(channel string, ev Event) int
}
