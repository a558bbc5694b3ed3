package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Task errors
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidJobKey = errors.New("invalid job key")
	ErrMissingBundle = errors.New("bundle id is required")

	// Artifact errors
	ErrInvalidArtifactName = errors.New("invalid artifact name")
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrMetadataNotFound    = errors.New("Info.plist not found in artifact")

	// Downloader errors
	ErrDownloaderNotFound = errors.New("downloader binary not found")

	// Event errors
	ErrSubscriberClosed = errors.New("subscriber closed")
)
