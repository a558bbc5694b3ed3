// Package domain holds the download task model shared by every layer.
// A Task moves through: create → queue → admit → run → complete | fail.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus tracks task lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// IsTerminal returns true if the status is final.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// ErrorKind classifies why a task failed.
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	ErrorTokenExpired    ErrorKind = "TokenExpired"
	ErrorLicenseRequired ErrorKind = "LicenseRequired"
	ErrorGeneral         ErrorKind = "GeneralError"
	ErrorSpawn           ErrorKind = "SpawnError"
)

// IsSpecific reports whether the kind came from a recognized condition
// rather than the generic fallback.
func (k ErrorKind) IsSpecific() bool {
	return k == ErrorTokenExpired || k == ErrorLicenseRequired || k == ErrorSpawn
}

// LatestVersion is the requested version meaning "whatever the store serves now".
const LatestVersion = "latest"

// ArtifactExt is the extension of a finished download.
const ArtifactExt = ".ipa"

// JobKey identifies a logical download target. At most one live task
// exists per key.
type JobKey struct {
	AppID     string `json:"appId"`
	VersionID string `json:"versionId"`
}

// String returns "appId@versionId".
func (k JobKey) String() string {
	return k.AppID + "@" + k.VersionID
}

// Validate rejects keys that cannot be turned into a safe file name.
func (k JobKey) Validate() error {
	if err := validatePart("appId", k.AppID); err != nil {
		return err
	}
	return validatePart("versionId", k.VersionID)
}

func validatePart(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidJobKey, field)
	}
	if strings.ContainsAny(v, `/\_`) || strings.Contains(v, "..") {
		return fmt.Errorf("%w: %s %q contains reserved characters", ErrInvalidJobKey, field, v)
	}
	return nil
}

// ArtifactFileName returns the deterministic artifact name for a job key.
func ArtifactFileName(k JobKey) string {
	return fmt.Sprintf("%s_%s%s", k.AppID, k.VersionID, ArtifactExt)
}

// ArtifactBase strips the artifact extension. "123_456.ipa" → "123_456".
func ArtifactBase(name string) string {
	return strings.TrimSuffix(name, ArtifactExt)
}

// Task is one queued, executing or finished download.
type Task struct {
	ID                string     `json:"id"`
	AppID             string     `json:"appId"`
	VersionID         string     `json:"versionId"`
	ResolvedVersionID string     `json:"resolvedVersionId,omitempty"`
	BundleID          string     `json:"bundleId"`
	Status            TaskStatus `json:"status"`
	ProgressPercent   int        `json:"progressPercent"`
	LastProgress      string     `json:"lastProgress,omitempty"`
	ArtifactFileName  string     `json:"fileName"`
	Error             string     `json:"error,omitempty"`
	ErrorKind         ErrorKind  `json:"errorKind,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	StartedAt         time.Time  `json:"startedAt,omitempty"`
	FinishedAt        time.Time  `json:"finishedAt,omitempty"`
}

// Key returns the task's job key.
func (t *Task) Key() JobKey {
	return JobKey{AppID: t.AppID, VersionID: t.VersionID}
}

// ExplicitVersionID returns the concrete version to request from the
// downloader, or "" when the store's current version should be used.
func (t *Task) ExplicitVersionID() string {
	if t.ResolvedVersionID != "" {
		return t.ResolvedVersionID
	}
	if t.VersionID != LatestVersion {
		return t.VersionID
	}
	return ""
}

// Duration returns how long the task ran (0 if it never finished).
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}
