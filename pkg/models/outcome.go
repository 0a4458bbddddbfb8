package models

import (
	"time"
)

// DeployStatus represents the overall result of a deployment
type DeployStatus string

const (
	// StatusSucceeded indicates the deployment completed
	StatusSucceeded DeployStatus = "succeeded"
	// StatusPartial indicates the deployment completed with per-file failures
	StatusPartial DeployStatus = "partial"
	// StatusFailed indicates the deployment aborted
	StatusFailed DeployStatus = "failed"
)

// ExitCode returns the process exit code for the status
func (s DeployStatus) ExitCode() int {
	switch s {
	case StatusSucceeded:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	default:
		return 3
	}
}

// FileFailure records a single file transfer that failed without aborting
// the deployment
type FileFailure struct {
	Path      string
	Error     string
	Timestamp time.Time
}

// DeployStats holds deployment metrics
type DeployStats struct {
	FilesUploaded    int
	FilesDeleted     int
	FilesSkipped     int
	FilesFailed      int
	DirsCreated      int
	BytesTransferred int64
}

// DeploymentOutcome is the result of one deployment invocation. It is
// reported once and never persisted.
type DeploymentOutcome struct {
	// ID uniquely identifies the invocation
	ID string

	// Request details
	WorkspaceRoot string
	RemotePath    string
	Strategy      Strategy
	DryRun        bool

	// Status is the overall result
	Status DeployStatus

	// Err is set when the deployment aborted (Status == StatusFailed)
	Err error

	// Log holds the human-readable lines produced during the run
	Log []string

	// Failures are the per-file transfer errors that did not abort the run
	Failures []FileFailure

	Stats DeployStats

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Success reports whether the orchestrator judged the run successful
// overall. Per-file failures do not flip this; only an aborting error does.
func (o *DeploymentOutcome) Success() bool {
	return o.Status != "" && o.Status != StatusFailed
}

// AppendLog appends a line to the outcome log
func (o *DeploymentOutcome) AppendLog(line string) {
	o.Log = append(o.Log, line)
}
