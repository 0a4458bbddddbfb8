package output

import (
	"fmt"
	"io"

	"github.com/ocosta/remsync/pkg/models"
)

// ProgressUpdate represents a progress notification during a deployment
type ProgressUpdate struct {
	Type         string // "file_start", "file_progress", "file_complete", "file_error", "delete", "phase"
	Phase        string // "preparing", "transferring", "pruning"
	FilePath     string
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter defines the interface for deployment output rendering
// Implementations include human-readable, progress-bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new deployment
	Start(writer io.Writer, totalFiles int, totalBytes int64) error

	// Progress reports progress during the deployment
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the deployment outcome
	Complete(outcome *models.DeploymentOutcome) error

	// Error reports an error during the deployment
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New creates a formatter by name
func New(name string) (Formatter, error) {
	switch name {
	case "human", "":
		return NewHumanFormatter(), nil
	case "progress":
		return NewProgressFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
}
