package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ocosta/remsync/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer io.Writer
	events []JSONEvent
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONStartData represents the data for a start event
type JSONStartData struct {
	TotalFiles int   `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}

// JSONFileData represents file-related event data
type JSONFileData struct {
	Path         string `json:"path"`
	BytesWritten int64  `json:"bytes_written,omitempty"`
	TotalBytes   int64  `json:"total_bytes,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JSONOutcomeData represents the final deployment outcome
type JSONOutcomeData struct {
	ID         string            `json:"id"`
	Workspace  string            `json:"workspace"`
	RemotePath string            `json:"remote_path"`
	Strategy   string            `json:"strategy"`
	DryRun     bool              `json:"dry_run,omitempty"`
	Status     string            `json:"status"`
	Duration   string            `json:"duration"`
	DurationMs int64             `json:"duration_ms"`
	Stats      JSONStatsData     `json:"stats"`
	Failures   []JSONFailureData `json:"failures,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	FilesUploaded    int   `json:"files_uploaded"`
	FilesDeleted     int   `json:"files_deleted"`
	FilesSkipped     int   `json:"files_skipped"`
	FilesFailed      int   `json:"files_failed"`
	BytesTransferred int64 `json:"bytes_transferred"`
}

// JSONFailureData represents a file failure in JSON format
type JSONFailureData struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.events = f.events[:0]

	f.addEvent("start", JSONStartData{
		TotalFiles: totalFiles,
		TotalBytes: totalBytes,
	})
	return nil
}

// Progress reports progress during the deployment
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	switch update.Type {
	case "file_complete":
		f.addEvent("file_complete", JSONFileData{
			Path:         update.FilePath,
			BytesWritten: update.BytesWritten,
		})
	case "file_error":
		data := JSONFileData{Path: update.FilePath}
		if update.Error != nil {
			data.Error = update.Error.Error()
		}
		f.addEvent("file_error", data)
	case "delete":
		f.addEvent("delete", JSONFileData{Path: update.FilePath})
	}
	return nil
}

// Complete finalizes output and emits the full event stream as JSON
func (f *JSONFormatter) Complete(outcome *models.DeploymentOutcome) error {
	data := JSONOutcomeData{
		ID:         outcome.ID,
		Workspace:  outcome.WorkspaceRoot,
		RemotePath: outcome.RemotePath,
		Strategy:   string(outcome.Strategy),
		DryRun:     outcome.DryRun,
		Status:     string(outcome.Status),
		Duration:   outcome.Duration.String(),
		DurationMs: outcome.Duration.Milliseconds(),
		Stats: JSONStatsData{
			FilesUploaded:    outcome.Stats.FilesUploaded,
			FilesDeleted:     outcome.Stats.FilesDeleted,
			FilesSkipped:     outcome.Stats.FilesSkipped,
			FilesFailed:      outcome.Stats.FilesFailed,
			BytesTransferred: outcome.Stats.BytesTransferred,
		},
	}
	for _, failure := range outcome.Failures {
		data.Failures = append(data.Failures, JSONFailureData{
			Path:  failure.Path,
			Error: failure.Error,
		})
	}
	f.addEvent("complete", data)
	return f.flush()
}

// Error reports an aborting error. The event stream buffered so far is
// flushed here because Complete never runs on the abort path.
func (f *JSONFormatter) Error(err error) error {
	f.addEvent("error", map[string]string{"error": err.Error()})
	return f.flush()
}

// flush emits the buffered event stream as an indented JSON array
func (f *JSONFormatter) flush() error {
	w := f.writer
	if w == nil {
		w = os.Stdout
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.events)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) addEvent(eventType string, data any) {
	f.events = append(f.events, JSONEvent{
		Timestamp: time.Now(),
		Type:      eventType,
		Data:      data,
	})
}
