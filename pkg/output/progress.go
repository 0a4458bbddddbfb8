package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/ocosta/remsync/pkg/models"
)

// ProgressFormatter renders a live progress bar during the transfer phase
type ProgressFormatter struct {
	mu         sync.Mutex
	writer     io.Writer
	totalFiles int
	doneFiles  int
	bar        *pb.ProgressBar
	startTime  time.Time
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.totalFiles = totalFiles
	f.doneFiles = 0
	f.startTime = time.Now()

	if totalFiles == 0 {
		return nil
	}

	f.bar = pb.New64(totalBytes)
	f.bar.Set(pb.Bytes, true)
	f.bar.SetWriter(writer)
	f.bar.SetTemplate(pb.Full)
	f.bar.Start()

	return nil
}

// Progress reports progress during the deployment
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case "file_complete":
		f.doneFiles++
		f.bar.Add64(update.BytesWritten)

	case "file_error":
		f.doneFiles++
	}

	return nil
}

// Complete finalizes output and displays the deployment outcome
func (f *ProgressFormatter) Complete(outcome *models.DeploymentOutcome) error {
	f.mu.Lock()
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	writer := f.writer
	f.mu.Unlock()

	if writer == nil {
		writer = io.Discard
	}

	fmt.Fprintf(writer, "\n%d uploaded, %d deleted, %d failed in %s\n",
		outcome.Stats.FilesUploaded,
		outcome.Stats.FilesDeleted,
		outcome.Stats.FilesFailed,
		outcome.Duration.Round(time.Millisecond))
	fmt.Fprintf(writer, "Status: %s\n", outcome.Status)

	if len(outcome.Failures) > 0 {
		fmt.Fprintf(writer, "\nFailures:\n")
		for _, failure := range outcome.Failures {
			fmt.Fprintf(writer, "  %s: %s\n", failure.Path, failure.Error)
		}
	}

	return nil
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
