package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ocosta/remsync/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer     io.Writer
	totalFiles int
	totalBytes int64
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64) error {
	f.writer = writer
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes
	f.startTime = time.Now()

	if writer != nil && totalFiles > 0 {
		fmt.Fprintf(writer, "Deploying %d files, %s total\n",
			totalFiles, formatBytes(totalBytes))
	}

	return nil
}

// Progress reports progress during the deployment
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case "phase":
		fmt.Fprintf(f.writer, "%s...\n", phaseLabel(update.Phase))

	case "file_start":
		fmt.Fprintf(f.writer, "[%d/%d] Uploading %s (%s)...\n",
			update.CurrentFile, f.totalFiles,
			update.FilePath, formatBytes(update.TotalBytes))

	case "file_complete":
		fmt.Fprintf(f.writer, "[%d/%d] ✓ %s (%s)\n",
			update.CurrentFile, f.totalFiles,
			update.FilePath, formatBytes(update.BytesWritten))

	case "file_error":
		fmt.Fprintf(f.writer, "[%d/%d] ✗ %s: %v\n",
			update.CurrentFile, f.totalFiles,
			update.FilePath, update.Error)

	case "delete":
		fmt.Fprintf(f.writer, "Removing %s\n", update.FilePath)
	}

	return nil
}

// Complete finalizes output and displays the deployment outcome
func (f *HumanFormatter) Complete(outcome *models.DeploymentOutcome) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	fmt.Fprintf(f.writer, "\n")
	if outcome.DryRun {
		fmt.Fprintf(f.writer, "Dry run completed in %s\n", outcome.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(f.writer, "Deployment completed in %s\n", outcome.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Summary:\n")
	fmt.Fprintf(f.writer, "  Workspace:      %s\n", outcome.WorkspaceRoot)
	fmt.Fprintf(f.writer, "  Remote path:    %s\n", outcome.RemotePath)
	fmt.Fprintf(f.writer, "  Strategy:       %s\n", outcome.Strategy)
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "  Files uploaded: %d\n", outcome.Stats.FilesUploaded)
	fmt.Fprintf(f.writer, "  Files deleted:  %d\n", outcome.Stats.FilesDeleted)
	fmt.Fprintf(f.writer, "  Files skipped:  %d\n", outcome.Stats.FilesSkipped)
	fmt.Fprintf(f.writer, "  Files failed:   %d\n", outcome.Stats.FilesFailed)
	fmt.Fprintf(f.writer, "  Data:           %s\n", formatBytes(outcome.Stats.BytesTransferred))

	if outcome.Duration.Seconds() > 0 && outcome.Stats.BytesTransferred > 0 {
		avgSpeed := float64(outcome.Stats.BytesTransferred) / outcome.Duration.Seconds()
		fmt.Fprintf(f.writer, "  Average speed:  %s/s\n", formatBytes(int64(avgSpeed)))
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Status: %s\n", outcome.Status)

	if len(outcome.Failures) > 0 {
		fmt.Fprintf(f.writer, "\nFailures:\n")
		for _, failure := range outcome.Failures {
			fmt.Fprintf(f.writer, "  %s: %s\n", failure.Path, failure.Error)
		}
	}

	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func phaseLabel(phase string) string {
	switch phase {
	case "preparing":
		return "Comparing workspace with remote"
	case "transferring":
		return "Transferring files"
	case "pruning":
		return "Pruning empty remote directories"
	default:
		return phase
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
