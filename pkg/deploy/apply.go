package deploy

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/remote"
)

// Applier executes an upload plan against the remote side. Remote commands
// are issued sequentially; only the file uploads themselves run in
// parallel. Ordering matters: deletions first, then directory creation,
// then uploads, then the prune of directories the deletions emptied.
type Applier struct {
	session remote.Session
	workers int
	logger  logging.Logger
}

// NewApplier creates a plan applier with the given transfer concurrency
func NewApplier(session remote.Session, workers int, logger logging.Logger) *Applier {
	if logger == nil {
		logger = &logging.NullLogger{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Applier{
		session: session,
		workers: workers,
		logger:  logger,
	}
}

// Apply executes the plan and returns one result per uploaded file.
// Per-file upload failures do not abort the batch; batched remote command
// failures do.
func (a *Applier) Apply(ctx context.Context, target models.WorkspaceTarget, plan *models.UploadPlan, onFile func(remote.TransferResult)) ([]remote.TransferResult, error) {
	if err := a.deleteFiles(ctx, plan.Deletions); err != nil {
		return nil, err
	}

	if err := a.createDirectories(ctx, target.RemotePath, plan.Uploads); err != nil {
		return nil, err
	}

	var results []remote.TransferResult
	if len(plan.Uploads) > 0 {
		files := make([]remote.FileTransfer, len(plan.Uploads))
		for i, upload := range plan.Uploads {
			files[i] = remote.FileTransfer{
				LocalPath:  upload.LocalPath,
				RemotePath: upload.RemotePath,
			}
		}

		var err error
		results, err = a.session.TransferFiles(ctx, files, remote.TransferOptions{
			Concurrency: a.workers,
			OnFile:      onFile,
		})
		if err != nil {
			return results, fmt.Errorf("file transfer failed: %w", err)
		}
	}

	if len(plan.Deletions) > 0 {
		a.pruneEmptyDirectories(ctx, target.RemotePath)
	}

	return results, nil
}

// deleteFiles removes every scheduled path in a single remote command
func (a *Applier) deleteFiles(ctx context.Context, deletions []string) error {
	if len(deletions) == 0 {
		return nil
	}

	quoted := make([]string, len(deletions))
	for i, deletion := range deletions {
		quoted[i] = shellQuote(deletion)
	}

	result, err := a.session.Execute(ctx, "rm -f "+strings.Join(quoted, " "), "")
	if err != nil {
		return fmt.Errorf("failed to delete remote files: %w", err)
	}
	if !result.Ok() {
		return fmt.Errorf("remote deletion exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	a.logger.Debug(ctx, "deleted remote files", logging.Fields{"count": len(deletions)})
	return nil
}

// createDirectories ensures every upload's parent directory exists, one
// batched command over the deduplicated set
func (a *Applier) createDirectories(ctx context.Context, remoteRoot string, uploads []models.FileUpload) error {
	seen := make(map[string]bool)
	var dirs []string
	root := strings.TrimRight(remoteRoot, "/")
	for _, upload := range uploads {
		dir := path.Dir(upload.RemotePath)
		if dir == root || dir == "/" || dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	if len(dirs) == 0 {
		return nil
	}
	sort.Strings(dirs)

	quoted := make([]string, len(dirs))
	for i, dir := range dirs {
		quoted[i] = shellQuote(dir)
	}

	result, err := a.session.Execute(ctx, "mkdir -p "+strings.Join(quoted, " "), "")
	if err != nil {
		return fmt.Errorf("failed to create remote directories: %w", err)
	}
	if !result.Ok() {
		return fmt.Errorf("remote directory creation exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	a.logger.Debug(ctx, "created remote directories", logging.Fields{"count": len(dirs)})
	return nil
}

// pruneEmptyDirectories removes directories left empty by the deletions.
// rmdir fails on non-empty directories and the find utility cannot filter
// by emptiness, so failures are expected and ignored.
func (a *Applier) pruneEmptyDirectories(ctx context.Context, remoteRoot string) {
	command := `find . -depth -mindepth 1 -type d -exec rmdir {} \; 2>/dev/null; true`
	if _, err := a.session.Execute(ctx, command, remoteRoot); err != nil {
		a.logger.Warn(ctx, "failed to prune empty remote directories", logging.Fields{
			"remote_path": remoteRoot,
			"error":       err.Error(),
		})
	}
}

// shellQuote wraps a path in single quotes for the remote shell
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
