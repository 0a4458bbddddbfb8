package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
)

// Differ maps version-control changes to an upload plan. This strategy
// only ever uploads: files with a deleted status are filtered out and no
// remote deletion is performed, unlike the hash comparison strategy.
type Differ struct {
	provider StateProvider
	logger   logging.Logger
}

// NewDiffer creates a differ over the given provider
func NewDiffer(provider StateProvider, logger logging.Logger) *Differ {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Differ{provider: provider, logger: logger}
}

// Diff builds the upload plan for the workspace's staged or working
// changes. An empty result is a no-op, not an error; a missing provider or
// repository is ErrNoRepository.
func (d *Differ) Diff(ctx context.Context, target models.WorkspaceTarget, kind ChangeKind) (*models.UploadPlan, error) {
	if d.provider == nil {
		return nil, ErrNoRepository
	}

	repos := d.provider.Repositories()
	if len(repos) == 0 {
		return nil, ErrNoRepository
	}

	root := filepath.Clean(target.LocalRoot)
	var found bool
	for _, r := range repos {
		if r == root {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNoRepository
	}

	changes, err := d.provider.Changes(ctx, root, kind)
	if err != nil {
		return nil, err
	}

	plan := &models.UploadPlan{}
	for _, change := range changes {
		if change.Status == StatusDeleted {
			d.logger.Debug(ctx, "skipping deleted file", logging.Fields{"path": change.Path})
			continue
		}

		localPath := filepath.Join(root, filepath.FromSlash(change.Path))
		var size int64
		if info, err := os.Stat(localPath); err == nil {
			size = info.Size()
		}

		plan.Uploads = append(plan.Uploads, models.FileUpload{
			LocalPath:  localPath,
			RemotePath: joinRemote(target.RemotePath, change.Path),
			Size:       size,
		})
	}

	d.logger.Info(ctx, "version control diff complete", logging.Fields{
		"kind":    string(kind),
		"changes": len(changes),
		"uploads": len(plan.Uploads),
	})

	return plan, nil
}

// joinRemote joins a remote directory and a slash-relative path
func joinRemote(dir, rel string) string {
	return strings.TrimRight(dir, "/") + "/" + rel
}
