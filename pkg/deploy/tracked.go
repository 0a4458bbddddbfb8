package deploy

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ocosta/remsync/pkg/ignore"
	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/tracker"
)

// TrackedPlanner maps the change tracker's pending set to an upload plan.
// The plan is built from a snapshot taken at invocation start; events
// arriving mid-deployment land in the next run.
type TrackedPlanner struct {
	tracker *tracker.Tracker
	fs      *localfs.FS
	logger  logging.Logger
}

// NewTrackedPlanner creates a planner over the given tracker
func NewTrackedPlanner(t *tracker.Tracker, fs *localfs.FS, logger logging.Logger) *TrackedPlanner {
	if logger == nil {
		logger = &logging.NullLogger{}
	}
	return &TrackedPlanner{
		tracker: t,
		fs:      fs,
		logger:  logger,
	}
}

// Plan builds the upload plan for the workspace's pending changes. Paths
// that vanished since their event, fell outside the workspace root or
// match the ignore rules are dropped. The tracked strategy never deletes
// remote files.
func (p *TrackedPlanner) Plan(ctx context.Context, target models.WorkspaceTarget, rules *ignore.RuleSet) (*models.UploadPlan, error) {
	pending := p.tracker.Pending(target.LocalRoot)
	plan := &models.UploadPlan{}

	for _, absolutePath := range pending {
		rel, err := filepath.Rel(target.LocalRoot, absolutePath)
		if err != nil || strings.HasPrefix(rel, "..") {
			p.logger.Warn(ctx, "tracked path outside workspace, skipping", logging.Fields{
				"path":      absolutePath,
				"workspace": target.LocalRoot,
			})
			continue
		}
		rel = filepath.ToSlash(rel)

		if rules != nil && rules.IsIgnored(rel) {
			continue
		}

		isFile, err := p.fs.IsFile(absolutePath)
		if err != nil {
			p.logger.Warn(ctx, "failed to stat tracked path, skipping", logging.Fields{
				"path":  absolutePath,
				"error": err.Error(),
			})
			continue
		}
		if !isFile {
			// deleted or replaced by a directory since the event
			continue
		}

		size, err := p.fs.Size(absolutePath)
		if err != nil {
			continue
		}

		plan.Uploads = append(plan.Uploads, models.FileUpload{
			LocalPath:  absolutePath,
			RemotePath: joinRemote(target.RemotePath, rel),
			Size:       size,
		})
	}

	p.logger.Debug(ctx, "tracked plan built", logging.Fields{
		"pending": len(pending),
		"uploads": len(plan.Uploads),
	})

	return plan, nil
}
