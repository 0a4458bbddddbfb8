package deploy

import (
	"context"
	"strings"

	"github.com/ocosta/remsync/pkg/ignore"
	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/remote"
)

// BulkTransfer deploys the entire workspace tree to the remote target in
// one recursive directory transfer. The ignore rules are evaluated per
// file during the walk, not precomputed into a plan.
type BulkTransfer struct {
	session remote.Session
	workers int
	logger  logging.Logger
}

// NewBulkTransfer creates a bulk transfer with the given concurrency
func NewBulkTransfer(session remote.Session, workers int, logger logging.Logger) *BulkTransfer {
	if logger == nil {
		logger = &logging.NullLogger{}
	}
	if workers < 1 {
		workers = 1
	}
	return &BulkTransfer{
		session: session,
		workers: workers,
		logger:  logger,
	}
}

// Deploy transfers every non-ignored file under the workspace root. The
// remote target path must be absolute; this is checked before any transfer
// starts. Per-file failures do not abort the transfer.
func (b *BulkTransfer) Deploy(ctx context.Context, target models.WorkspaceTarget, rules *ignore.RuleSet, onFile func(remote.TransferResult)) ([]remote.TransferResult, error) {
	if !strings.HasPrefix(target.RemotePath, "/") {
		return nil, ErrInvalidTargetPath
	}

	b.logger.Info(ctx, "starting bulk transfer", logging.Fields{
		"local_root":  target.LocalRoot,
		"remote_path": target.RemotePath,
	})

	include := func(relativePath string) bool {
		if rules == nil {
			return true
		}
		return !rules.IsIgnored(relativePath)
	}

	results, err := b.session.TransferDirectory(ctx, target.LocalRoot, target.RemotePath, remote.DirTransferOptions{
		Recursive:   true,
		Concurrency: b.workers,
		Include:     include,
		OnFile:      onFile,
	})
	if err != nil {
		return results, err
	}
	return results, nil
}
