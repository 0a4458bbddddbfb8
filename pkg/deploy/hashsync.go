package deploy

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ocosta/remsync/pkg/ignore"
	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/remote"
)

// HashSynchronizer computes a content-hash diff between the local workspace
// tree and the remote target tree. The same digest algorithm runs on both
// sides; the remote side is listed with a single shell command.
type HashSynchronizer struct {
	session   remote.Session
	fs        *localfs.FS
	digestCmd string
	workers   int
	logger    logging.Logger
}

// NewHashSynchronizer creates a hash synchronizer. digestCmd is the remote
// digest utility, typically md5sum.
func NewHashSynchronizer(session remote.Session, fs *localfs.FS, digestCmd string, workers int, logger logging.Logger) *HashSynchronizer {
	if logger == nil {
		logger = &logging.NullLogger{}
	}
	if workers < 1 {
		workers = 1
	}
	return &HashSynchronizer{
		session:   session,
		fs:        fs,
		digestCmd: digestCmd,
		workers:   workers,
		logger:    logger,
	}
}

// Diff produces the minimal upload plan for the target. When the remote
// target directory turns out to be empty, Diff returns delegate=true and no
// plan: the caller should run a full bulk transfer instead of comparing
// hashes over nothing. No remote hash command is issued in that case.
func (h *HashSynchronizer) Diff(ctx context.Context, target models.WorkspaceTarget, rules *ignore.RuleSet) (plan *models.UploadPlan, delegate bool, err error) {
	empty, err := h.remoteEmpty(ctx, target.RemotePath)
	if err != nil {
		return nil, false, err
	}
	if empty {
		h.logger.Info(ctx, "remote target is empty, delegating to bulk transfer", logging.Fields{
			"remote_path": target.RemotePath,
		})
		return nil, true, nil
	}

	remoteEntries, err := h.remoteHashes(ctx, target.RemotePath)
	if err != nil {
		return nil, false, err
	}

	localEntries, err := h.localHashes(ctx, target.LocalRoot, rules)
	if err != nil {
		return nil, false, err
	}

	remoteByPath := make(map[string]string, len(remoteEntries))
	for _, entry := range remoteEntries {
		remoteByPath[entry.RelativePath] = entry.Hash
	}

	plan = &models.UploadPlan{}
	localPaths := make(map[string]bool, len(localEntries))
	for _, local := range localEntries {
		localPaths[local.entry.RelativePath] = true
		remoteHash, exists := remoteByPath[local.entry.RelativePath]
		if exists && remoteHash == local.hash {
			continue
		}
		plan.Uploads = append(plan.Uploads, models.FileUpload{
			LocalPath:  local.entry.AbsolutePath,
			RemotePath: joinRemote(target.RemotePath, local.entry.RelativePath),
			Size:       local.entry.Size,
		})
	}

	for _, entry := range remoteEntries {
		if !localPaths[entry.RelativePath] {
			plan.Deletions = append(plan.Deletions, joinRemote(target.RemotePath, entry.RelativePath))
		}
	}

	sort.Slice(plan.Uploads, func(i, j int) bool {
		return plan.Uploads[i].RemotePath < plan.Uploads[j].RemotePath
	})
	sort.Strings(plan.Deletions)

	h.logger.Debug(ctx, "hash diff computed", logging.Fields{
		"local_files":  len(localEntries),
		"remote_files": len(remoteEntries),
		"uploads":      len(plan.Uploads),
		"deletions":    len(plan.Deletions),
	})

	return plan, false, nil
}

// remoteEmpty reports whether the remote target directory has zero
// entries. A target that does not exist yet counts as empty, so a compare
// dry run against a fresh remote delegates to bulk instead of failing on
// the missing directory.
func (h *HashSynchronizer) remoteEmpty(ctx context.Context, remotePath string) (bool, error) {
	result, err := h.session.Execute(ctx, "ls -A "+shellQuote(remotePath)+" 2>/dev/null | wc -l", "")
	if err != nil {
		return false, fmt.Errorf("failed to list remote target: %w", err)
	}
	if !result.Ok() {
		return false, fmt.Errorf("remote listing exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	count, err := strconv.Atoi(strings.TrimSpace(result.Stdout))
	if err != nil {
		return false, fmt.Errorf("unexpected remote listing output %q: %w", result.Stdout, err)
	}
	return count == 0, nil
}

// remoteHashes lists every regular file under the remote target with its
// content digest, one command for the whole tree
func (h *HashSynchronizer) remoteHashes(ctx context.Context, remotePath string) ([]models.RemoteHashEntry, error) {
	command := fmt.Sprintf(`find . -type f -exec %s {} \;`, h.digestCmd)
	result, err := h.session.Execute(ctx, command, remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash remote files: %w", err)
	}
	if result.ExitCode == 127 || strings.Contains(result.Stderr, "command not found") {
		return nil, fmt.Errorf("%w: %s", ErrRemoteCapabilityMissing, h.digestCmd)
	}
	if !result.Ok() {
		return nil, fmt.Errorf("remote hashing exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return parseHashListing(result.Stdout), nil
}

// parseHashListing parses digest-utility output lines of the form
// "<hash>  ./relative/path" into remote hash entries
func parseHashListing(stdout string) []models.RemoteHashEntry {
	var entries []models.RemoteHashEntry
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		path := strings.TrimSpace(parts[1])
		path = strings.TrimPrefix(path, "./")
		if path == "" {
			continue
		}
		entries = append(entries, models.RemoteHashEntry{
			RelativePath: path,
			Hash:         strings.ToLower(parts[0]),
		})
	}
	return entries
}

type localHash struct {
	entry models.LocalFileEntry
	hash  string
}

// localHashes enumerates the workspace tree and digests every file with
// bounded concurrency
func (h *HashSynchronizer) localHashes(ctx context.Context, root string, rules *ignore.RuleSet) ([]localHash, error) {
	entries, err := h.fs.Enumerate(ctx, root, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate workspace: %w", err)
	}

	hashes := make([]localHash, len(entries))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(h.workers)
	for i, entry := range entries {
		i, entry := i, entry
		group.Go(func() error {
			digest, err := h.fs.HashFile(groupCtx, entry.AbsolutePath)
			if err != nil {
				return fmt.Errorf("failed to hash %s: %w", entry.RelativePath, err)
			}
			hashes[i] = localHash{entry: entry, hash: digest}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}

// joinRemote joins a remote directory with a slash-relative path
func joinRemote(dir, rel string) string {
	return strings.TrimRight(dir, "/") + "/" + rel
}
