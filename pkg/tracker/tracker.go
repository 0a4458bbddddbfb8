// Package tracker maintains the per-workspace record of files changed
// since the last successful deployment, fed by filesystem watch events.
package tracker

import (
	"sort"
	"strings"
	"sync"

	"github.com/ocosta/remsync/pkg/ignore"
)

// EventKind classifies a filesystem watch event
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventModified EventKind = "modified"
	EventDeleted  EventKind = "deleted"
)

// virtualSchemes are in-memory resource schemes whose events never map to
// an on-disk file and are dropped
var virtualSchemes = []string{"member:", "streamfile:"}

// StatFunc reports whether a path exists and is a regular file
type StatFunc func(path string) (bool, error)

// Tracker records pending paths per workspace. Event handlers never block;
// each update is an independent mutation of the in-memory set under a
// mutex, so events may arrive concurrently with an in-flight deployment.
type Tracker struct {
	isFile StatFunc

	mu      sync.Mutex
	pending map[string]map[string]bool // workspace root -> set of paths
}

// New creates a tracker. isFile confirms created paths before recording;
// a nil isFile records every created path.
func New(isFile StatFunc) *Tracker {
	return &Tracker{
		isFile:  isFile,
		pending: make(map[string]map[string]bool),
	}
}

// OnFileEvent records one watch event for a workspace. Paths under the VCS
// metadata directory and virtual-scheme resources are dropped. A created
// path is recorded only once confirmed to be a regular file, since the
// downstream flat transfer cannot create bare remote directories. A delete
// removes any pending entry.
func (t *Tracker) OnFileEvent(workspace, path string, kind EventKind) {
	if isVirtual(path) || underVCSMetadata(path) {
		return
	}

	if kind == EventCreated && t.isFile != nil {
		ok, err := t.isFile(path)
		if err != nil || !ok {
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.pending[workspace]
	if kind == EventDeleted {
		if set != nil {
			delete(set, path)
		}
		return
	}

	if set == nil {
		set = make(map[string]bool)
		t.pending[workspace] = set
	}
	set[path] = true
}

// Pending returns a snapshot of the workspace's pending paths, sorted.
// Deployments operate on this copy, never a live view of the set.
func (t *Tracker) Pending(workspace string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.pending[workspace]
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clear drops every pending entry for the workspace. Called after a
// deployment the orchestrator judged successful.
func (t *Tracker) Clear(workspace string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, workspace)
}

// isVirtual reports whether the path names an in-memory resource
func isVirtual(path string) bool {
	lower := strings.ToLower(path)
	for _, scheme := range virtualSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// underVCSMetadata reports whether the path has a VCS metadata component
func underVCSMetadata(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ignore.VCSMetadataDir {
			return true
		}
	}
	return false
}
