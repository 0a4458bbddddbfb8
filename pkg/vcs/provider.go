// Package vcs provides the version-control state used by the staged and
// working deployment strategies.
package vcs

import (
	"context"
	"errors"
)

// ErrNoRepository indicates a version-control strategy was requested but no
// repository is available for the workspace
var ErrNoRepository = errors.New("no version control repository available")

// ChangeKind selects which side of the index is diffed
type ChangeKind string

const (
	// KindStaged lists changes staged in the index
	KindStaged ChangeKind = "staged"
	// KindWorking lists changes in the working tree
	KindWorking ChangeKind = "working"
)

// Status codes reported by the provider, following git's porcelain letters
const (
	StatusModified  = 'M'
	StatusAdded     = 'A'
	StatusDeleted   = 'D'
	StatusRenamed   = 'R'
	StatusUntracked = '?'
)

// Change is one changed file as reported by the provider
type Change struct {
	// Path is relative to the repository root, forward slashes
	Path string

	// Status is the porcelain status letter
	Status byte
}

// StateProvider exposes version-control state. Implemented by the go-git
// provider and by test fakes.
type StateProvider interface {
	// Repositories returns the roots of all known repositories
	Repositories() []string

	// Changes lists the changed files of one repository
	Changes(ctx context.Context, root string, kind ChangeKind) ([]Change, error)
}
