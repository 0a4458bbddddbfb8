package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
)

// GitProvider is a StateProvider backed by go-git repositories on disk
type GitProvider struct {
	mu    sync.Mutex
	repos map[string]*git.Repository
}

// NewGitProvider creates an empty provider; repositories are registered
// with Open
func NewGitProvider() *GitProvider {
	return &GitProvider{repos: make(map[string]*git.Repository)}
}

// Open registers the repository rooted at the given directory. Opening the
// same root twice is a no-op.
func (p *GitProvider) Open(root string) error {
	root = filepath.Clean(root)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.repos[root]; ok {
		return nil
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return fmt.Errorf("failed to open repository at %s: %w", root, err)
	}
	p.repos[root] = repo
	return nil
}

// Repositories returns the registered repository roots, sorted
func (p *GitProvider) Repositories() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	roots := make([]string, 0, len(p.repos))
	for root := range p.repos {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Changes lists the staged or working changes of the repository at root
func (p *GitProvider) Changes(ctx context.Context, root string, kind ChangeKind) ([]Change, error) {
	p.mu.Lock()
	repo, ok := p.repos[filepath.Clean(root)]
	p.mu.Unlock()
	if !ok {
		return nil, ErrNoRepository
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status: %w", err)
	}

	var changes []Change
	for path, fileStatus := range status {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var code byte
		switch kind {
		case KindStaged:
			code = byte(fileStatus.Staging)
			if code == byte(git.Unmodified) || code == byte(git.Untracked) {
				continue
			}
		case KindWorking:
			code = byte(fileStatus.Worktree)
			if code == byte(git.Unmodified) {
				continue
			}
		default:
			return nil, fmt.Errorf("unknown change kind %q", kind)
		}

		changes = append(changes, Change{Path: path, Status: code})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}
