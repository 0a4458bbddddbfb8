package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ocosta/remsync/pkg/models"
)

// TargetStore persists the workspace-to-remote-path mapping. The engine
// owns the mapping's lifetime only for the duration of a process; the file
// is the durable record.
type TargetStore struct {
	path string
	mu   sync.Mutex
}

// targetFile is the on-disk shape of the mapping
type targetFile struct {
	Targets map[string]string `yaml:"targets"`
}

// NewTargetStore creates a store backed by the given file path
func NewTargetStore(path string) *TargetStore {
	return &TargetStore{path: path}
}

// DefaultTargetPath returns the default target mapping file path
func DefaultTargetPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "remsync", "targets.yaml"), nil
}

// Get returns the full mapping of workspace root to remote path. A missing
// file is an empty mapping.
func (s *TargetStore) Get() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Set replaces the full mapping
func (s *TargetStore) Set(mapping map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(mapping)
}

// Lookup resolves the target for one workspace root
func (s *TargetStore) Lookup(workspaceRoot string) (models.WorkspaceTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, err := s.load()
	if err != nil {
		return models.WorkspaceTarget{}, err
	}

	root := filepath.Clean(workspaceRoot)
	return models.WorkspaceTarget{
		LocalRoot:  root,
		RemotePath: mapping[root],
	}, nil
}

// SetTarget records the remote path for one workspace root
func (s *TargetStore) SetTarget(workspaceRoot, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, err := s.load()
	if err != nil {
		return err
	}
	mapping[filepath.Clean(workspaceRoot)] = remotePath
	return s.save(mapping)
}

func (s *TargetStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read target mapping: %w", err)
	}

	var file targetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse target mapping: %w", err)
	}
	if file.Targets == nil {
		file.Targets = make(map[string]string)
	}
	return file.Targets, nil
}

// save writes atomically via a temp file
func (s *TargetStore) save(mapping map[string]string) error {
	data, err := yaml.Marshal(targetFile{Targets: mapping})
	if err != nil {
		return fmt.Errorf("failed to marshal target mapping: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write target mapping: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize target mapping: %w", err)
	}
	return nil
}
