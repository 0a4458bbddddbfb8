package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizeWorkspacePath cleans a workspace path for use as a registry key.
// Tracker entries and target mappings are keyed by this form, so the CLI
// and the watcher must agree on it.
func NormalizeWorkspacePath(path string) string {
	return filepath.Clean(path)
}

// IsWorkspacePathAbsolute checks if a local workspace path is absolute,
// accepting UNC paths on Windows
func IsWorkspacePathAbsolute(path string) bool {
	if runtime.GOOS == "windows" && (strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")) {
		return true
	}
	return filepath.IsAbs(path)
}

// IsRemotePathAbsolute checks if a remote target path is absolute. Remote
// hosts are POSIX regardless of the local platform.
func IsRemotePathAbsolute(path string) bool {
	return strings.HasPrefix(path, "/")
}

// ValidateWorkspacePath checks if a path can serve as a workspace root
func ValidateWorkspacePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}
	if !IsWorkspacePathAbsolute(path) {
		return &PathError{Path: path, Message: "workspace path must be absolute"}
	}
	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
