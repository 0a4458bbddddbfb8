// Package localfs implements the local filesystem capability used by the
// deployment engine: enumeration, content hashing and ignore-file access.
package localfs

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ocosta/remsync/pkg/ignore"
	"github.com/ocosta/remsync/pkg/models"
)

// FS wraps an afero filesystem so tests can run against an in-memory tree
type FS struct {
	fs afero.Fs
}

// New creates an FS backed by the operating system
func New() *FS {
	return &FS{fs: afero.NewOsFs()}
}

// NewWithFs creates an FS backed by the given afero filesystem
func NewWithFs(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// Enumerate walks the workspace root recursively and returns every regular
// file not excluded by the rule set. The VCS metadata directory is skipped
// without descending. Returned relative paths use forward slashes.
func (f *FS) Enumerate(ctx context.Context, root string, rules *ignore.RuleSet) ([]models.LocalFileEntry, error) {
	var entries []models.LocalFileEntry

	err := afero.Walk(f.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if info.Name() == ignore.VCSMetadataDir {
				return filepath.SkipDir
			}
			if rules != nil && (rules.IsIgnored(rel) || rules.IsIgnored(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		if rules != nil && rules.IsIgnored(rel) {
			return nil
		}

		entries = append(entries, models.LocalFileEntry{
			AbsolutePath: path,
			RelativePath: rel,
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	return entries, nil
}

// ReadBytes reads the whole file
func (f *FS) ReadBytes(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Open opens a file for reading
func (f *FS) Open(path string) (io.ReadCloser, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// IsFile reports whether the path exists and is a regular file. Missing
// paths report false without an error.
func (f *FS) IsFile(path string) (bool, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// Size returns the file size in bytes
func (f *FS) Size(path string) (int64, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// HashFile computes the md5 digest of the file as lowercase hex. The same
// digest algorithm runs remotely, so both sides produce comparable values.
func (f *FS) HashFile(ctx context.Context, path string) (string, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	hasher := md5.New()
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := file.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// ReadIgnoreFile reads the workspace ignore file. A missing file returns
// empty content, meaning only the default rules apply.
func (f *FS) ReadIgnoreFile(root, name string) (string, error) {
	path := filepath.Join(root, name)
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read ignore file: %w", err)
	}
	return string(data), nil
}
