package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ocosta/remsync/pkg/ratelimit"
)

// LocalSession is a Session that targets a directory on the local machine.
// Commands run through the local shell and transfers are plain file copies.
// It backs the loopback deployment mode and the integration tests; real
// hosts are reached through a transport-specific Session from the
// connection layer.
type LocalSession struct {
	shell   string
	limiter *ratelimit.Limiter
	closed  bool
	mu      sync.Mutex
}

// LocalSessionOption configures a LocalSession
type LocalSessionOption func(*LocalSession)

// WithBandwidthLimit caps transfer speed in bytes per second (0 = unlimited)
func WithBandwidthLimit(bytesPerSecond int64) LocalSessionOption {
	return func(s *LocalSession) {
		s.limiter = ratelimit.NewLimiter(bytesPerSecond)
	}
}

// NewLocalSession creates a session against the local machine
func NewLocalSession(opts ...LocalSessionOption) *LocalSession {
	s := &LocalSession{shell: "/bin/sh"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the command through the local shell
func (s *LocalSession) Execute(ctx context.Context, command, workdir string) (*ExecResult, error) {
	if !s.Connected() {
		return nil, fmt.Errorf("session is closed")
	}

	cmd := exec.CommandContext(ctx, s.shell, "-c", command)
	if workdir != "" {
		cmd.Dir = workdir
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
		// command ran and exited non-zero; the caller inspects the code
	}

	return &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}, nil
}

// TransferFiles copies the file set with bounded concurrency
func (s *LocalSession) TransferFiles(ctx context.Context, files []FileTransfer, opts TransferOptions) ([]TransferResult, error) {
	if !s.Connected() {
		return nil, fmt.Errorf("session is closed")
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}

	results := make([]TransferResult, len(files))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range files {
		select {
		case <-ctx.Done():
			// In-flight workers still write their result slots and fire
			// OnFile; join them before handing the slice back.
			for j := i; j < len(files); j++ {
				results[j] = TransferResult{
					LocalPath:  files[j].LocalPath,
					RemotePath: files[j].RemotePath,
					Err:        ctx.Err(),
				}
			}
			wg.Wait()
			return results, ctx.Err()
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			transfer := files[idx]
			bytes, err := s.copyFile(ctx, transfer.LocalPath, transfer.RemotePath)
			result := TransferResult{
				LocalPath:  transfer.LocalPath,
				RemotePath: transfer.RemotePath,
				Bytes:      bytes,
				Err:        err,
			}
			results[idx] = result
			if opts.OnFile != nil {
				opts.OnFile(result)
			}
		}(i)
	}

	wg.Wait()
	return results, nil
}

// TransferDirectory walks the local tree and copies every included file
func (s *LocalSession) TransferDirectory(ctx context.Context, localRoot, remotePath string, opts DirTransferOptions) ([]TransferResult, error) {
	if !s.Connected() {
		return nil, fmt.Errorf("session is closed")
	}

	var files []FileTransfer
	err := filepath.WalkDir(localRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != localRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(localRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if opts.Include != nil && !opts.Include(rel) {
			return nil
		}

		files = append(files, FileTransfer{
			LocalPath:  path,
			RemotePath: joinRemote(remotePath, rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", localRoot, err)
	}

	return s.TransferFiles(ctx, files, TransferOptions{
		Concurrency: opts.Concurrency,
		OnFile:      opts.OnFile,
	})
}

// Connected reports whether the session is usable
func (s *LocalSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close marks the session closed
func (s *LocalSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// copyFile copies one file, creating parent directories as needed
func (s *LocalSession) copyFile(ctx context.Context, localPath, remotePath string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(remotePath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(remotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}
	defer dst.Close()

	reader := ratelimit.NewReader(ctx, src, s.limiter)
	written, err := io.Copy(dst, reader)
	if err != nil {
		return written, fmt.Errorf("failed to copy: %w", err)
	}

	return written, nil
}

// joinRemote joins a remote directory and a slash-relative path
func joinRemote(dir, rel string) string {
	return strings.TrimRight(dir, "/") + "/" + rel
}
