// Package remote defines the abstract remote session consumed by the
// deployment engine: shell command execution and file transfer. Transport
// details (SSH, SFTP, agents) live behind the Session interface and are
// owned by the connection layer, not this package.
package remote

import (
	"context"
)

// ExecResult is the outcome of one remote command execution
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Ok reports whether the command exited zero
func (r *ExecResult) Ok() bool {
	return r.ExitCode == 0
}

// FileTransfer pairs a local source file with its remote destination path
type FileTransfer struct {
	LocalPath  string
	RemotePath string
}

// TransferResult is the per-file outcome of a transfer operation
type TransferResult struct {
	LocalPath  string
	RemotePath string
	Bytes      int64
	Err        error
}

// TransferOptions controls a flat file-set transfer
type TransferOptions struct {
	// Concurrency bounds the number of simultaneous file writes
	Concurrency int

	// OnFile, when set, receives every individual file outcome as it
	// completes
	OnFile func(TransferResult)
}

// DirTransferOptions controls a directory tree transfer
type DirTransferOptions struct {
	Recursive bool

	// Concurrency bounds the number of simultaneous file writes
	Concurrency int

	// Include is evaluated per file during the tree walk; returning
	// false excludes the file. Nil includes everything.
	Include func(relativePath string) bool

	// OnFile, when set, receives every individual file outcome as it
	// completes
	OnFile func(TransferResult)
}

// Session is the remote host capability the engine deploys through. One
// session maps to one connected host. Execute calls are issued
// sequentially by the engine; transfer calls parallelize internally up to
// the requested concurrency.
type Session interface {
	// Execute runs a shell command on the remote host, optionally in a
	// working directory, and returns its output and exit code. A non-zero
	// exit code is not an error; failures to run the command at all are.
	Execute(ctx context.Context, command, workdir string) (*ExecResult, error)

	// TransferFiles copies a flat set of local files to their remote
	// destinations, creating parent directories as needed, and returns
	// one result per input file. Per-file failures do not abort the batch.
	TransferFiles(ctx context.Context, files []FileTransfer, opts TransferOptions) ([]TransferResult, error)

	// TransferDirectory copies a local directory tree under the remote
	// path, honoring the inclusion predicate during the walk
	TransferDirectory(ctx context.Context, localRoot, remotePath string, opts DirTransferOptions) ([]TransferResult, error)

	// Connected reports whether the session is usable
	Connected() bool

	// Close releases the session
	Close() error
}
