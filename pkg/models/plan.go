package models

// LocalFileEntry is a file found under the workspace root during enumeration
type LocalFileEntry struct {
	// AbsolutePath is the full path on the local filesystem
	AbsolutePath string

	// RelativePath is the path relative to the workspace root, with
	// forward slashes
	RelativePath string

	// Size in bytes
	Size int64
}

// RemoteHashEntry is one line of the remote hash listing: a file under the
// target directory and its content digest
type RemoteHashEntry struct {
	// RelativePath is the path relative to the remote target directory
	RelativePath string

	// Hash is the lowercase hex content digest
	Hash string
}

// FileUpload pairs a local file with its remote destination
type FileUpload struct {
	LocalPath  string
	RemotePath string
	Size       int64
}

// UploadPlan is the output of a diffing strategy: the files to copy to the
// remote side and the remote paths to delete. It is consumed uniformly by
// the transfer step regardless of which strategy produced it.
type UploadPlan struct {
	Uploads   []FileUpload
	Deletions []string
}

// IsEmpty reports whether the plan requires no remote operations
func (p *UploadPlan) IsEmpty() bool {
	return len(p.Uploads) == 0 && len(p.Deletions) == 0
}

// UploadCount returns the number of scheduled uploads
func (p *UploadPlan) UploadCount() int {
	return len(p.Uploads)
}

// TotalBytes returns the total size of all scheduled uploads
func (p *UploadPlan) TotalBytes() int64 {
	var total int64
	for _, u := range p.Uploads {
		total += u.Size
	}
	return total
}
