package deploy

import (
	"errors"
)

var (
	// ErrNotConnected indicates no usable remote session
	ErrNotConnected = errors.New("no active remote session")

	// ErrUnconfigured indicates no remote target path is set for the workspace
	ErrUnconfigured = errors.New("no remote target path configured for workspace")

	// ErrRemoteCapabilityMissing indicates the remote host lacks the
	// digest utility required by the compare strategy
	ErrRemoteCapabilityMissing = errors.New("remote host is missing the content digest utility")

	// ErrInvalidTargetPath indicates the remote target path is not absolute
	ErrInvalidTargetPath = errors.New("remote target path must be absolute")

	// ErrDeployInProgress indicates another deployment is already running
	// for the same workspace
	ErrDeployInProgress = errors.New("a deployment is already in progress for this workspace")
)
