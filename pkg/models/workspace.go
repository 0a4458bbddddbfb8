package models

// Strategy selects the deployment algorithm for a single invocation
type Strategy string

const (
	// StrategyChanged deploys the files recorded by the change tracker
	StrategyChanged Strategy = "changed"
	// StrategyStaged deploys files staged in the version control index
	StrategyStaged Strategy = "staged"
	// StrategyWorking deploys files modified in the working tree
	StrategyWorking Strategy = "working"
	// StrategyCompare deploys the difference between local and remote content hashes
	StrategyCompare Strategy = "compare"
	// StrategyAll deploys the entire workspace tree
	StrategyAll Strategy = "all"
)

// ParseStrategy converts a string tag to a Strategy
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyChanged, StrategyStaged, StrategyWorking, StrategyCompare, StrategyAll:
		return Strategy(s), true
	}
	return "", false
}

// WorkspaceTarget identifies a local project root and its remote destination.
// An empty RemotePath means the workspace is not configured for deployment.
type WorkspaceTarget struct {
	// LocalRoot is the absolute path of the workspace on the local machine
	LocalRoot string

	// RemotePath is the absolute directory on the remote host that the
	// workspace deploys into
	RemotePath string
}

// Configured reports whether a remote path has been set for the workspace
func (t WorkspaceTarget) Configured() bool {
	return t.RemotePath != ""
}

// DeployRequest describes a single deployment invocation
type DeployRequest struct {
	// WorkspaceRoot is the local project root to deploy
	WorkspaceRoot string

	// RemotePath overrides the configured remote target when non-empty
	RemotePath string

	// Strategy selects the deployment algorithm
	Strategy Strategy

	// IgnoreRules are extra gitignore-style patterns applied on top of
	// the workspace ignore file and the built-in defaults
	IgnoreRules []string

	// DryRun plans the deployment without issuing remote commands
	DryRun bool
}

// Validate checks if the request is well formed
func (r *DeployRequest) Validate() error {
	if r.WorkspaceRoot == "" {
		return &ValidationError{Field: "WorkspaceRoot", Message: "workspace root is required"}
	}
	if _, ok := ParseStrategy(string(r.Strategy)); !ok {
		return &ValidationError{Field: "Strategy", Message: "unknown strategy: " + string(r.Strategy)}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
