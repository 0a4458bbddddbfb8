package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocosta/remsync/internal/platform"
	"github.com/ocosta/remsync/pkg/config"
	"github.com/ocosta/remsync/pkg/deploy"
	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/output"
	"github.com/ocosta/remsync/pkg/remote"
	"github.com/ocosta/remsync/pkg/tracker"
	"github.com/ocosta/remsync/pkg/vcs"
)

// DeployFlags holds deploy command flags
type DeployFlags struct {
	Workspace string
	Remote    string
	Strategy  string
	DryRun    bool
	Parallel  int
	Bandwidth string
	Ignore    []string
	Output    string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var deployFlags DeployFlags

// NewDeployCommand creates the deploy command
func NewDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a workspace to its remote target",
		Long: `Deploy the local workspace to the remote target directory using the
selected strategy: changed, staged, working, compare, or all.`,
		RunE: runDeploy,
	}

	cmd.Flags().StringVarP(&deployFlags.Workspace, "workspace", "w", "", "workspace root (default: current directory)")
	cmd.Flags().StringVarP(&deployFlags.Remote, "remote", "r", "", "remote target path (default: the configured target)")
	cmd.Flags().StringVarP(&deployFlags.Strategy, "strategy", "s", "compare", "deployment strategy: changed, staged, working, compare, all")
	cmd.Flags().BoolVar(&deployFlags.DryRun, "dry-run", false, "plan only, don't transfer")
	cmd.Flags().IntVarP(&deployFlags.Parallel, "parallel", "p", 0, "number of parallel transfers (default: 5)")
	cmd.Flags().StringVarP(&deployFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringSliceVar(&deployFlags.Ignore, "ignore", []string{}, "extra ignore patterns")
	cmd.Flags().StringVarP(&deployFlags.Output, "output", "o", "", "output format: human, progress, json")

	cmd.Flags().StringVar(&deployFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&deployFlags.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&deployFlags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	workspace, err := resolveWorkspace(deployFlags.Workspace)
	if err != nil {
		return err
	}

	strategy, ok := models.ParseStrategy(deployFlags.Strategy)
	if !ok {
		return fmt.Errorf("unknown strategy: %s (use: changed, staged, working, compare, all)", deployFlags.Strategy)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if deployFlags.Parallel > 0 {
		cfg.Deploy.MaxWorkers = deployFlags.Parallel
	}

	bandwidth, err := parseBandwidth(deployFlags.Bandwidth)
	if err != nil {
		return err
	}
	if bandwidth == 0 {
		bandwidth = cfg.Deploy.BandwidthLimit
	}

	logger, err := createLogger(deployFlags.LogFile, deployFlags.LogFormat, deployFlags.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	formatter, err := createFormatter(deployFlags.Output, cfg)
	if err != nil {
		return err
	}

	orchestrator, session, err := buildOrchestrator(workspace, strategy, cfg, bandwidth, nil, formatter, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	outcome, err := orchestrator.Deploy(ctx, models.DeployRequest{
		WorkspaceRoot: workspace,
		RemotePath:    deployFlags.Remote,
		Strategy:      strategy,
		IgnoreRules:   deployFlags.Ignore,
		DryRun:        deployFlags.DryRun,
	})
	if err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}

	os.Exit(outcome.Status.ExitCode())
	return nil
}

// resolveWorkspace normalizes the workspace flag, defaulting to the
// current directory
func resolveWorkspace(flag string) (string, error) {
	workspace := flag
	if workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve current directory: %w", err)
		}
		workspace = cwd
	}
	workspace = platform.NormalizeWorkspacePath(workspace)
	if err := platform.ValidateWorkspacePath(workspace); err != nil {
		return "", err
	}
	return workspace, nil
}

// buildOrchestrator wires the deployment engine for one CLI invocation.
// The loopback session deploys to a directory on this machine; the remote
// connection layer swaps in its own Session implementation.
func buildOrchestrator(workspace string, strategy models.Strategy, cfg *config.Config, bandwidth int64, changeTracker *tracker.Tracker, formatter output.Formatter, logger logging.Logger) (*deploy.Orchestrator, remote.Session, error) {
	session := remote.NewLocalSession(remote.WithBandwidthLimit(bandwidth))
	fs := localfs.New()

	var differ *vcs.Differ
	if strategy == models.StrategyStaged || strategy == models.StrategyWorking {
		provider := vcs.NewGitProvider()
		if err := provider.Open(workspace); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", vcs.ErrNoRepository, workspace)
		}
		differ = vcs.NewDiffer(provider, logger)
	}

	targetPath, err := config.DefaultTargetPath()
	if err != nil {
		return nil, nil, err
	}
	targets := config.NewTargetStore(targetPath)

	orchestrator := deploy.NewOrchestrator(session, fs, changeTracker, differ, targets, cfg.Deploy, formatter, logger)
	orchestrator.SetOutput(os.Stdout)
	return orchestrator, session, nil
}
