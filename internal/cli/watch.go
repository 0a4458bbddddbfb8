package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/tracker"
)

// WatchFlags holds watch command flags
type WatchFlags struct {
	Workspace string
	Remote    string
	Interval  time.Duration
	Ignore    []string
	Output    string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var watchFlags WatchFlags

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a workspace and deploy changes as they happen",
		Long: `Watch the workspace for filesystem changes and deploy the accumulated
changes on a fixed interval using the changed strategy. Stops on interrupt.`,
		RunE: runWatch,
	}

	cmd.Flags().StringVarP(&watchFlags.Workspace, "workspace", "w", "", "workspace root (default: current directory)")
	cmd.Flags().StringVarP(&watchFlags.Remote, "remote", "r", "", "remote target path (default: the configured target)")
	cmd.Flags().DurationVarP(&watchFlags.Interval, "interval", "i", 2*time.Second, "deploy interval")
	cmd.Flags().StringSliceVar(&watchFlags.Ignore, "ignore", []string{}, "extra ignore patterns")
	cmd.Flags().StringVarP(&watchFlags.Output, "output", "o", "human", "output format: human, progress, json")

	cmd.Flags().StringVar(&watchFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&watchFlags.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&watchFlags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workspace, err := resolveWorkspace(watchFlags.Workspace)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := createLogger(watchFlags.LogFile, watchFlags.LogFormat, watchFlags.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	formatter, err := createFormatter(watchFlags.Output, cfg)
	if err != nil {
		return err
	}

	fs := localfs.New()
	changeTracker := tracker.New(fs.IsFile)

	watcher, err := tracker.NewWatcher(workspace, changeTracker, logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", workspace, err)
	}
	defer watcher.Close()

	orchestrator, session, err := buildOrchestrator(workspace, models.StrategyChanged, cfg, cfg.Deploy.BandwidthLimit, changeTracker, formatter, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx)
	}()

	fmt.Printf("Watching %s (deploy every %s, interrupt to stop)\n", workspace, watchFlags.Interval)

	ticker := time.NewTicker(watchFlags.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped watching")
			return nil
		case err := <-watchErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("watcher stopped: %w", err)
			}
			return nil
		case <-ticker.C:
			if len(changeTracker.Pending(workspace)) == 0 {
				continue
			}
			outcome, err := orchestrator.Deploy(ctx, models.DeployRequest{
				WorkspaceRoot: workspace,
				RemotePath:    watchFlags.Remote,
				Strategy:      models.StrategyChanged,
				IgnoreRules:   watchFlags.Ignore,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "deployment failed: %v\n", err)
				continue
			}
			if outcome.Status != models.StatusSucceeded {
				fmt.Fprintf(os.Stderr, "deployment %s finished with status %s\n", outcome.ID, outcome.Status)
			}
		}
	}
}
