package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocosta/remsync/pkg/config"
	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/remote"
	"github.com/ocosta/remsync/pkg/tracker"
	"github.com/ocosta/remsync/pkg/vcs"
)

// fixedTargets resolves every workspace to the same remote path
type fixedTargets map[string]string

func (f fixedTargets) Lookup(workspaceRoot string) (models.WorkspaceTarget, error) {
	return models.WorkspaceTarget{LocalRoot: workspaceRoot, RemotePath: f[workspaceRoot]}, nil
}

func testConfig() config.DeployConfig {
	return config.DeployConfig{
		MaxWorkers:    2,
		DigestCommand: "md5sum",
		IgnoreFile:    ".deployignore",
		TriggerOnNoop: true,
	}
}

func newTestTracker(fs *localfs.FS) *tracker.Tracker {
	return tracker.New(func(path string) (bool, error) {
		return fs.IsFile(path)
	})
}

func TestOrchestratorDeploy(t *testing.T) {
	ctx := context.Background()

	t.Run("UnconfiguredIssuesNoRemoteCommand", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()

		o := NewOrchestrator(session, fs, nil, nil, fixedTargets{}, testConfig(), nil, nil)
		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			Strategy:      models.StrategyAll,
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnconfigured))
		assert.Equal(t, models.StatusFailed, outcome.Status)
		assert.Empty(t, session.executed(), "no remote command for an unconfigured workspace")
		assert.Empty(t, session.dirCalls)
		assert.Equal(t, StateFailed, o.State("/ws"))
	})

	t.Run("NotConnected", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()
		session.connected = false

		o := NewOrchestrator(session, fs, nil, nil, nil, testConfig(), nil, nil)
		_, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyAll,
		})
		assert.True(t, errors.Is(err, ErrNotConnected))
	})

	t.Run("RelativeTargetFailsBeforeTransfer", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()

		o := NewOrchestrator(session, fs, nil, nil, nil, testConfig(), nil, nil)
		_, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "relative/path",
			Strategy:      models.StrategyAll,
		})

		assert.True(t, errors.Is(err, ErrInvalidTargetPath))
		assert.Empty(t, session.executed())
		assert.Empty(t, session.dirCalls)
	})

	t.Run("InvalidStrategy", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		o := NewOrchestrator(newFakeSession(), fs, nil, nil, nil, testConfig(), nil, nil)

		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      "rsync",
		})
		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, outcome.Status)
	})

	t.Run("ChangedUploadsPendingAndClearsTracker", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{
			"/ws/a.txt": "alpha",
			"/ws/b.txt": "bravo",
		})
		session := newFakeSession()
		tr := newTestTracker(fs)
		tr.OnFileEvent("/ws", "/ws/a.txt", tracker.EventCreated)
		tr.OnFileEvent("/ws", "/ws/b.txt", tracker.EventModified)

		o := NewOrchestrator(session, fs, tr, nil, nil, testConfig(), nil, nil)
		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyChanged,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusSucceeded, outcome.Status)
		assert.Equal(t, 2, outcome.Stats.FilesUploaded)
		assert.Empty(t, tr.Pending("/ws"), "pending set cleared on success")
		assert.Equal(t, StateSucceeded, o.State("/ws"))
	})

	t.Run("ChangedPartialFailurePreservesPending", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{
			"/ws/good.txt": "alpha",
			"/ws/bad.txt":  "bravo",
		})
		session := newFakeSession()
		session.failPaths = map[string]error{"/ws/bad.txt": errors.New("disk full")}
		tr := newTestTracker(fs)
		tr.OnFileEvent("/ws", "/ws/good.txt", tracker.EventModified)
		tr.OnFileEvent("/ws", "/ws/bad.txt", tracker.EventModified)

		o := NewOrchestrator(session, fs, tr, nil, nil, testConfig(), nil, nil)
		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyChanged,
		})

		require.NoError(t, err, "per-file failures do not abort the deployment")
		assert.Equal(t, models.StatusPartial, outcome.Status)
		assert.Equal(t, 1, outcome.Stats.FilesUploaded)
		assert.Equal(t, 1, outcome.Stats.FilesFailed)
		require.Len(t, outcome.Failures, 1)
		assert.Equal(t, "/ws/bad.txt", outcome.Failures[0].Path)
		assert.Len(t, tr.Pending("/ws"), 2, "pending set preserved for retry")
		assert.Equal(t, StatePartial, o.State("/ws"))
	})

	t.Run("ChangedNoopTrigger", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})

		for _, tc := range []struct {
			name          string
			triggerOnNoop bool
			wantFired     bool
		}{
			{name: "FiresWhenConfigured", triggerOnNoop: true, wantFired: true},
			{name: "SkipsWhenDisabled", triggerOnNoop: false, wantFired: false},
		} {
			t.Run(tc.name, func(t *testing.T) {
				cfg := testConfig()
				cfg.TriggerOnNoop = tc.triggerOnNoop

				o := NewOrchestrator(newFakeSession(), fs, newTestTracker(fs), nil, nil, cfg, nil, nil)
				fired := false
				o.SetPostDeployTrigger(func(ctx context.Context, outcome *models.DeploymentOutcome) {
					fired = true
				})

				outcome, err := o.Deploy(ctx, models.DeployRequest{
					WorkspaceRoot: "/ws",
					RemotePath:    "/srv/app",
					Strategy:      models.StrategyChanged,
				})
				require.NoError(t, err)
				assert.Equal(t, models.StatusSucceeded, outcome.Status)
				assert.Equal(t, tc.wantFired, fired)
			})
		}
	})

	t.Run("CompareDelegatesToBulkOnEmptyRemote", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()
		session.exec = func(command, workdir string) (*remote.ExecResult, error) {
			if strings.Contains(command, "wc -l") {
				return &remote.ExecResult{Stdout: "0\n"}, nil
			}
			return &remote.ExecResult{}, nil
		}

		o := NewOrchestrator(session, fs, nil, nil, nil, testConfig(), nil, nil)
		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyCompare,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusSucceeded, outcome.Status)
		assert.Len(t, session.dirCalls, 1, "empty remote falls back to a full tree transfer")
		assert.Equal(t, 0, session.commandsMatching("find"), "no hash comparison for an empty remote")
	})

	t.Run("StagedWithoutRepository", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		differ := vcs.NewDiffer(nil, nil)

		o := NewOrchestrator(newFakeSession(), fs, nil, differ, nil, testConfig(), nil, nil)
		_, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyStaged,
		})
		assert.True(t, errors.Is(err, vcs.ErrNoRepository))
	})

	t.Run("DryRunIssuesNoMutatingCommand", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()
		tr := newTestTracker(fs)
		tr.OnFileEvent("/ws", "/ws/a.txt", tracker.EventModified)

		o := NewOrchestrator(session, fs, tr, nil, nil, testConfig(), nil, nil)
		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyChanged,
			DryRun:        true,
		})

		require.NoError(t, err)
		assert.Empty(t, session.executed(), "dry run issues no remote command")
		assert.Empty(t, session.files)
		assert.Len(t, tr.Pending("/ws"), 1, "dry run never clears the tracker")

		found := false
		for _, line := range outcome.Log {
			if strings.Contains(line, "would upload /srv/app/a.txt") {
				found = true
			}
		}
		assert.True(t, found, "dry run narrates the plan, log: %v", outcome.Log)
	})

	t.Run("ConcurrentDeployRejected", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()
		session.dirBlock = make(chan struct{})

		o := NewOrchestrator(session, fs, nil, nil, nil, testConfig(), nil, nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			o.Deploy(ctx, models.DeployRequest{
				WorkspaceRoot: "/ws",
				RemotePath:    "/srv/app",
				Strategy:      models.StrategyAll,
			})
		}()

		require.Eventually(t, func() bool {
			return o.State("/ws") == StateTransferring
		}, time.Second, 5*time.Millisecond)

		_, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyAll,
		})
		assert.True(t, errors.Is(err, ErrDeployInProgress))

		close(session.dirBlock)
		<-done
	})

	t.Run("BusyNotifierSetAndCleared", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		o := NewOrchestrator(newFakeSession(), fs, nil, nil, nil, testConfig(), nil, nil)

		var transitions []bool
		o.SetBusyNotifier(func(workspace string, busy bool) {
			transitions = append(transitions, busy)
		})

		_, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			RemotePath:    "/srv/app",
			Strategy:      models.StrategyAll,
		})
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false}, transitions)
	})

	t.Run("TargetResolverSuppliesRemotePath", func(t *testing.T) {
		fs := workspaceFS(t, map[string]string{"/ws/a.txt": "alpha"})
		session := newFakeSession()

		o := NewOrchestrator(session, fs, nil, nil, fixedTargets{"/ws": "/srv/app"}, testConfig(), nil, nil)
		outcome, err := o.Deploy(ctx, models.DeployRequest{
			WorkspaceRoot: "/ws",
			Strategy:      models.StrategyAll,
		})
		require.NoError(t, err)
		assert.Equal(t, "/srv/app", outcome.RemotePath)
	})
}
