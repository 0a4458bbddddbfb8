package deploy

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ocosta/remsync/pkg/config"
	"github.com/ocosta/remsync/pkg/ignore"
	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/output"
	"github.com/ocosta/remsync/pkg/remote"
	"github.com/ocosta/remsync/pkg/tracker"
	"github.com/ocosta/remsync/pkg/vcs"
)

// State is the orchestrator's per-workspace deployment state
type State string

const (
	StateIdle         State = "idle"
	StatePreparing    State = "preparing"
	StateTransferring State = "transferring"
	StateSucceeded    State = "succeeded"
	StatePartial      State = "partial"
	StateFailed       State = "failed"
)

// TargetResolver resolves the configured remote path for a workspace
type TargetResolver interface {
	Lookup(workspaceRoot string) (models.WorkspaceTarget, error)
}

// BusyFunc is notified when a workspace enters and leaves the transfer phase
type BusyFunc func(workspace string, busy bool)

// TriggerFunc runs after a deployment the orchestrator judged successful
type TriggerFunc func(ctx context.Context, outcome *models.DeploymentOutcome)

// Orchestrator runs deployments end to end: it resolves the target, builds
// the ignore rule set, dispatches to the strategy the request selects and
// reports the outcome. One orchestrator serves every workspace in the
// process; deployments for the same workspace never overlap.
type Orchestrator struct {
	session   remote.Session
	fs        *localfs.FS
	tracker   *tracker.Tracker
	differ    *vcs.Differ
	targets   TargetResolver
	cfg       config.DeployConfig
	formatter output.Formatter
	logger    logging.Logger

	hash    *HashSynchronizer
	bulk    *BulkTransfer
	applier *Applier
	tracked *TrackedPlanner

	out     io.Writer
	busy    BusyFunc
	trigger TriggerFunc

	mu      sync.Mutex
	running map[string]bool
	states  map[string]State
}

// NewOrchestrator creates a deployment orchestrator. targets may be nil
// when every request carries an explicit remote path.
func NewOrchestrator(
	session remote.Session,
	fs *localfs.FS,
	changeTracker *tracker.Tracker,
	differ *vcs.Differ,
	targets TargetResolver,
	cfg config.DeployConfig,
	formatter output.Formatter,
	logger logging.Logger,
) *Orchestrator {
	if logger == nil {
		logger = &logging.NullLogger{}
	}
	if formatter == nil {
		formatter = output.NewHumanFormatter()
	}
	return &Orchestrator{
		session:   session,
		fs:        fs,
		tracker:   changeTracker,
		differ:    differ,
		targets:   targets,
		cfg:       cfg,
		formatter: formatter,
		logger:    logger,
		hash:      NewHashSynchronizer(session, fs, cfg.DigestCommand, cfg.MaxWorkers, logger),
		bulk:      NewBulkTransfer(session, cfg.MaxWorkers, logger),
		applier:   NewApplier(session, cfg.MaxWorkers, logger),
		tracked:   NewTrackedPlanner(changeTracker, fs, logger),
		out:       io.Discard,
		running:   make(map[string]bool),
		states:    make(map[string]State),
	}
}

// SetOutput directs formatter output to the given writer
func (o *Orchestrator) SetOutput(w io.Writer) {
	if w != nil {
		o.out = w
	}
}

// SetBusyNotifier registers the busy indicator callback
func (o *Orchestrator) SetBusyNotifier(fn BusyFunc) {
	o.busy = fn
}

// SetPostDeployTrigger registers a hook that fires after successful
// deployments
func (o *Orchestrator) SetPostDeployTrigger(fn TriggerFunc) {
	o.trigger = fn
}

// State returns the current deployment state of the workspace
func (o *Orchestrator) State(workspace string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok := o.states[workspace]; ok {
		return state
	}
	return StateIdle
}

// Deploy executes one deployment request and returns its outcome. The
// returned error is the aborting error, if any; per-file transfer failures
// do not produce one. A second Deploy for a workspace already deploying is
// rejected with ErrDeployInProgress.
func (o *Orchestrator) Deploy(ctx context.Context, req models.DeployRequest) (*models.DeploymentOutcome, error) {
	outcome := &models.DeploymentOutcome{
		ID:            uuid.New().String(),
		WorkspaceRoot: req.WorkspaceRoot,
		Strategy:      req.Strategy,
		DryRun:        req.DryRun,
		StartTime:     time.Now(),
	}

	if err := req.Validate(); err != nil {
		return o.fail(ctx, outcome, err)
	}

	if !o.tryAcquire(req.WorkspaceRoot) {
		return o.fail(ctx, outcome, ErrDeployInProgress)
	}
	defer o.release(req.WorkspaceRoot)

	o.logger.Info(ctx, "deployment started", logging.Fields{
		"id":        outcome.ID,
		"workspace": req.WorkspaceRoot,
		"strategy":  string(req.Strategy),
		"dry_run":   req.DryRun,
	})

	o.setState(req.WorkspaceRoot, StatePreparing)
	target, rules, err := o.prepare(ctx, req, outcome)
	if err != nil {
		o.setState(req.WorkspaceRoot, StateFailed)
		return o.fail(ctx, outcome, err)
	}

	o.setState(req.WorkspaceRoot, StateTransferring)
	if o.busy != nil {
		o.busy(req.WorkspaceRoot, true)
		defer o.busy(req.WorkspaceRoot, false)
	}

	noop, err := o.transfer(ctx, req, target, rules, outcome)
	if err != nil {
		o.setState(req.WorkspaceRoot, StateFailed)
		return o.fail(ctx, outcome, err)
	}

	o.finish(outcome)
	if outcome.Status == models.StatusPartial {
		o.setState(req.WorkspaceRoot, StatePartial)
	} else {
		o.setState(req.WorkspaceRoot, StateSucceeded)
	}

	if !req.DryRun && outcome.Status == models.StatusSucceeded && o.tracker != nil {
		o.tracker.Clear(req.WorkspaceRoot)
	}

	outcome.AppendLog(fmt.Sprintf("deployment %s: %s", outcome.ID, outcome.Status))
	o.formatter.Complete(outcome)

	o.logger.Info(ctx, "deployment finished", logging.Fields{
		"id":       outcome.ID,
		"status":   string(outcome.Status),
		"uploaded": outcome.Stats.FilesUploaded,
		"deleted":  outcome.Stats.FilesDeleted,
		"failed":   outcome.Stats.FilesFailed,
	})

	if o.trigger != nil && !req.DryRun && outcome.Success() {
		if !noop || o.cfg.TriggerOnNoop {
			o.trigger(ctx, outcome)
		}
	}

	return outcome, nil
}

// prepare resolves the target, builds the ignore rule set and ensures the
// remote target directory exists. Precondition failures abort before any
// remote command is issued.
func (o *Orchestrator) prepare(ctx context.Context, req models.DeployRequest, outcome *models.DeploymentOutcome) (models.WorkspaceTarget, *ignore.RuleSet, error) {
	var none models.WorkspaceTarget

	if o.session == nil || !o.session.Connected() {
		return none, nil, ErrNotConnected
	}

	remotePath := req.RemotePath
	if remotePath == "" && o.targets != nil {
		target, err := o.targets.Lookup(req.WorkspaceRoot)
		if err != nil {
			return none, nil, fmt.Errorf("failed to resolve remote target: %w", err)
		}
		remotePath = target.RemotePath
	}
	if remotePath == "" {
		return none, nil, ErrUnconfigured
	}
	if !strings.HasPrefix(remotePath, "/") {
		return none, nil, ErrInvalidTargetPath
	}

	target := models.WorkspaceTarget{
		LocalRoot:  req.WorkspaceRoot,
		RemotePath: remotePath,
	}
	outcome.RemotePath = remotePath

	content, err := o.fs.ReadIgnoreFile(req.WorkspaceRoot, o.cfg.IgnoreFile)
	if err != nil {
		return none, nil, err
	}
	baseRules := make([]string, 0, len(o.cfg.IgnoreRules)+len(req.IgnoreRules))
	baseRules = append(baseRules, o.cfg.IgnoreRules...)
	baseRules = append(baseRules, req.IgnoreRules...)
	rules := ignore.Build(baseRules, o.cfg.IgnoreFile, content)

	if !req.DryRun {
		result, err := o.session.Execute(ctx, "mkdir -p "+shellQuote(remotePath), "")
		if err != nil {
			return none, nil, fmt.Errorf("failed to create remote target: %w", err)
		}
		if !result.Ok() {
			return none, nil, fmt.Errorf("remote target creation exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
		}
	}

	return target, rules, nil
}

// transfer dispatches to the strategy the request selects. It reports
// whether the run turned out to be a no-op.
func (o *Orchestrator) transfer(ctx context.Context, req models.DeployRequest, target models.WorkspaceTarget, rules *ignore.RuleSet, outcome *models.DeploymentOutcome) (noop bool, err error) {
	switch req.Strategy {
	case models.StrategyAll:
		return false, o.runBulk(ctx, target, rules, outcome)

	case models.StrategyCompare:
		plan, delegate, err := o.hash.Diff(ctx, target, rules)
		if err != nil {
			return false, err
		}
		if delegate {
			outcome.AppendLog("remote target is empty, deploying full tree")
			return false, o.runBulk(ctx, target, rules, outcome)
		}
		return o.runPlan(ctx, target, plan, outcome)

	case models.StrategyChanged:
		if o.tracker == nil {
			return false, fmt.Errorf("change tracking is not enabled")
		}
		plan, err := o.tracked.Plan(ctx, target, rules)
		if err != nil {
			return false, err
		}
		return o.runPlan(ctx, target, plan, outcome)

	case models.StrategyStaged, models.StrategyWorking:
		if o.differ == nil {
			return false, vcs.ErrNoRepository
		}
		kind := vcs.KindStaged
		if req.Strategy == models.StrategyWorking {
			kind = vcs.KindWorking
		}
		plan, err := o.differ.Diff(ctx, target, kind)
		if err != nil {
			return false, err
		}
		return o.runPlan(ctx, target, plan, outcome)

	default:
		return false, fmt.Errorf("unknown strategy: %s", req.Strategy)
	}
}

// runPlan applies an upload plan, or only narrates it during a dry run
func (o *Orchestrator) runPlan(ctx context.Context, target models.WorkspaceTarget, plan *models.UploadPlan, outcome *models.DeploymentOutcome) (noop bool, err error) {
	if plan.IsEmpty() {
		outcome.AppendLog("nothing to deploy")
		return true, nil
	}

	if outcome.DryRun {
		for _, upload := range plan.Uploads {
			outcome.AppendLog("would upload " + upload.RemotePath)
		}
		for _, deletion := range plan.Deletions {
			outcome.AppendLog("would delete " + deletion)
		}
		outcome.Stats.FilesSkipped = plan.UploadCount()
		return false, nil
	}

	o.formatter.Start(o.out, plan.UploadCount(), plan.TotalBytes())
	collector := newProgressCollector(outcome, o.formatter, plan.UploadCount())

	for _, deletion := range plan.Deletions {
		o.formatter.Progress(output.ProgressUpdate{Type: "delete", FilePath: deletion})
	}

	if _, err := o.applier.Apply(ctx, target, plan, collector.onFile); err != nil {
		return false, err
	}
	outcome.Stats.FilesDeleted = len(plan.Deletions)
	for _, deletion := range plan.Deletions {
		outcome.AppendLog("deleted " + deletion)
	}
	return false, nil
}

// runBulk transfers the whole workspace tree
func (o *Orchestrator) runBulk(ctx context.Context, target models.WorkspaceTarget, rules *ignore.RuleSet, outcome *models.DeploymentOutcome) error {
	if outcome.DryRun {
		entries, err := o.fs.Enumerate(ctx, target.LocalRoot, rules)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			outcome.AppendLog("would upload " + joinRemote(target.RemotePath, entry.RelativePath))
		}
		outcome.Stats.FilesSkipped = len(entries)
		return nil
	}

	o.formatter.Start(o.out, 0, 0)
	collector := newProgressCollector(outcome, o.formatter, 0)

	_, err := o.bulk.Deploy(ctx, target, rules, collector.onFile)
	return err
}

// finish stamps the outcome's terminal status and timing
func (o *Orchestrator) finish(outcome *models.DeploymentOutcome) {
	outcome.EndTime = time.Now()
	outcome.Duration = outcome.EndTime.Sub(outcome.StartTime)
	if outcome.Stats.FilesFailed > 0 {
		outcome.Status = models.StatusPartial
	} else {
		outcome.Status = models.StatusSucceeded
	}
}

// fail stamps the outcome as failed and reports the aborting error
func (o *Orchestrator) fail(ctx context.Context, outcome *models.DeploymentOutcome, err error) (*models.DeploymentOutcome, error) {
	outcome.EndTime = time.Now()
	outcome.Duration = outcome.EndTime.Sub(outcome.StartTime)
	outcome.Status = models.StatusFailed
	outcome.Err = err
	outcome.AppendLog("deployment failed: " + err.Error())

	o.logger.Error(ctx, "deployment failed", err, logging.Fields{
		"id":        outcome.ID,
		"workspace": outcome.WorkspaceRoot,
		"strategy":  string(outcome.Strategy),
	})
	o.formatter.Error(err)

	return outcome, err
}

func (o *Orchestrator) tryAcquire(workspace string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[workspace] {
		return false
	}
	o.running[workspace] = true
	return true
}

func (o *Orchestrator) release(workspace string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, workspace)
}

func (o *Orchestrator) setState(workspace string, state State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[workspace] = state
}

// progressCollector funnels concurrent per-file transfer results into the
// outcome and the formatter
type progressCollector struct {
	mu        sync.Mutex
	outcome   *models.DeploymentOutcome
	formatter output.Formatter
	total     int
	current   int
}

func newProgressCollector(outcome *models.DeploymentOutcome, formatter output.Formatter, total int) *progressCollector {
	return &progressCollector{
		outcome:   outcome,
		formatter: formatter,
		total:     total,
	}
}

func (c *progressCollector) onFile(result remote.TransferResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current++
	if result.Err != nil {
		c.outcome.Stats.FilesFailed++
		c.outcome.Failures = append(c.outcome.Failures, models.FileFailure{
			Path:      result.LocalPath,
			Error:     result.Err.Error(),
			Timestamp: time.Now(),
		})
		c.outcome.AppendLog(fmt.Sprintf("failed %s: %v", result.LocalPath, result.Err))
		c.formatter.Progress(output.ProgressUpdate{
			Type:        "file_error",
			FilePath:    result.LocalPath,
			CurrentFile: c.current,
			TotalFiles:  c.total,
			Error:       result.Err,
		})
		return
	}

	c.outcome.Stats.FilesUploaded++
	c.outcome.Stats.BytesTransferred += result.Bytes
	c.outcome.AppendLog("uploaded " + result.RemotePath)
	c.formatter.Progress(output.ProgressUpdate{
		Type:         "file_complete",
		FilePath:     result.RemotePath,
		BytesWritten: result.Bytes,
		CurrentFile:  c.current,
		TotalFiles:   c.total,
	})
}
