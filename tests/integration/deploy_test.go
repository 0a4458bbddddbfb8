package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ocosta/remsync/pkg/config"
	"github.com/ocosta/remsync/pkg/deploy"
	"github.com/ocosta/remsync/pkg/localfs"
	"github.com/ocosta/remsync/pkg/models"
	"github.com/ocosta/remsync/pkg/remote"
	"github.com/ocosta/remsync/pkg/tracker"
)

// TestHelper provides utilities for integration tests
type TestHelper struct {
	t         *testing.T
	workspace string
	remoteDir string
	session   *remote.LocalSession
	fs        *localfs.FS
	tracker   *tracker.Tracker
}

// NewTestHelper creates a workspace and a remote directory under a temp
// root, with a loopback session between them
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	tempDir := t.TempDir()
	workspace := filepath.Join(tempDir, "workspace")
	remoteDir := filepath.Join(tempDir, "remote")

	if err := os.MkdirAll(workspace, 0755); err != nil {
		t.Fatalf("failed to create workspace dir: %v", err)
	}
	if err := os.MkdirAll(remoteDir, 0755); err != nil {
		t.Fatalf("failed to create remote dir: %v", err)
	}

	fs := localfs.New()
	return &TestHelper{
		t:         t,
		workspace: workspace,
		remoteDir: remoteDir,
		session:   remote.NewLocalSession(),
		fs:        fs,
		tracker:   tracker.New(fs.IsFile),
	}
}

// WriteLocal creates a file under the workspace
func (h *TestHelper) WriteLocal(rel, content string) string {
	h.t.Helper()
	path := filepath.Join(h.workspace, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// WriteRemote creates a file under the remote target
func (h *TestHelper) WriteRemote(rel, content string) {
	h.t.Helper()
	path := filepath.Join(h.remoteDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// RemoteContent reads a remote file, failing the test if missing
func (h *TestHelper) RemoteContent(rel string) string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.remoteDir, filepath.FromSlash(rel)))
	if err != nil {
		h.t.Fatalf("failed to read remote %s: %v", rel, err)
	}
	return string(data)
}

// RemoteExists reports whether a remote path exists
func (h *TestHelper) RemoteExists(rel string) bool {
	_, err := os.Stat(filepath.Join(h.remoteDir, filepath.FromSlash(rel)))
	return err == nil
}

// Orchestrator builds a deployment orchestrator over the helper's session
func (h *TestHelper) Orchestrator() *deploy.Orchestrator {
	cfg := config.DeployConfig{
		MaxWorkers:    3,
		DigestCommand: "md5sum",
		IgnoreFile:    ".deployignore",
		TriggerOnNoop: true,
	}
	return deploy.NewOrchestrator(h.session, h.fs, h.tracker, nil, nil, cfg, nil, nil)
}

// Deploy runs one deployment and fails the test on an aborting error
func (h *TestHelper) Deploy(strategy models.Strategy) *models.DeploymentOutcome {
	h.t.Helper()
	outcome, err := h.Orchestrator().Deploy(context.Background(), models.DeployRequest{
		WorkspaceRoot: h.workspace,
		RemotePath:    h.remoteDir,
		Strategy:      strategy,
	})
	if err != nil {
		h.t.Fatalf("deployment failed: %v\nlog: %v", err, outcome.Log)
	}
	return outcome
}

func TestFullDeploy(t *testing.T) {
	h := NewTestHelper(t)
	h.WriteLocal("main.go", "package main\n")
	h.WriteLocal("sub/util.go", "package sub\n")
	h.WriteLocal(".deployignore", "*.log\n")
	h.WriteLocal("debug.log", "noise")
	h.WriteLocal(".git/HEAD", "ref: refs/heads/main")

	outcome := h.Deploy(models.StrategyAll)

	if outcome.Status != models.StatusSucceeded {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if got := h.RemoteContent("main.go"); got != "package main\n" {
		t.Errorf("unexpected remote content: %q", got)
	}
	if got := h.RemoteContent("sub/util.go"); got != "package sub\n" {
		t.Errorf("unexpected remote content: %q", got)
	}
	if h.RemoteExists("debug.log") {
		t.Error("ignored file was deployed")
	}
	if h.RemoteExists(".git/HEAD") {
		t.Error("VCS metadata was deployed")
	}
	if h.RemoteExists(".deployignore") {
		t.Error("ignore file was deployed")
	}
}

func TestCompareDeploy(t *testing.T) {
	h := NewTestHelper(t)
	h.WriteLocal("same.txt", "unchanged")
	h.WriteLocal("changed.txt", "new content")
	h.WriteLocal("added.txt", "brand new")
	h.WriteRemote("same.txt", "unchanged")
	h.WriteRemote("changed.txt", "old content")
	h.WriteRemote("stale/gone.txt", "to be deleted")

	outcome := h.Deploy(models.StrategyCompare)

	if outcome.Status != models.StatusSucceeded {
		t.Fatalf("expected success, got %s\nlog: %v", outcome.Status, outcome.Log)
	}
	if outcome.Stats.FilesUploaded != 2 {
		t.Errorf("expected 2 uploads, got %d\nlog: %v", outcome.Stats.FilesUploaded, outcome.Log)
	}
	if got := h.RemoteContent("changed.txt"); got != "new content" {
		t.Errorf("changed file not updated: %q", got)
	}
	if got := h.RemoteContent("added.txt"); got != "brand new" {
		t.Errorf("added file missing: %q", got)
	}
	if h.RemoteExists("stale/gone.txt") {
		t.Error("stale remote file not deleted")
	}
	if h.RemoteExists("stale") {
		t.Error("emptied remote directory not pruned")
	}
}

func TestCompareDeployIdempotent(t *testing.T) {
	h := NewTestHelper(t)
	h.WriteLocal("a.txt", "alpha")
	h.WriteLocal("sub/b.txt", "bravo")

	first := h.Deploy(models.StrategyCompare)
	if first.Stats.FilesUploaded == 0 {
		t.Fatal("first deploy uploaded nothing")
	}

	second := h.Deploy(models.StrategyCompare)
	if second.Stats.FilesUploaded != 0 || second.Stats.FilesDeleted != 0 {
		t.Errorf("second deploy should be a no-op, uploaded %d deleted %d\nlog: %v",
			second.Stats.FilesUploaded, second.Stats.FilesDeleted, second.Log)
	}
}

func TestChangedDeploy(t *testing.T) {
	h := NewTestHelper(t)
	changed := h.WriteLocal("edited.txt", "v2")
	h.WriteLocal("untouched.txt", "v1")

	h.tracker.OnFileEvent(h.workspace, changed, tracker.EventModified)

	outcome := h.Deploy(models.StrategyChanged)

	if outcome.Stats.FilesUploaded != 1 {
		t.Fatalf("expected 1 upload, got %d", outcome.Stats.FilesUploaded)
	}
	if got := h.RemoteContent("edited.txt"); got != "v2" {
		t.Errorf("unexpected remote content: %q", got)
	}
	if h.RemoteExists("untouched.txt") {
		t.Error("untracked file was deployed")
	}
	if pending := h.tracker.Pending(h.workspace); len(pending) != 0 {
		t.Errorf("pending set not cleared after success: %v", pending)
	}
}

func TestCompareDryRunAgainstMissingRemote(t *testing.T) {
	h := NewTestHelper(t)
	h.WriteLocal("a.txt", "alpha")
	h.WriteLocal("sub/b.txt", "bravo")
	missing := filepath.Join(t.TempDir(), "not-created-yet")

	outcome, err := h.Orchestrator().Deploy(context.Background(), models.DeployRequest{
		WorkspaceRoot: h.workspace,
		RemotePath:    missing,
		Strategy:      models.StrategyCompare,
		DryRun:        true,
	})
	if err != nil {
		t.Fatalf("dry run failed: %v\nlog: %v", err, outcome.Log)
	}
	if outcome.Status != models.StatusSucceeded {
		t.Fatalf("expected success, got %s\nlog: %v", outcome.Status, outcome.Log)
	}
	if outcome.Stats.FilesSkipped != 2 {
		t.Errorf("expected 2 planned uploads, got %d\nlog: %v", outcome.Stats.FilesSkipped, outcome.Log)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("dry run created the remote target")
	}
}

func TestDryRunLeavesRemoteUntouched(t *testing.T) {
	h := NewTestHelper(t)
	h.WriteLocal("a.txt", "alpha")

	outcome, err := h.Orchestrator().Deploy(context.Background(), models.DeployRequest{
		WorkspaceRoot: h.workspace,
		RemotePath:    h.remoteDir,
		Strategy:      models.StrategyAll,
		DryRun:        true,
	})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if outcome.Status != models.StatusSucceeded {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if h.RemoteExists("a.txt") {
		t.Error("dry run transferred a file")
	}
}
