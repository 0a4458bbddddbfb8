package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, format Format, level Level) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remsync.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   path,
		Format: format,
		Level:  level,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	return logger, path
}

// TestFileLoggerJSON tests JSON formatted entries
func TestFileLoggerJSON(t *testing.T) {
	logger, path := newTestLogger(t, FormatJSON, InfoLevel)
	ctx := context.Background()

	logger.Info(ctx, "deployment started", Fields{"workspace": "/ws", "strategy": "compare"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry["message"] != "deployment started" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["strategy"] != "compare" {
		t.Errorf("strategy = %v", entry["strategy"])
	}
}

// TestFileLoggerText tests text formatted entries
func TestFileLoggerText(t *testing.T) {
	logger, path := newTestLogger(t, FormatText, InfoLevel)
	ctx := context.Background()

	logger.Error(ctx, "transfer failed", os.ErrPermission, Fields{"path": "a.txt"})
	logger.Close()

	data, _ := os.ReadFile(path)
	line := string(data)
	if !strings.Contains(line, "[ERROR]") {
		t.Errorf("missing level tag: %s", line)
	}
	if !strings.Contains(line, "transfer failed") {
		t.Errorf("missing message: %s", line)
	}
	if !strings.Contains(line, "path=a.txt") {
		t.Errorf("missing field: %s", line)
	}
}

// TestFileLoggerLevelFiltering tests minimum level enforcement
func TestFileLoggerLevelFiltering(t *testing.T) {
	logger, path := newTestLogger(t, FormatText, WarnLevel)
	ctx := context.Background()

	logger.Debug(ctx, "dropped", nil)
	logger.Info(ctx, "dropped too", nil)
	logger.Warn(ctx, "kept", nil)
	logger.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Count(string(data), "\n")
	if lines != 1 {
		t.Errorf("wrote %d lines, want 1", lines)
	}
}

// TestWithFields tests field inheritance
func TestWithFields(t *testing.T) {
	logger, path := newTestLogger(t, FormatJSON, InfoLevel)
	ctx := context.Background()

	child := logger.WithFields(Fields{"deployment_id": "abc123"})
	child.Info(ctx, "uploading", Fields{"file": "main.go"})
	logger.Close()

	data, _ := os.ReadFile(path)
	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["deployment_id"] != "abc123" {
		t.Errorf("inherited field lost: %v", entry)
	}
	if entry["file"] != "main.go" {
		t.Errorf("call-site field lost: %v", entry)
	}
}

// TestParseLevel tests level parsing
func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestNewFileLoggerRequiresPath tests config validation
func TestNewFileLoggerRequiresPath(t *testing.T) {
	if _, err := NewFileLogger(FileLoggerConfig{}); err == nil {
		t.Error("NewFileLogger() should fail without a path")
	}
}
