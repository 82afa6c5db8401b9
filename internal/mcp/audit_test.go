package mcp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuditLogger_NilSafe(t *testing.T) {
	var a *AuditLogger
	a.Log(AuditEntry{Tool: "porewalk_runs"})
	if err := a.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
	if NewAuditLogger("") != nil {
		t.Error("NewAuditLogger(\"\") should be nil")
	}
}

func TestAuditLogger_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	a := NewAuditLogger(dir)
	if a == nil {
		t.Fatal("NewAuditLogger returned nil")
	}
	a.Log(AuditEntry{Timestamp: time.Now(), Tool: "porewalk_runs", Status: "success"})
	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	a.Log(AuditEntry{Tool: "after-close"})

	data, err := os.ReadFile(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 || !strings.Contains(string(data), `"tool":"porewalk_runs"`) {
		t.Errorf("audit log = %q", data)
	}

	info, err := os.Stat(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("audit log permissions = %o, want 600", perm)
	}
}

func TestToolParams(t *testing.T) {
	got := toolParams(map[string]any{
		"scenario": "wei",
		"config":   "simulation:\n  n: 3\n",
		"n":        3,
	})
	if got["scenario"] != "wei" || got["n"] != "3" {
		t.Errorf("toolParams = %v", got)
	}
	if got["config"] != "(set)" {
		t.Errorf("config = %q, want (set)", got["config"])
	}

	got = toolParams(map[string]any{"config": ""})
	if _, ok := got["config"]; ok {
		t.Errorf("empty config should be omitted, got %v", got)
	}
	if toolParams(nil) != nil {
		t.Error("toolParams(nil) should be nil")
	}
}

func TestAuditTool_Status(t *testing.T) {
	server, dir := setupTestServer(t)
	server.auditTool("porewalk_runs", time.Now(), errors.New("boom"), nil)
	server.audit.Close()

	data, err := os.ReadFile(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"error"`) || !strings.Contains(string(data), `"error":"boom"`) {
		t.Errorf("audit entry = %s", data)
	}
}
