package manager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"geminid/pkg/types"
)

// writeStubTool writes an executable shell script standing in for the
// generation tool. Scripts that must die promptly on kill use exec so the
// signal reaches the long-running command directly.
func writeStubTool(t *testing.T, script string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gemini")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}
	return p
}

func newTestManager(t *testing.T, command string, opts ...func(*ManagerConfig)) *Manager {
	t.Helper()
	cfg := ManagerConfig{
		Registry:      []types.Model{{ID: "gemini-2.5-flash-lite", Default: true}},
		DefaultModel:  "gemini-2.5-flash-lite",
		Command:       command,
		MaxConcurrent: 2,
		Timeout:       10 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return NewWithConfig(cfg)
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", d)
}
