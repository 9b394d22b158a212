package manager

import (
	"io"
	"strings"
	"testing"
	"time"
)

func drain(t *testing.T, p *process) (string, string) {
	t.Helper()
	out, err := io.ReadAll(p.Stdout())
	if err != nil {
		out = nil
	}
	errBytes, err := io.ReadAll(p.Stderr())
	if err != nil {
		errBytes = nil
	}
	return string(out), string(errBytes)
}

func TestSpawn_CleanExit(t *testing.T) {
	tool := writeStubTool(t, `echo hello; echo diag >&2`)
	p, err := spawnProcess(tool, nil, "g", noopPublisher{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if p.PID() <= 0 {
		t.Fatalf("bad pid %d", p.PID())
	}
	out, errOut := drain(t, p)
	p.finish()
	if p.State() != ProcExited || p.ExitCode() != 0 {
		t.Fatalf("state=%s code=%d", p.State(), p.ExitCode())
	}
	if strings.TrimSpace(out) != "hello" || strings.TrimSpace(errOut) != "diag" {
		t.Fatalf("out=%q err=%q", out, errOut)
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("done channel not closed after finish")
	}
}

func TestSpawn_NonzeroExit(t *testing.T) {
	tool := writeStubTool(t, `echo boom >&2; exit 3`)
	p, err := spawnProcess(tool, nil, "g", noopPublisher{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	drain(t, p)
	p.finish()
	if p.State() != ProcExited || p.ExitCode() != 3 {
		t.Fatalf("state=%s code=%d, want exited(3)", p.State(), p.ExitCode())
	}
}

func TestSpawn_Failure(t *testing.T) {
	_, err := spawnProcess("/definitely/not/a/real/tool", nil, "g", noopPublisher{})
	if !IsSpawnFailure(err) {
		t.Fatalf("expected spawnError, got %v", err)
	}
}

func TestKill_CommitsBeforeExitCode(t *testing.T) {
	tool := writeStubTool(t, `exec sleep 10`)
	p, err := spawnProcess(tool, nil, "g", noopPublisher{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	done := make(chan struct{})
	go func() {
		drain(t, p)
		p.finish()
		close(done)
	}()
	p.Kill(KillWatchdog)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("killed process not reaped")
	}
	if p.State() != ProcKilled || p.KilledBy() != KillWatchdog {
		t.Fatalf("state=%s reason=%s", p.State(), p.KilledBy())
	}
}

func TestKill_Idempotent(t *testing.T) {
	tool := writeStubTool(t, `exec sleep 10`)
	p, err := spawnProcess(tool, nil, "g", noopPublisher{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	p.Kill(KillDisconnect)
	p.Kill(KillWatchdog) // later reason must not overwrite the first
	drain(t, p)
	p.finish()
	if p.KilledBy() != KillDisconnect {
		t.Fatalf("first kill reason lost: %s", p.KilledBy())
	}
	p.Kill(KillWatchdog) // killing a terminated process is a no-op
	if p.State() != ProcKilled {
		t.Fatalf("state=%s, want killed", p.State())
	}
}

func TestKill_AfterExitIsNoop(t *testing.T) {
	tool := writeStubTool(t, `true`)
	p, err := spawnProcess(tool, nil, "g", noopPublisher{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	drain(t, p)
	p.finish()
	p.Kill(KillWatchdog)
	if p.State() != ProcExited || p.KilledBy() != KillNone {
		t.Fatalf("exit result overwritten: state=%s reason=%s", p.State(), p.KilledBy())
	}
}
