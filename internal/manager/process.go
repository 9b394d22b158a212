package manager

import (
	"errors"
	"io"
	"os/exec"
	"sync"
)

// ProcState is the lifecycle state of one spawned tool process.
type ProcState int

const (
	ProcRunning ProcState = iota
	ProcExited
	ProcKilled
	ProcSpawnFailed
)

func (s ProcState) String() string {
	switch s {
	case ProcRunning:
		return "running"
	case ProcExited:
		return "exited"
	case ProcKilled:
		return "killed"
	case ProcSpawnFailed:
		return "spawn-failed"
	default:
		return "unknown"
	}
}

// KillReason records which cancellation path committed a kill first.
type KillReason int

const (
	KillNone KillReason = iota
	KillWatchdog
	KillDisconnect
	KillOverrun
)

// process wraps one running tool invocation. Its terminal state is committed
// exactly once under mu: whichever of kill and natural exit gets there first
// wins, the loser becomes a no-op. The handle is owned by the manager; the
// HTTP layer only ever sees results and events derived from it.
type process struct {
	genID  string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu         sync.Mutex
	state      ProcState
	exitCode   int
	killReason KillReason

	// done is closed once, after the terminal state is committed.
	done      chan struct{}
	publisher EventPublisher
}

// spawnProcess starts the tool with the given argv. The caller must already
// hold a slot. On failure the returned error is a spawnError carrying the OS
// cause; no handle exists and the caller's deferred release frees the slot.
func spawnProcess(command string, args []string, genID string, pub EventPublisher) (*process, error) {
	cmd := exec.Command(command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		pub.Publish(Event{Name: EventSpawnFailed, GenID: genID, Fields: map[string]any{"error": err.Error()}})
		return nil, spawnError{err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		pub.Publish(Event{Name: EventSpawnFailed, GenID: genID, Fields: map[string]any{"error": err.Error()}})
		return nil, spawnError{err: err}
	}
	if err := cmd.Start(); err != nil {
		pub.Publish(Event{Name: EventSpawnFailed, GenID: genID, Fields: map[string]any{"error": err.Error()}})
		return nil, spawnError{err: err}
	}
	p := &process{
		genID:     genID,
		cmd:       cmd,
		stdout:    stdout,
		stderr:    stderr,
		state:     ProcRunning,
		done:      make(chan struct{}),
		publisher: pub,
	}
	pub.Publish(Event{Name: EventSpawned, GenID: genID, Fields: map[string]any{"pid": cmd.Process.Pid}})
	return p, nil
}

func (p *process) PID() int { return p.cmd.Process.Pid }

func (p *process) Stdout() io.Reader { return p.stdout }
func (p *process) Stderr() io.Reader { return p.stderr }

// Done is closed when the terminal state has been committed.
func (p *process) Done() <-chan struct{} { return p.done }

// Kill requests termination. It is idempotent: the first call on a live
// process records the reason and signals the OS, every later call and any
// call after natural exit is a no-op. The recorded reason takes precedence
// over the exit code the killed process happens to die with.
func (p *process) Kill(reason KillReason) {
	p.mu.Lock()
	if p.state != ProcRunning || p.killReason != KillNone {
		p.mu.Unlock()
		return
	}
	p.killReason = reason
	p.mu.Unlock()
	_ = p.cmd.Process.Kill()
	p.publisher.Publish(Event{Name: EventKilled, GenID: p.genID, Fields: map[string]any{"reason": reason.String()}})
}

func (r KillReason) String() string {
	switch r {
	case KillWatchdog:
		return "watchdog"
	case KillDisconnect:
		return "disconnect"
	case KillOverrun:
		return "overrun"
	default:
		return "none"
	}
}

// finish must be called exactly once, after both pipes have been drained.
// It reaps the process and commits the terminal state: ProcKilled when a kill
// was recorded first, ProcExited with the code otherwise.
func (p *process) finish() {
	err := p.cmd.Wait()
	p.mu.Lock()
	if p.killReason != KillNone {
		p.state = ProcKilled
	} else {
		p.state = ProcExited
		p.exitCode = exitCodeOf(err)
	}
	state, code := p.state, p.exitCode
	p.mu.Unlock()
	close(p.done)
	p.publisher.Publish(Event{Name: EventExited, GenID: p.genID, Fields: map[string]any{"state": state.String(), "code": code}})
}

func (p *process) State() ProcState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *process) KilledBy() KillReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killReason
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	// Wait failed for a non-exit reason; treat as generic failure.
	return -1
}
