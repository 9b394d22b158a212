package manager

import (
	"bufio"
	"context"
	"strings"
	"time"

	"geminid/internal/gencli"
	"geminid/pkg/types"
)

// maxLineBytes is the scanner buffer ceiling for one tool output line.
const maxLineBytes = 1024 * 1024

// StreamEvent kinds. Exactly one terminal event (done or error) ends every
// stream; nothing follows it and the channel is then closed.
const (
	StreamData  = "data"
	StreamDone  = "done"
	StreamError = "error"
)

// StreamEvent is one server-push event of a streaming generation.
type StreamEvent struct {
	Kind string
	// Data carries the trimmed output line for data events and the failure
	// detail for error events.
	Data string
}

// Stream runs one streaming generation. Pre-spawn failures (unknown model,
// backpressure, a canceled queued waiter) return an error and no channel.
// From spawn onwards every outcome is delivered on the returned channel:
// one data event per complete stdout line in arrival order (lines are
// trimmed and blank lines, carrying no content, are skipped), a trailing
// partial line flushed at process end, then a single terminal event. A spawn
// failure yields one terminal error event. Stderr is never forwarded; it
// goes to the server log.
func (m *Manager) Stream(ctx context.Context, req types.GenerateRequest) (<-chan StreamEvent, error) {
	model, err := m.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	genID := newGenID()
	release, err := m.adm.Acquire(ctx, genID)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, 8)
	args := gencli.BuildArgs(req.Messages, model, true)
	p, err := spawnProcess(m.command, args, genID, m.publisher)
	if err != nil {
		release()
		observeOutcome(outcomeSpawnFailure, 0)
		events <- StreamEvent{Kind: StreamError, Data: err.Error()}
		close(events)
		return events, nil
	}
	go m.relay(ctx, p, events, release, genID)
	return events, nil
}

// relay owns the process from spawn to termination: it forwards stdout lines
// as data events, drains stderr to the log, reaps the process, releases the
// slot, and closes the channel after the terminal event.
func (m *Manager) relay(ctx context.Context, p *process, events chan<- StreamEvent, release func(), genID string) {
	start := time.Now()
	defer close(events)
	defer release()

	// Caller disconnect kills the process so compute is not wasted.
	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.Kill(KillDisconnect)
		case <-stopWatch:
		}
	}()
	defer close(stopWatch)

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		sc := bufio.NewScanner(p.Stderr())
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				m.log.Debug().Str("gen_id", genID).Str("stream", "stderr").Msg(line)
			}
		}
		if sc.Err() != nil {
			// A stderr line past the scanner cap leaves the tool blocked
			// writing into a full pipe; kill it so the relay can reap.
			p.Kill(KillOverrun)
		}
	}()

	disconnected := false
	sc := bufio.NewScanner(p.Stdout())
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case events <- StreamEvent{Kind: StreamData, Data: line}:
		case <-ctx.Done():
			disconnected = true
		}
		if disconnected {
			break
		}
	}
	if err := sc.Err(); err != nil {
		// A line past maxLineBytes stops the scanner while the tool is still
		// blocked writing the rest of it; without a kill the process never
		// exits, finish never returns, and the slot is held forever. Kill is
		// idempotent, so a pipe torn down by an earlier kill is harmless here.
		p.Kill(KillOverrun)
		m.log.Warn().Str("gen_id", genID).Err(err).Msg("stdout scan aborted")
	}
	<-stderrDone
	p.finish()

	elapsed := time.Since(start).Seconds()
	if disconnected || ctx.Err() != nil {
		// No further events after disconnect is observed.
		observeOutcome(outcomeDisconnect, elapsed)
		return
	}
	if p.State() == ProcKilled && p.KilledBy() == KillOverrun {
		observeOutcome(outcomeOverrun, elapsed)
		events <- StreamEvent{Kind: StreamError, Data: "tool emitted an output line larger than the relay accepts"}
		return
	}
	if p.ExitCode() != 0 {
		observeOutcome(outcomeCLIError, elapsed)
	} else {
		observeOutcome(outcomeOK, elapsed)
	}
	// Terminal marker is emitted for every natural termination, success or
	// not; mid-stream failures can only change the tail of the stream.
	events <- StreamEvent{Kind: StreamDone}
}
