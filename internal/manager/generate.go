package manager

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"geminid/internal/gencli"
	"geminid/pkg/types"
)

// stderrTailBytes caps the diagnostic text carried in CLI_ERROR results.
const stderrTailBytes = 4096

// Generate runs one buffered (non-streaming) generation: acquire a slot,
// spawn the tool, aggregate both output streams until the process terminates,
// and produce exactly one result. The watchdog starts at spawn; if it fires
// first the TIMEOUT outcome is final regardless of how the process then dies.
func (m *Manager) Generate(ctx context.Context, req types.GenerateRequest) (string, error) {
	model, err := m.resolveModel(req.Model)
	if err != nil {
		return "", err
	}
	genID := newGenID()
	release, err := m.adm.Acquire(ctx, genID)
	if err != nil {
		return "", err
	}
	defer release()

	args := gencli.BuildArgs(req.Messages, model, false)
	p, err := spawnProcess(m.command, args, genID, m.publisher)
	if err != nil {
		observeOutcome(outcomeSpawnFailure, 0)
		return "", err
	}
	start := time.Now()

	watchdog := time.AfterFunc(m.timeout, func() { p.Kill(KillWatchdog) })
	defer watchdog.Stop()

	// Client disconnect kills through the same idempotent path.
	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.Kill(KillDisconnect)
		case <-stopWatch:
		}
	}()
	defer close(stopWatch)

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, p.Stdout())
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, p.Stderr())
		return err
	})
	// Pipe read errors only matter for a process that terminated naturally;
	// a killed process tears its pipes down under the readers.
	copyErr := g.Wait()
	p.finish()
	watchdog.Stop()

	elapsed := time.Since(start).Seconds()
	switch p.State() {
	case ProcKilled:
		if p.KilledBy() == KillWatchdog {
			observeOutcome(outcomeTimeout, elapsed)
			m.log.Warn().Str("gen_id", genID).Dur("limit", m.timeout).Msg("generation timed out")
			return "", timeoutError{limit: m.timeout}
		}
		observeOutcome(outcomeDisconnect, elapsed)
		return "", ctx.Err()
	default:
		if code := p.ExitCode(); code != 0 {
			observeOutcome(outcomeCLIError, elapsed)
			m.log.Warn().Str("gen_id", genID).Int("code", code).Msg("tool exited nonzero")
			return "", cliError{exitCode: code, stderr: tail(stderr.String(), stderrTailBytes)}
		}
		if copyErr != nil {
			m.log.Debug().Str("gen_id", genID).Err(copyErr).Msg("pipe read error on clean exit")
		}
		observeOutcome(outcomeOK, elapsed)
		return strings.TrimSpace(stdout.String()), nil
	}
}

// tail returns at most n trailing bytes of s, trimmed.
func tail(s string, n int) string {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return strings.TrimSpace(s)
}
