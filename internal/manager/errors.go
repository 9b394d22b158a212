package manager

import (
	"fmt"
	"net/http"
	"time"
)

// Failure kinds surfaced in buffered error payloads and stream error events.
const (
	KindSpawnFailure = "SPAWN_FAILURE"
	KindCLIError     = "CLI_ERROR"
	KindTimeout      = "TIMEOUT"
)

// spawnError wraps the OS error from a failed process start.
type spawnError struct{ err error }

func (e spawnError) Error() string   { return "spawn failed: " + e.err.Error() }
func (e spawnError) Unwrap() error   { return e.err }
func (e spawnError) StatusCode() int { return http.StatusInternalServerError }

// IsSpawnFailure reports whether err indicates the tool could not be started.
func IsSpawnFailure(err error) bool {
	_, ok := err.(spawnError)
	return ok
}

// cliError carries a nonzero exit and the captured stderr tail.
type cliError struct {
	exitCode int
	stderr   string
}

func (e cliError) Error() string {
	if e.stderr == "" {
		return fmt.Sprintf("tool exited with code %d", e.exitCode)
	}
	return fmt.Sprintf("tool exited with code %d: %s", e.exitCode, e.stderr)
}
func (e cliError) StatusCode() int { return http.StatusBadGateway }

// IsCLIFailure reports whether err indicates a nonzero tool exit.
func IsCLIFailure(err error) bool {
	_, ok := err.(cliError)
	return ok
}

// timeoutError signals the watchdog killed a generation exceeding its limit.
type timeoutError struct{ limit time.Duration }

func (e timeoutError) Error() string   { return "generation exceeded " + e.limit.String() }
func (e timeoutError) StatusCode() int { return http.StatusGatewayTimeout }

// IsTimeout reports whether err indicates a watchdog kill.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// tooBusyError signals queue overflow for 429 mapping. Only possible when a
// queue depth limit is configured; by default callers wait instead.
type tooBusyError struct{}

func (tooBusyError) Error() string   { return "too busy: wait queue is full" }
func (tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// modelNotFoundError is returned when a requested model id is not permitted.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string   { return "model not found: " + e.id }
func (e modelNotFoundError) StatusCode() int { return http.StatusNotFound }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// ErrModelNotFound returns an error for a model id outside the registry.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// ErrorKind maps a generation error to its wire-level failure kind.
// Empty for errors that are not generation failures (unknown model, busy).
func ErrorKind(err error) string {
	switch {
	case IsSpawnFailure(err):
		return KindSpawnFailure
	case IsCLIFailure(err):
		return KindCLIError
	case IsTimeout(err):
		return KindTimeout
	}
	return ""
}
