package manager

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"geminid/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	state        State
	err          string
	registry     []types.Model
	defaultModel string

	command string
	timeout time.Duration

	adm       *admission
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time
}

// SetLogger installs a structured logger used for process diagnostics
// (stderr lines, kill decisions). Defaults to a no-op logger.
func (m *Manager) SetLogger(l zerolog.Logger) { m.log = l }

func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// resolveModel maps the request's model id (possibly empty) to a permitted id.
func (m *Manager) resolveModel(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = m.defaultModel
		if id == "" {
			return "", modelNotFoundError{id: "(unspecified)"}
		}
	}
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return id, nil
		}
	}
	return "", modelNotFoundError{id: id}
}

// newGenID returns a fresh generation id for event and log correlation.
func newGenID() string { return "gen_" + ulid.Make().String() }
