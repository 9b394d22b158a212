package manager

import (
	"time"

	"geminid/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxConcurrent = 2
	defaultTimeout       = 120 * time.Second
	// defaultMaxQueueDepth of 0 means waiters queue without bound; callers
	// only wait, they are never rejected.
	defaultMaxQueueDepth = 0
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	DefaultModel string
	// Command is the external generation tool to spawn, e.g. "gemini".
	Command string
	// MaxConcurrent is the slot supply N: how many tool processes may run at once.
	MaxConcurrent int
	// MaxQueueDepth bounds the wait queue; 0 means unlimited.
	MaxQueueDepth int
	// Timeout is the per-request watchdog ceiling T for the buffered path.
	Timeout time.Duration
	// Publisher receives observability events; nil installs a no-op.
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	m := &Manager{
		state:        StateReady,
		registry:     cfg.Registry,
		defaultModel: cfg.DefaultModel,
		command:      cfg.Command,
		publisher:    pub,
		startTime:    time.Now(),
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	maxQueueDepth := cfg.MaxQueueDepth
	if maxQueueDepth < 0 {
		maxQueueDepth = defaultMaxQueueDepth
	}
	m.timeout = cfg.Timeout
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	m.adm = newAdmission(maxConcurrent, maxQueueDepth, pub)
	if m.command == "" {
		m.state = StateError
		m.err = "no generation command configured"
	}
	if len(m.registry) == 0 {
		m.state = StateError
		m.err = "no models configured"
	}
	return m
}
