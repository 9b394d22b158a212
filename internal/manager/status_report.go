package manager

import (
	"time"

	"geminid/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	inflight, waiting := m.adm.stats()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, Inflight: inflight, QueueLen: waiting, Err: m.err}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	inflight, waiting := m.adm.stats()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.StatusResponse{
		State:          string(m.state),
		MaxConcurrent:  m.adm.limit,
		Inflight:       inflight,
		QueueLen:       waiting,
		MaxQueueDepth:  m.adm.maxQueueDepth,
		TimeoutSeconds: int64(m.timeout / time.Second),
		Command:        m.command,
		DefaultModel:   m.defaultModel,
		UptimeSeconds:  int64(time.Since(m.startTime) / time.Second),
		Error:          m.err,
	}
}
