package manager

// State represents lifecycle state of the manager.
type State string

const (
	StateReady State = "ready"
	StateError State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State    State
	Inflight int
	QueueLen int
	Err      string
}
