package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + generation id and optional fields via key/values.
type Event struct {
	Name   string
	GenID  string
	Fields map[string]any
}

// Event names emitted by the admission queue and process lifecycle.
const (
	EventQueued      = "queued"
	EventGranted     = "granted"
	EventReleased    = "released"
	EventSpawned     = "spawned"
	EventSpawnFailed = "spawn_failed"
	EventExited      = "exited"
	EventKilled      = "killed"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
