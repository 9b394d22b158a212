package types

// StatusResponse is the payload for GET /status.
type StatusResponse struct {
	// Lifecycle state of the daemon (ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Configured concurrency limit for generation processes.
	// example: 2
	MaxConcurrent int `json:"max_concurrent" example:"2"`
	// Number of generation processes currently running.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Number of callers parked waiting for a slot.
	// example: 3
	QueueLen int `json:"queue_len" example:"3"`
	// Maximum queued callers before backpressure triggers; 0 means unlimited.
	// example: 0
	MaxQueueDepth int `json:"max_queue_depth" example:"0"`
	// Per-request watchdog timeout in seconds.
	// example: 120
	TimeoutSeconds int64 `json:"timeout_seconds" example:"120"`
	// Command the daemon spawns for generations.
	// example: gemini
	Command string `json:"command" example:"gemini"`
	// Server default model id.
	// example: gemini-2.5-flash-lite
	DefaultModel string `json:"default_model" example:"gemini-2.5-flash-lite"`
	// Uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Last fatal configuration error, if any.
	Error string `json:"error,omitempty"`
}
