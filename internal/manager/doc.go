// Package manager owns admission control and the lifecycle of generation
// processes. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, model resolution.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, Snapshot).
//   - errors.go: error types and helpers (IsTimeout, IsCLIFailure, ...).
//   - admission.go: bounded-concurrency slot gate with a FIFO waiter queue.
//   - process.go: subprocess handle and its termination state machine.
//   - generate.go: buffered generation path (aggregation + watchdog).
//   - stream.go: streaming generation path (line relay to an event channel).
//   - events.go: observability event bus.
//   - status_report.go: Status/Snapshot reporting helpers.
//   - metrics.go: prometheus collectors for queueing and process outcomes.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (NewWithConfig, Ready, ListModels, Status, Generate,
// Stream). Internal types are subject to change.
package manager
