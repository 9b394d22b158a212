package manager

import (
	"context"
	"sync"
)

// admission is the bounded-concurrency gate: a fixed supply of slots plus a
// FIFO queue of waiters. It is an owned state object, one per Manager, so
// tests can run independent instances side by side.
//
// Invariants:
//   - held slots never exceed limit;
//   - waiters are granted strictly in arrival order;
//   - every grant is paired with exactly one release (the returned func is
//     Once-guarded), even when the spawn that follows fails immediately.
type admission struct {
	mu            sync.Mutex
	limit         int
	maxQueueDepth int // 0 = unlimited
	inflight      int
	waiters       []*waiter
	publisher     EventPublisher
}

// waiter parks one caller until its slot is granted. The ready channel is
// closed exactly once, by release, while the waiter is still queued.
type waiter struct {
	ready chan struct{}
}

func newAdmission(limit, maxQueueDepth int, pub EventPublisher) *admission {
	return &admission{
		limit:         limit,
		maxQueueDepth: maxQueueDepth,
		publisher:     pub,
	}
}

// Acquire blocks until a slot is held or ctx is canceled. It returns a
// release func that must be called exactly once; calling it more than once is
// a no-op. Acquisition never times out on its own: bounding how long a
// generation may run is the watchdog's job, not the queue's.
func (a *admission) Acquire(ctx context.Context, genID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	// Fast path only when nobody is queued ahead of us, otherwise a release
	// racing with a new arrival could grant out of order.
	if a.inflight < a.limit && len(a.waiters) == 0 {
		a.inflight++
		a.mu.Unlock()
		slotsGrantedTotal.Inc()
		inflightGauge.Set(float64(a.snapshotInflight()))
		a.publisher.Publish(Event{Name: EventGranted, GenID: genID})
		return a.releaseOnce(genID), nil
	}
	if a.maxQueueDepth > 0 && len(a.waiters) >= a.maxQueueDepth {
		a.mu.Unlock()
		return nil, tooBusyError{}
	}
	w := &waiter{ready: make(chan struct{})}
	a.waiters = append(a.waiters, w)
	queueGauge.Set(float64(len(a.waiters)))
	a.mu.Unlock()
	a.publisher.Publish(Event{Name: EventQueued, GenID: genID})

	select {
	case <-w.ready:
		slotsGrantedTotal.Inc()
		a.publisher.Publish(Event{Name: EventGranted, GenID: genID})
		return a.releaseOnce(genID), nil
	case <-ctx.Done():
		a.mu.Lock()
		for i, q := range a.waiters {
			if q == w {
				a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
				queueGauge.Set(float64(len(a.waiters)))
				a.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		a.mu.Unlock()
		// The grant raced our cancellation: the slot is ours, hand it back
		// through the normal path so the next waiter is not starved.
		<-w.ready
		a.release(genID)
		return nil, ctx.Err()
	}
}

// releaseOnce wraps release so each grant can be released at most once.
func (a *admission) releaseOnce(genID string) func() {
	var once sync.Once
	return func() { once.Do(func() { a.release(genID) }) }
}

// release frees a slot. If someone is waiting, the slot transfers to the
// head waiter and the inflight count is unchanged; otherwise it decrements.
func (a *admission) release(genID string) {
	a.mu.Lock()
	if len(a.waiters) > 0 {
		w := a.waiters[0]
		a.waiters = a.waiters[1:]
		queueGauge.Set(float64(len(a.waiters)))
		a.mu.Unlock()
		close(w.ready)
		a.publisher.Publish(Event{Name: EventReleased, GenID: genID})
		return
	}
	a.inflight--
	a.mu.Unlock()
	inflightGauge.Set(float64(a.snapshotInflight()))
	a.publisher.Publish(Event{Name: EventReleased, GenID: genID})
}

func (a *admission) snapshotInflight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight
}

// stats returns the current inflight and queued counts.
func (a *admission) stats() (inflight, waiting int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight, len(a.waiters)
}
