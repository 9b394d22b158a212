package httpapi

import (
	"context"
)

// serverBaseCtx is canceled when the daemon shuts down, so generations in
// flight are killed instead of orphaned. Background until main installs one.
var serverBaseCtx = context.Background()

// SetBaseContext installs the shutdown context joined into every request.
// A nil argument resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context done as soon as either input is, letting a
// handler treat client disconnect and daemon shutdown as one cancellation
// path. Callers must invoke cancel to release the watcher goroutine.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}
