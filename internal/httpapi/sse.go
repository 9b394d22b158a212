package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter emits server-sent events in the exact wire shape clients parse:
// a data event per output line, then a single terminal done or error event.
type sseWriter struct {
	w     http.ResponseWriter
	flush func()
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	sw := &sseWriter{w: w, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		sw.flush = f.Flush
	}
	return sw
}

// Data writes one output line as an SSE data event and flushes immediately
// so clients see lines as the tool produces them.
func (s *sseWriter) Data(line string) {
	fmt.Fprintf(s.w, "data: %s\n\n", line)
	s.flush()
}

// Done writes the terminal completion marker.
func (s *sseWriter) Done() {
	fmt.Fprint(s.w, "event: done\ndata: [DONE]\n\n")
	s.flush()
}

// Error writes the terminal error event with a JSON payload.
func (s *sseWriter) Error(msg string) {
	payload, _ := json.Marshal(map[string]string{"message": msg})
	fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", payload)
	s.flush()
}
