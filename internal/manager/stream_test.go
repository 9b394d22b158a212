package manager

import (
	"context"
	"testing"
	"time"
)

func collect(t *testing.T, events <-chan StreamEvent, within time.Duration) []StreamEvent {
	t.Helper()
	var got []StreamEvent
	deadline := time.After(within)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, e)
		case <-deadline:
			t.Fatalf("stream did not close; events so far: %+v", got)
		}
	}
}

// "a\nb\nc" then exit 0: the partial trailing line is flushed at process end.
func TestStream_LinesAndFlushOnEnd(t *testing.T) {
	tool := writeStubTool(t, `printf 'a\nb\nc'`)
	m := newTestManager(t, tool)
	events, err := m.Stream(context.Background(), genReq("Hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	got := collect(t, events, 5*time.Second)
	want := []StreamEvent{
		{Kind: StreamData, Data: "a"},
		{Kind: StreamData, Data: "b"},
		{Kind: StreamData, Data: "c"},
		{Kind: StreamDone},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStream_DoneAfterNonzeroExit(t *testing.T) {
	tool := writeStubTool(t, `echo partial; echo oops >&2; exit 1`)
	m := newTestManager(t, tool)
	events, err := m.Stream(context.Background(), genReq("Hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	got := collect(t, events, 5*time.Second)
	if len(got) == 0 || got[len(got)-1].Kind != StreamDone {
		t.Fatalf("terminal event must be done, got %+v", got)
	}
	// stderr is never forwarded to the caller
	for _, e := range got {
		if e.Kind == StreamData && e.Data == "oops" {
			t.Fatalf("stderr leaked into stream: %+v", got)
		}
	}
}

func TestStream_SpawnFailure(t *testing.T) {
	m := newTestManager(t, "/definitely/not/a/real/tool")
	events, err := m.Stream(context.Background(), genReq("Hi"))
	if err != nil {
		t.Fatalf("spawn failures surface as events, got %v", err)
	}
	got := collect(t, events, 2*time.Second)
	if len(got) != 1 || got[0].Kind != StreamError {
		t.Fatalf("expected single error event, got %+v", got)
	}
	if inflight, _ := m.adm.stats(); inflight != 0 {
		t.Fatalf("slot leaked on stream spawn failure")
	}
}

func TestStream_ClientDisconnectKillsProcess(t *testing.T) {
	tool := writeStubTool(t, `printf 'a\n'; exec sleep 10`)
	m := newTestManager(t, tool, func(c *ManagerConfig) { c.MaxConcurrent = 1 })
	ctx, cancel := context.WithCancel(context.Background())
	events, err := m.Stream(ctx, genReq("Hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	select {
	case e := <-events:
		if e.Kind != StreamData || e.Data != "a" {
			t.Fatalf("unexpected first event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no data event")
	}
	cancel()
	// Channel must close promptly with no terminal event after disconnect.
	start := time.Now()
	for e := range events {
		if e.Kind == StreamDone || e.Kind == StreamError {
			t.Fatalf("terminal event after disconnect: %+v", e)
		}
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("relay did not shut down promptly after disconnect")
	}
	waitFor(t, time.Second, func() bool { inflight, _ := m.adm.stats(); return inflight == 0 })
}

// A tool that never terminates its output line would otherwise block forever
// writing into a full pipe once the scanner gives up: the relay must kill it,
// emit a terminal error event, and return the slot. exec keeps the writer as
// the killed process so its pipes actually close.
func TestStream_OversizedLineKillsTool(t *testing.T) {
	tool := writeStubTool(t, `exec awk 'BEGIN { while (1) printf "a" }'`)
	m := newTestManager(t, tool, func(c *ManagerConfig) { c.MaxConcurrent = 1 })
	events, err := m.Stream(context.Background(), genReq("Hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	got := collect(t, events, 10*time.Second)
	if len(got) == 0 || got[len(got)-1].Kind != StreamError {
		t.Fatalf("expected terminal error event, got %+v", got)
	}
	waitFor(t, time.Second, func() bool { inflight, _ := m.adm.stats(); return inflight == 0 })
}

func TestStream_UnknownModel(t *testing.T) {
	m := newTestManager(t, "/bin/true")
	req := genReq("Hi")
	req.Model = "gpt-x"
	if _, err := m.Stream(context.Background(), req); !IsModelNotFound(err) {
		t.Fatalf("expected modelNotFoundError, got %v", err)
	}
}
