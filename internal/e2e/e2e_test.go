package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"geminid/internal/httpapi"
	"geminid/internal/manager"
	"geminid/internal/registry"
	"geminid/pkg/types"
)

// writeStubTool writes an executable shell script standing in for the
// generation tool. Long-running scripts use exec so kill signals reach the
// command that holds the output pipes.
func writeStubTool(t *testing.T, script string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gemini")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}
	return p
}

func newServer(t *testing.T, command string, opts ...func(*manager.ManagerConfig)) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.Load([]string{"gemini-2.5-flash-lite"}, "gemini-2.5-flash-lite")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cfg := manager.ManagerConfig{
		Registry:      reg,
		DefaultModel:  "gemini-2.5-flash-lite",
		Command:       command,
		MaxConcurrent: 1,
		Timeout:       10 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func postJSON(t *testing.T, ctx context.Context, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	return resp
}

func TestE2E_BufferedGenerate(t *testing.T) {
	tool := writeStubTool(t, `echo "Hello! How can I help?"`)
	srv, _ := newServer(t, tool)

	resp := postJSON(t, context.Background(), srv.URL+"/generate", `{"messages":[{"role":"user","content":"Hi"}]}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	var body types.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Text != "Hello! How can I help?" {
		t.Fatalf("text=%q", body.Text)
	}
}

func TestE2E_StreamSSE(t *testing.T) {
	tool := writeStubTool(t, `printf 'alpha\nbeta\n'`)
	srv, _ := newServer(t, tool)

	resp := postJSON(t, context.Background(), srv.URL+"/generate", `{"messages":"hi","stream":true}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("content-type=%s", ct)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	want := "data: alpha\n\ndata: beta\n\nevent: done\ndata: [DONE]\n\n"
	if string(b) != want {
		t.Fatalf("wire mismatch:\ngot  %q\nwant %q", b, want)
	}
}

func TestE2E_CLIErrorMaps502(t *testing.T) {
	tool := writeStubTool(t, `echo "quota exceeded" >&2; exit 3`)
	srv, _ := newServer(t, tool)

	resp := postJSON(t, context.Background(), srv.URL+"/generate", `{"messages":"hi"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Kind != "CLI_ERROR" || !strings.Contains(body.Error, "quota exceeded") {
		t.Fatalf("body=%+v", body)
	}
}

func TestE2E_TimeoutMaps504(t *testing.T) {
	tool := writeStubTool(t, `exec sleep 10`)
	srv, _ := newServer(t, tool, func(cfg *manager.ManagerConfig) {
		cfg.Timeout = 100 * time.Millisecond
	})

	resp := postJSON(t, context.Background(), srv.URL+"/generate", `{"messages":"hi"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Kind != "TIMEOUT" {
		t.Fatalf("body=%+v", body)
	}
}

func TestE2E_ModelNotFound404(t *testing.T) {
	tool := writeStubTool(t, `echo hi`)
	srv, _ := newServer(t, tool)

	resp := postJSON(t, context.Background(), srv.URL+"/generate", `{"model":"gpt-x","messages":"hi"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestE2E_Backpressure429(t *testing.T) {
	tool := writeStubTool(t, `exec sleep 5`)
	srv, mgr := newServer(t, tool, func(cfg *manager.ManagerConfig) {
		cfg.MaxConcurrent = 1
		cfg.MaxQueueDepth = 1
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Occupy the slot, then the queue, then expect rejection. The parked
	// clients may see their requests canceled, so errors are ignored.
	fire := func(body string) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/generate", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if resp, err := http.DefaultClient.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	go fire(`{"messages":"one"}`)
	waitForStatus(t, mgr, func(st types.StatusResponse) bool { return st.Inflight == 1 })
	go fire(`{"messages":"two"}`)
	waitForStatus(t, mgr, func(st types.StatusResponse) bool { return st.QueueLen == 1 })

	resp := postJSON(t, context.Background(), srv.URL+"/generate", `{"messages":"three"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	// Disconnect the parked clients so their processes die before Close.
	cancel()
	waitForStatus(t, mgr, func(st types.StatusResponse) bool { return st.Inflight == 0 })
}

func TestE2E_StatusEndpoint(t *testing.T) {
	tool := writeStubTool(t, `echo hi`)
	srv, _ := newServer(t, tool)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var st types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.State != "ready" || st.MaxConcurrent != 1 || st.DefaultModel != "gemini-2.5-flash-lite" {
		t.Fatalf("status=%+v", st)
	}
}

func waitForStatus(t *testing.T, mgr *manager.Manager, cond func(types.StatusResponse) bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond(mgr.Status()) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met, status=%+v", mgr.Status())
}
