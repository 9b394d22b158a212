package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geminid/internal/manager"
	"geminid/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Generate(ctx context.Context, req types.GenerateRequest) (string, error)
	Stream(ctx context.Context, req types.GenerateRequest) (<-chan manager.StreamEvent, error)
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(AuthMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "messages are required")
			return
		}
		for _, m := range req.Messages {
			switch m.Role {
			case "system", "user", "assistant":
			default:
				writeJSONError(w, http.StatusBadRequest, "unknown role: "+m.Role)
				return
			}
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, req.Model, req.Stream)
		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		if req.Stream {
			handleStream(joinedCtx, w, r, svc, req, lvl, start)
			return
		}
		handleBuffered(joinedCtx, w, r, svc, req, lvl, start)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleBuffered runs one aggregated generation and writes a single JSON body.
func handleBuffered(ctx context.Context, w http.ResponseWriter, r *http.Request, svc Service, req types.GenerateRequest, lvl LogLevel, start time.Time) {
	text, err := svc.Generate(ctx, req)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		if manager.IsTooBusy(err) {
			IncrementBackpressure("queue_full")
		}
		writeJSONErrorKind(w, status, err.Error(), manager.ErrorKind(err))
		logEnd(r, lvl, status, start, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.GenerateResponse{Text: text})
	logEnd(r, lvl, http.StatusOK, start, nil)
}

// handleStream relays generation output as server-sent events. Errors before
// the process spawns still map to JSON status codes; once the stream is open
// every outcome arrives as an event.
func handleStream(ctx context.Context, w http.ResponseWriter, r *http.Request, svc Service, req types.GenerateRequest, lvl LogLevel, start time.Time) {
	events, err := svc.Stream(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		if manager.IsTooBusy(err) {
			IncrementBackpressure("queue_full")
		}
		writeJSONErrorKind(w, status, err.Error(), manager.ErrorKind(err))
		logEnd(r, lvl, status, start, err)
		return
	}
	sw := newSSEWriter(w)
	for ev := range events {
		switch ev.Kind {
		case manager.StreamData:
			if lvl >= LevelDebug && zlog != nil {
				zlog.Debug().Str("path", r.URL.Path).Msg("stream> " + ev.Data)
			}
			sw.Data(ev.Data)
		case manager.StreamDone:
			sw.Done()
		case manager.StreamError:
			sw.Error(ev.Data)
		}
	}
	logEnd(r, lvl, http.StatusOK, start, nil)
}

// statusFor maps well-known manager errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func logStart(r *http.Request, lvl LogLevel, model string, stream bool) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Str("model", model).Bool("stream", stream)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("generate start")
		return
	}
	log.Printf("generate start path=%s model=%s stream=%v", r.URL.Path, model, stream)
}

func logEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo && (err == nil || lvl < LevelError) {
		return
	}
	if zlog != nil {
		z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("generate end")
		return
	}
	if err != nil {
		log.Printf("generate end status=%d dur=%s err=%v", status, time.Since(start), err)
		return
	}
	log.Printf("generate end status=%d dur=%s", status, time.Since(start))
}
