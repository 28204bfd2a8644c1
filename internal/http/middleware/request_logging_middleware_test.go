package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type captureHandler struct {
	records []slog.Record
	levels  []slog.Level
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	h.levels = append(h.levels, r.Level)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func installCapture(t *testing.T) *captureHandler {
	t.Helper()
	orig := slog.Default()
	captured := &captureHandler{}
	slog.SetDefault(slog.New(captured))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return captured
}

func TestStructuredRequestLoggerInfoAndErrorLevels(t *testing.T) {
	captured := installCapture(t)

	r := chi.NewRouter()
	r.Use(StructuredRequestLogger)
	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/api/v1/face/verify", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })

	reqOK := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	reqOK.RemoteAddr = "198.51.100.10:3456"
	r.ServeHTTP(httptest.NewRecorder(), reqOK)

	reqErr := httptest.NewRequest(http.MethodPost, "/api/v1/face/verify", nil)
	reqErr.RemoteAddr = "198.51.100.20:7890"
	r.ServeHTTP(httptest.NewRecorder(), reqErr)

	if len(captured.records) != 2 {
		t.Fatalf("expected 2 log records, got %d", len(captured.records))
	}
	if captured.levels[0] != slog.LevelInfo {
		t.Fatalf("expected first log to be info, got %v", captured.levels[0])
	}
	if captured.levels[1] != slog.LevelError {
		t.Fatalf("expected second log to be error, got %v", captured.levels[1])
	}

	attrs := recordAttrs(captured.records[0])
	if attrs["route"] != "/api/v1/auth/login" || attrs["status"] != "200" {
		t.Fatalf("expected route/status attrs for success, got route=%q status=%q", attrs["route"], attrs["status"])
	}
	if attrs["client_ip"] == "" || attrs["duration_ms"] == "" {
		t.Fatalf("expected client_ip/duration attrs, got %+v", attrs)
	}

	attrs = recordAttrs(captured.records[1])
	if attrs["route"] != "/api/v1/face/verify" || attrs["status"] != "500" {
		t.Fatalf("expected route/status attrs for error, got route=%q status=%q", attrs["route"], attrs["status"])
	}
}

func TestStructuredRequestLoggerSkipsHealthProbes(t *testing.T) {
	captured := installCapture(t)

	r := chi.NewRouter()
	r.Use(StructuredRequestLogger)
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if len(captured.records) != 0 {
		t.Fatalf("health probes must not be logged, got %d records", len(captured.records))
	}
}

func TestStructuredRequestLoggerDoesNotLogQueryString(t *testing.T) {
	captured := installCapture(t)

	h := StructuredRequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login?password=oops", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(captured.records) != 1 {
		t.Fatalf("expected one log record, got %d", len(captured.records))
	}
	attrs := recordAttrs(captured.records[0])
	if attrs["path"] != "/api/v1/auth/login" {
		t.Fatalf("path attr must exclude the query string, got %q", attrs["path"])
	}
}

func TestStructuredRequestLoggerStatusFallbackTo200(t *testing.T) {
	captured := installCapture(t)

	h := StructuredRequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Intentionally no write header/body.
	}))

	req := httptest.NewRequest(http.MethodGet, "/none", nil)
	req.RemoteAddr = "203.0.113.8:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(captured.records) != 1 {
		t.Fatalf("expected one log record, got %d", len(captured.records))
	}
	attrs := recordAttrs(captured.records[0])
	if attrs["status"] != "200" {
		t.Fatalf("expected fallback status 200, got %q", attrs["status"])
	}
}

func recordAttrs(rec slog.Record) map[string]string {
	out := map[string]string{}
	rec.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.String()
		return true
	})
	return out
}
