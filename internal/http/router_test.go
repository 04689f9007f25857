package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeshare/internal/app"
	"codeshare/internal/exec"
	"codeshare/internal/room"
	"codeshare/internal/ws"
)

type noopRunner struct{}

func (noopRunner) Execute(ctx context.Context, language, version, code string) (exec.Result, error) {
	return exec.Result{}, nil
}

func testRouter() http.Handler {
	cfg := app.Config{CORSAllow: []string{"*"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(logger, room.NewRegistry(), noopRunner{}, cfg)
	return NewRouter(cfg, hub)
}

func TestHealthEndpoints(t *testing.T) {
	h := testRouter()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: code = %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := testRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics: code = %d", rec.Code)
	}
}

func TestCORSOpen(t *testing.T) {
	h := testRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ws", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
