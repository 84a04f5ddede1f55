package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally-hq/tally/pkg/config"
	"tally-hq/tally/pkg/limits/admission"
	"tally-hq/tally/pkg/queue"
	"tally-hq/tally/pkg/telemetry/health"
)

func newTestServer() *AdminServer {
	gate := admission.New(2)
	q := queue.New[int](8, 1, nil)
	monitor := health.NewMonitor()

	return New(
		config.AdminConfig{ListenAddress: "127.0.0.1:0", ShutdownTimeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		health.NewChecker(),
		nil,
		StatsSources{
			Admission: gate.Stats,
			Queue:     q.Stats,
			Runtime:   monitor.Snapshot,
		},
		"1.2.3",
	)
}

func TestAdminServer_Routes(t *testing.T) {
	s := newTestServer()
	handler := s.routes()

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/statsz", http.StatusOK},
		{"/version", http.StatusOK},
		{"/metrics", http.StatusNotFound}, // no metrics handler wired
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestAdminServer_StatszBody(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/statsz", nil))

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("statsz is not JSON: %v", err)
	}
	for _, key := range []string{"admission", "queue", "runtime"} {
		if _, ok := body[key]; !ok {
			t.Errorf("statsz missing %q section", key)
		}
	}
	if _, ok := body["chat_limiter"]; ok {
		t.Error("statsz includes unwired limiter section")
	}
}

func TestAdminServer_Version(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/version", nil))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["version"] != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", body["version"])
	}
}

func TestAdminServer_RunStopsOnCancel(t *testing.T) {
	s := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let the listener come up, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
