package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChecker_LivenessAlwaysOK(t *testing.T) {
	c := NewChecker()
	c.Register("broken", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestChecker_ReadinessReflectsChecks(t *testing.T) {
	c := NewChecker()
	c.Register("store", func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	c.Register("queue", func(context.Context) error { return errors.New("not running") })

	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", body.Status)
	}
	if body.Checks["store"].Status != "ok" {
		t.Errorf("store check = %+v, want ok", body.Checks["store"])
	}
	if body.Checks["queue"].Error != "not running" {
		t.Errorf("queue error = %q, want %q", body.Checks["queue"].Error, "not running")
	}
}

func TestMonitor_Snapshot(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < 5; i++ {
		m.RecordMessage()
	}
	m.RecordError()

	stats := m.Snapshot()
	if stats.MessagesTotal != 5 {
		t.Errorf("messages = %d, want 5", stats.MessagesTotal)
	}
	if stats.ErrorsTotal != 1 {
		t.Errorf("errors = %d, want 1", stats.ErrorsTotal)
	}
	if stats.MessagesLastMin != 5 {
		t.Errorf("last minute = %d, want 5", stats.MessagesLastMin)
	}
	if stats.UptimeSeconds < 0 {
		t.Errorf("uptime = %f, want >= 0", stats.UptimeSeconds)
	}
}
