package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one dependency. A non-nil error marks it unhealthy.
type CheckFunc func(ctx context.Context) error

// Checker runs named readiness checks. Liveness is unconditional; readiness
// fails when any registered check fails.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewChecker creates an empty checker. Each check gets a 2 second budget.
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: 2 * time.Second,
	}
}

// Register adds a named check. Re-registering a name replaces it.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// checkResult is one check's serialized status.
type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// LivenessHandler always reports the process as alive.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}

// ReadinessHandler runs every registered check and reports 503 when any
// fails, with per-check detail in the body.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.RLock()
		checks := make(map[string]CheckFunc, len(c.checks))
		for name, fn := range c.checks {
			checks[name] = fn
		}
		c.mu.RUnlock()

		results := make(map[string]checkResult, len(checks))
		healthy := true

		for name, fn := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
			err := fn(ctx)
			cancel()

			if err != nil {
				healthy = false
				results[name] = checkResult{Status: "failed", Error: err.Error()}
			} else {
				results[name] = checkResult{Status: "ok"}
			}
		}

		status := "ready"
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"checks": results,
		})
	})
}
