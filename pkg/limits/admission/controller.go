package admission

import (
	"context"
	"sync"
)

// Controller is a counting semaphore that gates concurrent access to a
// shared resource. The zero value is not usable; construct with New.
type Controller struct {
	permits chan struct{}
	max     int

	mu     sync.Mutex
	active int64
	total  int64
}

// Stats is a point-in-time snapshot of semaphore state.
type Stats struct {
	// MaxConcurrent is the configured permit count.
	MaxConcurrent int `json:"max_concurrent"`

	// ActiveCount is the number of permits currently held.
	ActiveCount int64 `json:"active_count"`

	// TotalRequests counts every acquisition ever granted.
	TotalRequests int64 `json:"total_requests"`

	// Available is MaxConcurrent minus ActiveCount.
	Available int64 `json:"available"`
}

// New creates a controller with the given maximum concurrency.
// Values below 1 are clamped to 1.
func New(maxConcurrent int) *Controller {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Controller{
		permits: make(chan struct{}, maxConcurrent),
		max:     maxConcurrent,
	}
}

// Acquire blocks until a permit is available or ctx is done. On success the
// caller must pair it with Release on every exit path; prefer Do.
func (c *Controller) Acquire(ctx context.Context) error {
	select {
	case c.permits <- struct{}{}:
		c.mu.Lock()
		c.active++
		c.total++
		c.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire acquires a permit without blocking. Returns false when the
// controller is at capacity.
func (c *Controller) TryAcquire() bool {
	select {
	case c.permits <- struct{}{}:
		c.mu.Lock()
		c.active++
		c.total++
		c.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a permit. Unpaired calls are ignored rather than
// corrupting the permit count.
func (c *Controller) Release() {
	select {
	case <-c.permits:
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	default:
	}
}

// Do runs fn while holding a permit. The permit is released on every exit
// path, including panics unwinding through fn.
func (c *Controller) Do(ctx context.Context, fn func() error) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	defer c.Release()
	return fn()
}

// Stats returns a snapshot of the controller's counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		MaxConcurrent: c.max,
		ActiveCount:   c.active,
		TotalRequests: c.total,
		Available:     int64(c.max) - c.active,
	}
}
