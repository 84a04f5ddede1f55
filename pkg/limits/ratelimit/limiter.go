package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a per-key sliding-window rate limiter. It is safe for
// concurrent use; a single mutex guards the key map and is held only for
// the duration of a prune-and-count, never across caller work.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	history map[int64][]time.Time
}

// Stats is a point-in-time snapshot of limiter configuration and load.
type Stats struct {
	// MaxRequests is the number of requests allowed per key per window.
	MaxRequests int `json:"max_requests"`

	// Window is the sliding window duration.
	Window time.Duration `json:"time_window"`

	// ActiveKeys is the number of keys currently holding history.
	ActiveKeys int `json:"active_keys"`
}

// New creates a limiter allowing maxRequests per key within a sliding
// window. maxRequests below 1 is clamped to 1.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		history:     make(map[int64][]time.Time),
	}
}

// Allow reports whether the key may perform another request now. Allowed
// requests are recorded; denied requests are not, so a saturated key
// recovers as soon as its window slides past old entries.
func (l *Limiter) Allow(key int64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	requests := l.pruneLocked(key, now)
	if len(requests) >= l.maxRequests {
		l.history[key] = requests
		return false
	}

	l.history[key] = append(requests, now)
	return true
}

// Remaining returns how many requests the key has left in the current
// window. It prunes expired entries but records nothing.
func (l *Limiter) Remaining(key int64) int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	requests := l.pruneLocked(key, now)
	l.history[key] = requests
	return l.maxRequests - len(requests)
}

// SetMaxRequests changes the per-window allowance. Configuration hot reload
// uses this; the new value applies from the next Allow call.
func (l *Limiter) SetMaxRequests(maxRequests int) {
	if maxRequests < 1 {
		maxRequests = 1
	}
	l.mu.Lock()
	l.maxRequests = maxRequests
	l.mu.Unlock()
}

// Stats returns a snapshot of the limiter state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		MaxRequests: l.maxRequests,
		Window:      l.window,
		ActiveKeys:  len(l.history),
	}
}

// Sweep drops keys whose entire history has expired and returns how many
// were removed. Without periodic sweeps, idle keys would retain their map
// entries forever.
func (l *Limiter) Sweep() int {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, requests := range l.history {
		live := false
		for _, ts := range requests {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.history, key)
			removed++
		}
	}
	return removed
}

// pruneLocked returns the key's history with entries older than the window
// dropped. Timestamps are appended in order, so the retained suffix stays
// sorted. Caller must hold l.mu.
func (l *Limiter) pruneLocked(key int64, now time.Time) []time.Time {
	requests := l.history[key]
	cutoff := now.Add(-l.window)

	keep := 0
	for keep < len(requests) && !requests[keep].After(cutoff) {
		keep++
	}
	return requests[keep:]
}
