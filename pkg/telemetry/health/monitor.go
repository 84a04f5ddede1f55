package health

import (
	"sync"
	"sync/atomic"
	"time"
)

// Monitor tracks coarse runtime statistics for the /statsz endpoint. All
// methods are safe for concurrent use.
type Monitor struct {
	start    time.Time
	messages atomic.Int64
	errors   atomic.Int64

	mu     sync.Mutex
	recent []time.Time
}

// RuntimeStats is a point-in-time snapshot.
type RuntimeStats struct {
	UptimeSeconds   float64 `json:"uptime_seconds"`
	MessagesTotal   int64   `json:"messages_total"`
	ErrorsTotal     int64   `json:"errors_total"`
	MessagesLastMin int     `json:"messages_last_minute"`
}

// NewMonitor creates a monitor with the clock started now.
func NewMonitor() *Monitor {
	return &Monitor{start: time.Now()}
}

// RecordMessage counts one handled message.
func (m *Monitor) RecordMessage() {
	m.messages.Add(1)

	now := time.Now()
	m.mu.Lock()
	m.recent = append(m.recent, now)
	m.pruneLocked(now)
	m.mu.Unlock()
}

// RecordError counts one processing error.
func (m *Monitor) RecordError() {
	m.errors.Add(1)
}

// Snapshot returns current runtime statistics.
func (m *Monitor) Snapshot() RuntimeStats {
	now := time.Now()

	m.mu.Lock()
	m.pruneLocked(now)
	lastMinute := len(m.recent)
	m.mu.Unlock()

	return RuntimeStats{
		UptimeSeconds:   now.Sub(m.start).Seconds(),
		MessagesTotal:   m.messages.Load(),
		ErrorsTotal:     m.errors.Load(),
		MessagesLastMin: lastMinute,
	}
}

// pruneLocked drops timestamps older than one minute. Caller holds mu.
func (m *Monitor) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	keep := 0
	for keep < len(m.recent) && !m.recent[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		m.recent = append(m.recent[:0], m.recent[keep:]...)
	}
}
