package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestLimiter_AllowWithinWindow(t *testing.T) {
	l := New(3, time.Minute)

	const key = 7
	for i := 0; i < 3; i++ {
		if !l.Allow(key) {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if l.Allow(key) {
		t.Fatal("fourth request allowed, want denied")
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := New(2, 50*time.Millisecond)

	const key = 1
	if !l.Allow(key) || !l.Allow(key) {
		t.Fatal("initial requests denied")
	}
	if l.Allow(key) {
		t.Fatal("over-limit request allowed")
	}

	time.Sleep(70 * time.Millisecond)

	if !l.Allow(key) {
		t.Fatal("request denied after window elapsed")
	}
}

func TestLimiter_DenialNotRecorded(t *testing.T) {
	l := New(1, 50*time.Millisecond)

	const key = 3
	if !l.Allow(key) {
		t.Fatal("first request denied")
	}

	// Hammer the limiter while saturated; denials must not extend the window.
	for i := 0; i < 10; i++ {
		l.Allow(key)
		time.Sleep(time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow(key) {
		t.Fatal("denied requests extended the window")
	}
}

func TestLimiter_KeysIndependent(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Allow(1) {
		t.Fatal("key 1 denied")
	}
	if l.Allow(1) {
		t.Fatal("key 1 allowed over limit")
	}
	if !l.Allow(2) {
		t.Fatal("key 2 affected by key 1's history")
	}
}

func TestLimiter_Remaining(t *testing.T) {
	l := New(3, time.Minute)

	const key = 9
	if got := l.Remaining(key); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}

	l.Allow(key)
	l.Allow(key)

	if got := l.Remaining(key); got != 1 {
		t.Errorf("remaining = %d, want 1", got)
	}

	// Remaining must not record a request.
	if got := l.Remaining(key); got != 1 {
		t.Errorf("remaining after repeated reads = %d, want 1", got)
	}
}

func TestLimiter_Stats(t *testing.T) {
	l := New(5, time.Minute)

	l.Allow(1)
	l.Allow(2)
	l.Allow(3)

	stats := l.Stats()
	if stats.MaxRequests != 5 {
		t.Errorf("max = %d, want 5", stats.MaxRequests)
	}
	if stats.Window != time.Minute {
		t.Errorf("window = %v, want 1m", stats.Window)
	}
	if stats.ActiveKeys != 3 {
		t.Errorf("active keys = %d, want 3", stats.ActiveKeys)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(5, 30*time.Millisecond)

	l.Allow(1)
	l.Allow(2)

	time.Sleep(50 * time.Millisecond)
	l.Allow(3)

	removed := l.Sweep()
	if removed != 2 {
		t.Errorf("swept %d keys, want 2", removed)
	}
	if got := l.Stats().ActiveKeys; got != 1 {
		t.Errorf("active keys after sweep = %d, want 1", got)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(100, time.Minute)

	var wg sync.WaitGroup
	allowed := make([]int, 8)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if l.Allow(42) {
					allowed[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range allowed {
		total += n
	}
	if total != 100 {
		t.Errorf("allowed %d requests across goroutines, want exactly 100", total)
	}
}

func TestLimiter_SetMaxRequests(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Allow(1) {
		t.Fatal("first request denied")
	}
	if l.Allow(1) {
		t.Fatal("second request allowed at limit 1")
	}

	l.SetMaxRequests(3)
	if !l.Allow(1) || !l.Allow(1) {
		t.Error("raised limit not applied")
	}
	if l.Allow(1) {
		t.Error("fourth request allowed at limit 3")
	}

	if got := l.Stats().MaxRequests; got != 3 {
		t.Errorf("stats max = %d, want 3", got)
	}
}
