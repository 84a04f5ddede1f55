package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tally.yaml")
	if err := os.WriteFile(path, []byte("ledger:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("ledger:\n  backend: memory\nqueue:\n  capacity: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Queue.Capacity != 5 {
			t.Errorf("reloaded capacity = %d, want 5", cfg.Queue.Capacity)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tally.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan *Config, 4)
	w := NewWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 20 * time.Millisecond

	go w.Watch(ctx, func(cfg *Config) { reloads <- cfg })
	time.Sleep(100 * time.Millisecond)

	// Invalid config: reload must not fire.
	if err := os.WriteFile(path, []byte("ledger:\n  backend: postgres\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloads:
		t.Fatal("invalid config triggered a reload")
	case <-time.After(500 * time.Millisecond):
	}

	// A valid write afterwards still works.
	if err := os.WriteFile(path, []byte("queue:\n  workers: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloads:
		if cfg.Queue.Workers != 9 {
			t.Errorf("workers = %d, want 9", cfg.Queue.Workers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("valid config after invalid one did not reload")
	}
}
