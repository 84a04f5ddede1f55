package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file when it changes. Events are
// debounced so editors that write in several steps trigger one reload.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		logger:   logger,
		debounce: 200 * time.Millisecond,
	}
}

// Watch blocks until ctx is cancelled, invoking onReload with the freshly
// loaded configuration after every change. Reload failures are logged and
// the previous configuration stays in effect.
//
// The parent directory is watched rather than the file itself because many
// editors replace files atomically via rename, which drops a direct watch.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("configuration watcher started", slog.String("path", w.path))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("configuration watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil

			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("configuration reload failed, keeping previous",
					slog.String("path", w.path),
					slog.Any("error", err),
				)
				continue
			}
			w.logger.Info("configuration reloaded", slog.String("path", w.path))
			onReload(cfg)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("configuration watcher error", slog.Any("error", err))
		}
	}
}
