package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepFunc releases expired per-key state held elsewhere, typically a rate
// limiter's stale entries. It returns how many entries were removed.
type SweepFunc func() int

// Janitor prunes old ledger rows and sweeps registered in-memory state on a
// cron schedule. A retention of zero days disables row pruning; registered
// sweeps still run.
type Janitor struct {
	store     Store
	logger    *slog.Logger
	retention time.Duration
	schedule  string
	sweeps    []SweepFunc
	cron      *cron.Cron
}

// JanitorConfig configures a Janitor.
type JanitorConfig struct {
	// RetentionDays is how long orders and transactions are kept. Zero
	// keeps rows forever.
	RetentionDays int

	// Schedule is a standard five-field cron expression. Defaults to
	// "17 3 * * *" (daily, off the hour to avoid thundering herds).
	Schedule string
}

// NewJanitor creates a janitor over the given store.
func NewJanitor(store Store, logger *slog.Logger, cfg JanitorConfig) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "17 3 * * *"
	}
	return &Janitor{
		store:     store,
		logger:    logger,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		schedule:  schedule,
	}
}

// RegisterSweep adds a sweep hook to run on every janitor pass. Must be
// called before Start.
func (j *Janitor) RegisterSweep(fn SweepFunc) {
	j.sweeps = append(j.sweeps, fn)
}

// Start schedules the janitor. It returns an error when the cron expression
// does not parse.
func (j *Janitor) Start() error {
	c := cron.New()
	_, err := c.AddFunc(j.schedule, func() {
		j.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	j.cron = c
	c.Start()
	j.logger.Info("retention janitor started",
		slog.String("schedule", j.schedule),
		slog.Int("retention_days", int(j.retention/(24*time.Hour))),
	)
	return nil
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.cron = nil
}

// RunOnce performs a single pass: prune aged rows, then run every
// registered sweep. Errors are logged, not returned to the scheduler.
func (j *Janitor) RunOnce(ctx context.Context) {
	if j.retention > 0 {
		cutoff := time.Now().Add(-j.retention)
		removed, err := j.store.Cleanup(ctx, cutoff)
		if err != nil {
			j.logger.Error("retention cleanup failed", slog.Any("error", err))
		} else if removed > 0 {
			j.logger.Info("retention cleanup done",
				slog.Int("rows_removed", removed),
				slog.Time("cutoff", cutoff),
			)
		}
	}

	for _, sweep := range j.sweeps {
		if n := sweep(); n > 0 {
			j.logger.Debug("sweep removed entries", slog.Int("count", n))
		}
	}
}
