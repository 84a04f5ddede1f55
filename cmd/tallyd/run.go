package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tally-hq/tally/pkg/config"
	"tally-hq/tally/pkg/ingest"
	"tally-hq/tally/pkg/ledger"
	"tally-hq/tally/pkg/limits/admission"
	"tally-hq/tally/pkg/limits/ratelimit"
	"tally-hq/tally/pkg/parse"
	"tally-hq/tally/pkg/server"
	"tally-hq/tally/pkg/telemetry/health"
	"tally-hq/tally/pkg/telemetry/logging"
	"tally-hq/tally/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ingestion core",
	Long: `Start the ingestion core with the specified configuration.

Examples:
  # Start with default config
  tallyd run

  # Start with custom config
  tallyd run --config /etc/tally/config.yaml

  # Validate config without starting
  tallyd run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile, rootCmd.PersistentFlags().Changed("config"))
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage backend.
	var store ledger.Store
	switch cfg.Ledger.Backend {
	case "sqlite":
		store, err = ledger.NewSQLiteStoreWithConfig(ledger.SQLiteConfig{
			Path:        cfg.Ledger.DBPath,
			BusyTimeout: cfg.Ledger.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to open ledger store: %w", err)
		}
	case "memory":
		store = ledger.NewMemoryStore()
	default:
		return fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
	defer store.Close()

	gate := admission.New(cfg.Limits.MaxStoreConcurrent)
	svc := ledger.NewService(store, gate, logger, cfg.SuperAdminIDs)

	var chatLimiter, userLimiter *ratelimit.Limiter
	if cfg.Limits.ChatMessagesPerMinute > 0 {
		chatLimiter = ratelimit.New(cfg.Limits.ChatMessagesPerMinute, time.Minute)
	}
	if cfg.Limits.UserParsesPerMinute > 0 {
		userLimiter = ratelimit.New(cfg.Limits.UserParsesPerMinute, time.Minute)
	}

	// Telemetry.
	monitor := health.NewMonitor()
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
		collector.ObserveAdmission(gate.Stats)
		if chatLimiter != nil {
			collector.ObserveRateLimiter("chat", chatLimiter.Stats)
		}
		if userLimiter != nil {
			collector.ObserveRateLimiter("user", userLimiter.Stats)
		}
	}

	// Ingestion pipeline.
	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Ledger:        svc,
		Extractor:     parse.NewExtractor(cfg.Parse.Keywords...),
		ChatLimiter:   chatLimiter,
		UserLimiter:   userLimiter,
		QueueCapacity: cfg.Queue.Capacity,
		Workers:       cfg.Queue.Workers,
		Logger:        logger,
		Sink:          outcomeSink(monitor),
		Monitor:       pipelineMonitor(collector),
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer pipeline.Stop()

	if collector != nil {
		collector.ObserveQueue(pipeline.QueueStats)
	}

	// Retention janitor, with limiter sweeps piggybacked on its schedule.
	janitor := ledger.NewJanitor(store, logger, ledger.JanitorConfig{
		RetentionDays: cfg.Ledger.RetentionDays,
		Schedule:      cfg.Ledger.PruneSchedule,
	})
	if chatLimiter != nil {
		janitor.RegisterSweep(chatLimiter.Sweep)
	}
	if userLimiter != nil {
		janitor.RegisterSweep(userLimiter.Sweep)
	}
	if err := janitor.Start(); err != nil {
		return fmt.Errorf("failed to start retention janitor: %w", err)
	}
	defer janitor.Stop()

	// Configuration hot reload for the tunable limits.
	go watchConfig(ctx, logger, chatLimiter, userLimiter)

	// Admin HTTP server.
	errCh := make(chan error, 1)
	if cfg.Admin.Enabled {
		checker := health.NewChecker()
		checker.Register("store", func(ctx context.Context) error {
			_, err := store.GetGroup(ctx, 0)
			return err
		})
		checker.Register("queue", func(context.Context) error {
			if !pipeline.QueueStats().Running {
				return fmt.Errorf("queue not running")
			}
			return nil
		})

		var metricsHandler http.Handler
		if collector != nil {
			metricsHandler = collector.Handler()
		}

		stats := server.StatsSources{
			Admission: gate.Stats,
			Queue:     pipeline.QueueStats,
			Runtime:   monitor.Snapshot,
		}
		if chatLimiter != nil {
			stats.ChatLimiter = chatLimiter.Stats
		}
		if userLimiter != nil {
			stats.UserLimiter = userLimiter.Stats
		}

		admin := server.New(cfg.Admin, logger, checker, metricsHandler, stats, Version)
		go func() { errCh <- admin.Run(ctx) }()
	}

	logger.Info("tallyd started",
		slog.String("version", Version),
		slog.String("backend", cfg.Ledger.Backend),
		slog.Int("max_store_concurrent", cfg.Limits.MaxStoreConcurrent),
		slog.Int("queue_capacity", cfg.Queue.Capacity),
		slog.Int("queue_workers", cfg.Queue.Workers),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if cfg.Admin.Enabled {
			if err := <-errCh; err != nil {
				return err
			}
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// loadConfig loads the given file, falling back to pure defaults when the
// path was not set explicitly and does not exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Parse([]byte("{}"))
	}
	return nil, err
}

// watchConfig applies hot-reloadable settings. Only the rate limit
// allowances change at runtime; everything else needs a restart.
func watchConfig(ctx context.Context, logger *slog.Logger, chatLimiter, userLimiter *ratelimit.Limiter) {
	if _, err := os.Stat(cfgFile); err != nil {
		return
	}

	w := config.NewWatcher(cfgFile, logger)
	err := w.Watch(ctx, func(cfg *config.Config) {
		if chatLimiter != nil && cfg.Limits.ChatMessagesPerMinute > 0 {
			chatLimiter.SetMaxRequests(cfg.Limits.ChatMessagesPerMinute)
		}
		if userLimiter != nil && cfg.Limits.UserParsesPerMinute > 0 {
			userLimiter.SetMaxRequests(cfg.Limits.UserParsesPerMinute)
		}
	})
	if err != nil {
		logger.Error("configuration watcher failed", slog.Any("error", err))
	}
}

// outcomeSink feeds the runtime monitor from pipeline outcomes.
func outcomeSink(monitor *health.Monitor) ingest.Sink {
	return func(o ingest.Outcome) {
		monitor.RecordMessage()
		if o.Kind == ingest.OutcomeError {
			monitor.RecordError()
		}
	}
}

// pipelineMonitor returns the metrics collector when enabled; otherwise a
// no-op so the pipeline takes its internal default.
func pipelineMonitor(collector *metrics.Collector) ingest.Monitor {
	if collector == nil {
		return nil
	}
	return collector
}
