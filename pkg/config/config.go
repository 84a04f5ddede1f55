package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the root configuration for tallyd.
type Config struct {
	// Ledger configures the persistence backend and retention.
	Ledger LedgerConfig `yaml:"ledger"`

	// Limits configures admission control and rate limiting.
	Limits LimitsConfig `yaml:"limits"`

	// Queue configures the ingestion work queue.
	Queue QueueConfig `yaml:"queue"`

	// Parse configures amount extraction.
	Parse ParseConfig `yaml:"parse"`

	// Admin configures the admin HTTP server.
	Admin AdminConfig `yaml:"admin"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// SuperAdminIDs are user IDs with admin rights in every chat.
	SuperAdminIDs []int64 `yaml:"super_admin_ids"`
}

// LedgerConfig configures the ledger store.
type LedgerConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// DBPath is the SQLite database file. Ignored for the memory backend.
	DBPath string `yaml:"db_path"`

	// BusyTimeout is how long SQLite waits for locks.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how long orders and transactions are kept.
	// Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the janitor's cron expression (five fields).
	PruneSchedule string `yaml:"prune_schedule"`
}

// LimitsConfig configures the concurrency and rate limits.
type LimitsConfig struct {
	// MaxStoreConcurrent caps concurrent ledger operations.
	MaxStoreConcurrent int `yaml:"max_store_concurrent"`

	// ChatMessagesPerMinute throttles message intake per chat.
	// Zero disables the chat limiter.
	ChatMessagesPerMinute int `yaml:"chat_messages_per_minute"`

	// UserParsesPerMinute throttles parse attempts per user.
	// Zero disables the user limiter.
	UserParsesPerMinute int `yaml:"user_parses_per_minute"`
}

// QueueConfig sizes the ingestion queue.
type QueueConfig struct {
	// Capacity is the buffered item count before drop-oldest kicks in.
	Capacity int `yaml:"capacity"`

	// Workers is the number of concurrent queue consumers.
	Workers int `yaml:"workers"`
}

// ParseConfig configures extraction.
type ParseConfig struct {
	// Keywords override the default anchor keywords when non-empty.
	Keywords []string `yaml:"keywords"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig groups logging and metrics settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// ApplyDefaults fills unset fields with production defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "sqlite"
	}
	if cfg.Ledger.DBPath == "" {
		cfg.Ledger.DBPath = "tally.db"
	}
	if cfg.Ledger.BusyTimeout == 0 {
		cfg.Ledger.BusyTimeout = 5 * time.Second
	}
	if cfg.Ledger.PruneSchedule == "" {
		cfg.Ledger.PruneSchedule = "17 3 * * *"
	}

	if cfg.Limits.MaxStoreConcurrent == 0 {
		cfg.Limits.MaxStoreConcurrent = 2
	}
	if cfg.Limits.ChatMessagesPerMinute == 0 {
		cfg.Limits.ChatMessagesPerMinute = 20
	}
	if cfg.Limits.UserParsesPerMinute == 0 {
		cfg.Limits.UserParsesPerMinute = 10
	}

	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 1000
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}

	if cfg.Admin.ListenAddress == "" {
		cfg.Admin.ListenAddress = ":8081"
	}
	if cfg.Admin.ShutdownTimeout == 0 {
		cfg.Admin.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "tally"
	}
}

// Validate checks the configuration for inconsistencies. It assumes defaults
// have already been applied.
func Validate(cfg *Config) error {
	switch cfg.Ledger.Backend {
	case "sqlite":
		if cfg.Ledger.DBPath == "" {
			return fmt.Errorf("ledger.db_path is required for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("ledger.backend must be sqlite or memory, got %q", cfg.Ledger.Backend)
	}

	if cfg.Ledger.RetentionDays < 0 {
		return fmt.Errorf("ledger.retention_days must not be negative, got %d", cfg.Ledger.RetentionDays)
	}
	if _, err := cron.ParseStandard(cfg.Ledger.PruneSchedule); err != nil {
		return fmt.Errorf("ledger.prune_schedule is not a valid cron expression: %w", err)
	}

	if cfg.Limits.MaxStoreConcurrent < 1 {
		return fmt.Errorf("limits.max_store_concurrent must be at least 1, got %d", cfg.Limits.MaxStoreConcurrent)
	}
	if cfg.Limits.ChatMessagesPerMinute < 0 {
		return fmt.Errorf("limits.chat_messages_per_minute must not be negative")
	}
	if cfg.Limits.UserParsesPerMinute < 0 {
		return fmt.Errorf("limits.user_parses_per_minute must not be negative")
	}

	if cfg.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be at least 1, got %d", cfg.Queue.Capacity)
	}
	if cfg.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1, got %d", cfg.Queue.Workers)
	}

	if cfg.Admin.Enabled && cfg.Admin.ListenAddress == "" {
		return fmt.Errorf("admin.listen_address is required when the admin server is enabled")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be debug, info, warn, or error, got %q",
			cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text, got %q",
			cfg.Telemetry.Logging.Format)
	}

	return nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}
