package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and TALLY_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a configuration from raw YAML. Same defaulting, override, and
// validation sequence as Load.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies TALLY_SECTION_FIELD environment variables on top
// of the file values. Unparsable values are ignored rather than fatal.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TALLY_LEDGER_BACKEND"); val != "" {
		cfg.Ledger.Backend = val
	}
	if val := os.Getenv("TALLY_LEDGER_DB_PATH"); val != "" {
		cfg.Ledger.DBPath = val
	}
	if val := os.Getenv("TALLY_LEDGER_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Ledger.RetentionDays = i
		}
	}
	if val := os.Getenv("TALLY_LEDGER_PRUNE_SCHEDULE"); val != "" {
		cfg.Ledger.PruneSchedule = val
	}
	if val := os.Getenv("TALLY_LEDGER_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.BusyTimeout = d
		}
	}

	if val := os.Getenv("TALLY_LIMITS_MAX_STORE_CONCURRENT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Limits.MaxStoreConcurrent = i
		}
	}
	if val := os.Getenv("TALLY_LIMITS_CHAT_MESSAGES_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Limits.ChatMessagesPerMinute = i
		}
	}
	if val := os.Getenv("TALLY_LIMITS_USER_PARSES_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Limits.UserParsesPerMinute = i
		}
	}

	if val := os.Getenv("TALLY_QUEUE_CAPACITY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Queue.Capacity = i
		}
	}
	if val := os.Getenv("TALLY_QUEUE_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Queue.Workers = i
		}
	}

	if val := os.Getenv("TALLY_ADMIN_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Admin.Enabled = b
		}
	}
	if val := os.Getenv("TALLY_ADMIN_LISTEN_ADDRESS"); val != "" {
		cfg.Admin.ListenAddress = val
	}

	if val := os.Getenv("TALLY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TALLY_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("TALLY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}

	if val := os.Getenv("TALLY_SUPER_ADMIN_IDS"); val != "" {
		if ids := parseIDList(val); len(ids) > 0 {
			cfg.SuperAdminIDs = ids
		}
	}
}

// parseIDList parses a comma-separated list of user IDs. Returns nil when
// any element fails to parse, so a typo never silently drops an admin.
func parseIDList(val string) []int64 {
	parts := strings.Split(val, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}
