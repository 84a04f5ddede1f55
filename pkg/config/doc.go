// Package config loads and validates tallyd configuration.
//
// Configuration comes from a YAML file, falls back to defaults for anything
// unset, and can be overridden per field with TALLY_* environment variables.
// The Watcher reloads the file on change so limit tuning does not require a
// restart.
package config
