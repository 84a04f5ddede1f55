// Package server provides the admin HTTP server: health and readiness
// probes, prometheus exposition, runtime stats, and version info. It serves
// operators only; chat traffic never passes through it.
package server
