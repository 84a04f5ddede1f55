// Package metrics exposes prometheus instrumentation for the ingestion
// pipeline: message and parse counters, a parse latency histogram, and
// gauges mirroring the admission, rate limit, and queue snapshots.
package metrics
