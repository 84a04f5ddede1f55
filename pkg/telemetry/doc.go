// Package telemetry groups the observability subpackages: structured
// logging, prometheus metrics, and health checking.
package telemetry
