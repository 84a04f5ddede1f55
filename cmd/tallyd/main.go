// Tallyd is the ingestion core of a group-accounting chat bot.
//
// It extracts monetary totals from free-form chat text, keeps a running
// ledger per chat, and shields the SQLite store behind admission control,
// rate limiting, and a bounded work queue. Chat transports connect through
// the pkg/ingest boundary; tallyd itself only exposes the admin HTTP
// endpoints.
//
// Usage:
//
//	# Start with default configuration
//	tallyd run
//
//	# Start with a custom configuration file
//	tallyd run --config /etc/tally/config.yaml
//
//	# Show version information
//	tallyd version
package main

func main() {
	Execute()
}
