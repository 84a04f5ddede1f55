// Package ledger persists group accounting state: running totals per chat,
// the orders that built them, and the adjustment history.
//
// Two Store implementations are provided. MemoryStore keeps everything in
// maps and is used for tests and ephemeral deployments. SQLiteStore persists
// to a single-file database (modernc.org/sqlite, WAL mode) and tolerates
// only one writer, which is why every Service mutation runs under the
// admission controller.
//
// Monetary values are decimal end-to-end and stored as exact decimal
// strings; they never pass through binary floating point.
package ledger
