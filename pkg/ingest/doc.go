// Package ingest is the transport-agnostic boundary of the accounting core.
//
// A transport adapter (Telegram, a test harness, a replay tool) converts its
// native update format into the Update tagged union exactly once, at the
// edge. Everything downstream works with typed contexts instead of probing
// optional nested fields.
//
// The Pipeline wires the stages together: per-chat rate limiting at intake,
// a bounded work queue for decoupling, then per-user parse limiting, amount
// extraction, and the admission-gated ledger write. Callers observe results
// through an optional Sink; the pipeline itself never replies to chats.
package ingest
