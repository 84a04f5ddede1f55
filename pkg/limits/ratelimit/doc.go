// Package ratelimit implements per-key sliding-window rate limiting.
//
// Each key (a chat ID or user ID) gets an independent history of request
// timestamps. On every check, entries older than the window are pruned; the
// request is allowed and recorded only while fewer than the configured
// maximum remain. The window slides continuously rather than resetting in
// fixed buckets, so there is no reset spike at bucket boundaries.
//
// Denial is a normal boolean outcome, not an error; the caller decides
// whether to reject, queue, or warn.
//
// Histories are pruned lazily on access. Sweep removes keys whose history
// has fully expired and is meant to run periodically (the ledger janitor
// schedules it) so an open key space cannot grow without bound.
package ratelimit
