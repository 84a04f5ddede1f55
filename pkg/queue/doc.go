// Package queue provides a fixed-capacity work queue with a worker pool and
// a drop-oldest backpressure policy.
//
// Under overload the queue favors freshness over completeness: when Put
// finds the buffer full, the longest-resident item is evicted (counted in
// DroppedCount) before the new item is enqueued. This suits bursty chat
// traffic where a stale message is worth less than the one that just
// arrived.
//
// Start launches the configured number of workers; each hands items to the
// handler and logs (but survives) handler failures. Stop cancels the
// workers and waits for in-flight handler calls to finish; items still
// buffered at that point are abandoned.
package queue
