// Package admission bounds the number of concurrently in-flight operations
// against a shared resource with a counting semaphore.
//
// The backing ledger store tolerates very little concurrency (SQLite has a
// single writer), so every code path that touches it first acquires a
// permit. Acquire blocks until a permit is free or the context is done;
// callers that need bounded waits pass a context with a deadline. Do wraps
// a protected section so the permit is released on every exit path.
//
//	gate := admission.New(50)
//	err := gate.Do(ctx, func() error {
//	    return store.AddOrder(ctx, order)
//	})
//
// Stats exposes live counters for the admin endpoints.
package admission
