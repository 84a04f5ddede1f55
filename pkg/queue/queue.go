package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyRunning is returned by Start when workers are active.
	ErrAlreadyRunning = errors.New("queue already running")

	// ErrNoHandler is returned by Start when no handler is given.
	ErrNoHandler = errors.New("queue handler must not be nil")
)

// Handler processes one dequeued item. A non-nil error is logged and the
// worker moves on; it never stops the loop.
type Handler[T any] func(ctx context.Context, item T) error

// Queue is a bounded FIFO drained by a pool of workers. Construct with New;
// the zero value is not usable.
type Queue[T any] struct {
	capacity int
	workers  int
	logger   *slog.Logger

	items chan T
	putMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	enqueued  atomic.Int64
	processed atomic.Int64
	dropped   atomic.Int64
}

// Stats is a point-in-time snapshot of queue state.
type Stats struct {
	// Workers is the configured worker count.
	Workers int `json:"workers"`

	// QueueSize is the number of items currently buffered.
	QueueSize int `json:"queue_size"`

	// MaxQueueSize is the buffer capacity.
	MaxQueueSize int `json:"max_queue_size"`

	// ProcessedCount is the number of items handed to the handler.
	ProcessedCount int64 `json:"processed_count"`

	// DroppedCount is the number of items evicted under overload.
	DroppedCount int64 `json:"dropped_count"`

	// Running reports whether workers are active.
	Running bool `json:"running"`
}

// New creates a queue with the given capacity and worker count. Values
// below 1 are clamped to 1. A nil logger falls back to slog.Default.
func New[T any](capacity, workers int, logger *slog.Logger) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue[T]{
		capacity: capacity,
		workers:  workers,
		logger:   logger,
		items:    make(chan T, capacity),
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// Stop is called.
func (q *Queue[T]) Start(handler Handler[T]) error {
	if handler == nil {
		return ErrNoHandler
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return ErrAlreadyRunning
	}
	q.running = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler, i)
	}

	q.logger.Info("work queue started",
		slog.Int("workers", q.workers),
		slog.Int("capacity", q.capacity),
	)
	return nil
}

// Stop signals all workers to exit and waits for them. In-flight handler
// calls finish; buffered items that no worker has dequeued are abandoned.
// Stop is idempotent.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
	q.logger.Info("work queue stopped")
}

// Put enqueues an item. When the buffer is full, the oldest buffered item
// is evicted first, so Put never blocks on a slow consumer.
func (q *Queue[T]) Put(item T) {
	q.putMu.Lock()
	defer q.putMu.Unlock()

	q.enqueued.Add(1)
	for {
		select {
		case q.items <- item:
			return
		default:
		}

		// Buffer full: evict the oldest item. A worker may race us to it,
		// in which case the next send attempt succeeds anyway.
		select {
		case <-q.items:
			q.dropped.Add(1)
		default:
		}
	}
}

// Stats returns a snapshot of the queue's counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()

	return Stats{
		Workers:        q.workers,
		QueueSize:      len(q.items),
		MaxQueueSize:   q.capacity,
		ProcessedCount: q.processed.Load(),
		DroppedCount:   q.dropped.Load(),
		Running:        running,
	}
}

// worker drains the queue until its context is cancelled.
func (q *Queue[T]) worker(ctx context.Context, handler Handler[T], id int) {
	defer q.wg.Done()

	q.logger.Debug("worker started", slog.Int("worker_id", id))
	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("worker stopped", slog.Int("worker_id", id))
			return
		case item := <-q.items:
			if err := handler(ctx, item); err != nil {
				q.logger.Error("handler failed",
					slog.Int("worker_id", id),
					slog.Any("error", err),
				)
			}
			q.processed.Add(1)
		}
	}
}
