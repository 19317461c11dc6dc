package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
)

// DefaultQueueSize bounds the raw-event work queue.
const DefaultQueueSize = 200_000

// dropWarnEvery rate-limits the queue-drop warning.
const dropWarnEvery = 10_000

// workQueue is a bounded queue with evict-oldest overflow. Enqueue never
// blocks the caller (the feed read loop).
type workQueue struct {
	ch      chan json.RawMessage
	evicted atomic.Int64
	dropped atomic.Int64
	logger  *slog.Logger
}

func newWorkQueue(size int, logger *slog.Logger) *workQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &workQueue{
		ch:     make(chan json.RawMessage, size),
		logger: logger,
	}
}

// Enqueue inserts an item. On overflow one oldest item is evicted and the
// insert retried; if the queue is still full the new item is dropped.
func (q *workQueue) Enqueue(raw json.RawMessage) {
	select {
	case q.ch <- raw:
		return
	default:
	}

	select {
	case <-q.ch:
		q.evicted.Add(1)
	default:
	}

	select {
	case q.ch <- raw:
		return
	default:
	}

	if n := q.dropped.Add(1); n%dropWarnEvery == 0 {
		q.logger.Warn("work queue overloaded", "dropped", n, "evicted", q.evicted.Load())
	}
}

// Dequeue blocks until an item is available or the context is cancelled.
func (q *workQueue) Dequeue(ctx context.Context) (json.RawMessage, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case raw := <-q.ch:
		return raw, true
	}
}

func (q *workQueue) Len() int { return len(q.ch) }

// Dropped counts items lost on overflow, eviction included.
func (q *workQueue) Dropped() int64 { return q.dropped.Load() + q.evicted.Load() }
