package buffer

import "sync"

// deque is a fixed-capacity circular buffer. Not safe for concurrent use;
// Ring holds the lock.
type deque[T any] struct {
	buf   []T
	head  int // read position
	count int
}

func (d *deque[T]) push(item T) (evicted bool) {
	cap := len(d.buf)
	if d.count == cap {
		// Full: overwrite the oldest slot and advance head.
		d.buf[d.head] = item
		d.head = (d.head + 1) % cap
		return true
	}
	d.buf[(d.head+d.count)%cap] = item
	d.count++
	return false
}

// linearize copies the deque contents into a fresh slice in insertion order.
func (d *deque[T]) linearize() []T {
	out := make([]T, d.count)
	cap := len(d.buf)
	for i := 0; i < d.count; i++ {
		out[i] = d.buf[(d.head+i)%cap]
	}
	return out
}

func (d *deque[T]) reset() {
	d.head = 0
	d.count = 0
}

// Ring is a thread-safe double ring buffer with fixed capacity.
//
// Append never blocks: once the active deque is full, the oldest entry is
// evicted. Drain swaps the active and drain deques and returns the swapped-out
// contents, which the caller owns exclusively. No item is ever observed twice
// through Drain.
type Ring[T any] struct {
	mu     sync.Mutex
	active *deque[T]
	spare  *deque[T]

	// Stats
	totalAppended int64
	totalEvicted  int64
}

// NewRing creates a ring with the given capacity (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		active: &deque[T]{buf: make([]T, capacity)},
		spare:  &deque[T]{buf: make([]T, capacity)},
	}
}

// Append adds an item, evicting the oldest if the buffer is at capacity.
// O(1); never blocks, never fails.
func (r *Ring[T]) Append(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active.push(item) {
		r.totalEvicted++
	}
	r.totalAppended++
}

// Drain atomically swaps the active and drain deques and returns everything
// that was active at the moment of the swap, in append order.
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := r.active
	r.active = r.spare
	r.spare = drained

	out := drained.linearize()
	drained.reset()
	return out
}

// Snapshot returns up to the most recent n items without consuming them.
// n <= 0 returns everything currently active.
func (r *Ring[T]) Snapshot(n int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	skip := 0
	if n > 0 && n < r.active.count {
		skip = r.active.count - n
	}
	cap := len(r.active.buf)
	out := make([]T, r.active.count-skip)
	for i := range out {
		out[i] = r.active.buf[(r.active.head+skip+i)%cap]
	}
	return out
}

// Len returns the number of items currently active.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.count
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active.buf)
}

// Stats returns cumulative append/evict counters.
func (r *Ring[T]) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RingStats{
		Len:           r.active.count,
		Capacity:      len(r.active.buf),
		TotalAppended: r.totalAppended,
		TotalEvicted:  r.totalEvicted,
	}
}

// RingStats contains ring buffer statistics.
type RingStats struct {
	Len           int
	Capacity      int
	TotalAppended int64
	TotalEvicted  int64
}
