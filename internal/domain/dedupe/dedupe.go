// Package dedupe provides the optional replay guard keyed by round number.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Deduper records seen round numbers.
type Deduper interface {
	// SeenAndRecord atomically checks if round was seen and records it if not.
	// Returns true if round was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, round int) bool

	Size() int64
}

// inMemoryDeduper keeps a map for lookups and a FIFO of insertion order
// for eviction when bounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[int]struct{}
	order   []int // insertion order; order[head:] is live
	head    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, round int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[round]; ok {
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.order = append(d.order, round)
	}
	d.seen[round] = struct{}{}
	d.size.Store(int64(len(d.seen)))
	return false
}

// evictOldest drops the oldest entry. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	delete(d.seen, d.order[d.head])
	d.head++
	d.compact()
}

// compact releases the consumed prefix of order once it dominates the slice.
func (d *inMemoryDeduper) compact() {
	if d.head < 1024 || d.head*2 < len(d.order) {
		return
	}
	d.order = append([]int(nil), d.order[d.head:]...)
	d.head = 0
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
