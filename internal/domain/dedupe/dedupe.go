// Package dedupe tracks recently seen submission fingerprints so that
// resubmitting an identical (player, value, timestamp) tuple is answered
// without re-running the write pipeline.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen submission fingerprints.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id, allowing the submission to be retried. Used
	// when a submission was marked seen but failed before taking effect.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of tracked fingerprints.
	Size() int64
}

// cache implements Deduper with a bounded map plus a FIFO ring of insertion
// order. When the bound is reached the oldest fingerprint is evicted.
// maxSize <= 0 disables eviction.
type cache struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	head    int // index of the oldest live slot in order
	maxSize int
}

// New creates a deduper with configuration options.
func New(opts ...Option) Deduper {
	c := &cache{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.seen = make(map[string]struct{})
	if c.maxSize > 0 {
		c.order = make([]string, 0, c.maxSize)
	}
	return c
}

func (c *cache) SeenAndRecord(_ context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}

	if c.maxSize > 0 && len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	c.seen[id] = struct{}{}
	if c.maxSize > 0 {
		c.order = append(c.order, id)
	}
	return false
}

func (c *cache) Unrecord(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// The stale slot in the order ring is tolerated; eviction skips ids
	// that are no longer in the map.
	delete(c.seen, id)
}

func (c *cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.seen))
}

// evictOldest removes the oldest fingerprint still present in the map.
// Must be called with c.mu held.
func (c *cache) evictOldest() {
	for c.head < len(c.order) {
		id := c.order[c.head]
		c.head++
		if _, ok := c.seen[id]; ok {
			delete(c.seen, id)
			break
		}
	}
	// Compact the ring once the dead prefix dominates.
	if c.head > 0 && c.head*2 >= len(c.order) {
		c.order = append(c.order[:0], c.order[c.head:]...)
		c.head = 0
	}
}
