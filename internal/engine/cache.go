package engine

import "sync"

// DefaultCacheCapacity matches the hardware-sized replay cache depth.
const DefaultCacheCapacity = 256

// ReplayCache is a bounded set of recently accepted nonces.
//
// Membership is boolean: re-inserting a present value is a no-op with no
// duplicate accounting. When full, insertion evicts the least-recently
// inserted entry (FIFO). The cache is a bounded history, not exhaustive
// duplicate detection over all time; an evicted nonce would be accepted
// again. That bound is deliberate and documented, the same trade-off made
// by sliding-window replay filters.
//
// Entries never expire by time, only by eviction.
//
// Thread-safety: all methods are safe for concurrent use.
type ReplayCache struct {
	mu       sync.Mutex
	capacity int
	order    []uint32            // insertion order, oldest first
	seen     map[uint32]struct{} // membership index
}

// NewReplayCache creates a cache with the given capacity.
// Non-positive capacities fall back to DefaultCacheCapacity.
func NewReplayCache(capacity int) *ReplayCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ReplayCache{
		capacity: capacity,
		order:    make([]uint32, 0, capacity),
		seen:     make(map[uint32]struct{}, capacity),
	}
}

// Contains reports whether nonce is in the cache. Pure read.
func (c *ReplayCache) Contains(nonce uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[nonce]
	return ok
}

// Insert records nonce, evicting the oldest entry when at capacity.
// Idempotent when nonce is already present.
func (c *ReplayCache) Insert(nonce uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[nonce]; ok {
		return
	}

	if len(c.order) == c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}

	c.order = append(c.order, nonce)
	c.seen[nonce] = struct{}{}
}

// Len returns the number of cached nonces.
func (c *ReplayCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Capacity returns the configured bound.
func (c *ReplayCache) Capacity() int {
	return c.capacity
}

// Reset empties the cache. Administrative use only; never reachable from
// the validation path.
func (c *ReplayCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.seen = make(map[uint32]struct{}, c.capacity)
}
