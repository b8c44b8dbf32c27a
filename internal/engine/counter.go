package engine

import (
	"math"
	"sync"
)

// MonotonicCounter holds the last-accepted sequence value for a channel.
//
// The value never decreases over the counter's lifetime. Writes that would
// lower or repeat the value are silently ignored, matching the advisory
// register semantics of the original hardware: a rejected write is a no-op,
// not an error.
//
// Once locked, the value is immutable for the remaining lifetime. Locking
// is one-way; there is no unlock.
//
// Reaching MaxUint32 is terminal. Advance and TrySet fail closed rather
// than wrap, since wraparound would silently defeat monotonicity.
//
// Thread-safety: all methods are safe for concurrent use.
type MonotonicCounter struct {
	mu     sync.Mutex
	value  uint32
	locked bool
}

// NewMonotonicCounter creates a counter at zero, unlocked.
func NewMonotonicCounter() *MonotonicCounter {
	return &MonotonicCounter{}
}

// NewMonotonicCounterAt creates a counter starting at a specific value.
// Used to resume a channel from persisted state.
func NewMonotonicCounterAt(start uint32) *MonotonicCounter {
	return &MonotonicCounter{value: start}
}

// Advance increments the value by one and returns the new value.
// No-op when locked or saturated; the current value is returned unchanged.
func (c *MonotonicCounter) Advance() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked || c.value == math.MaxUint32 {
		return c.value
	}

	c.value++
	return c.value
}

// TrySet updates the value to candidate and returns true only when the
// counter is unlocked and candidate is strictly greater than the current
// value. Otherwise the state is left unchanged and false is returned.
//
// This is the primitive anti-rollback guarantee.
func (c *MonotonicCounter) TrySet(candidate uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked || candidate <= c.value {
		return false
	}

	c.value = candidate
	return true
}

// Lock makes the value immutable. Irreversible; no effect if already locked.
func (c *MonotonicCounter) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = true
}

// IsLocked reports whether Lock has been called.
func (c *MonotonicCounter) IsLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// Current returns the value without mutating it.
func (c *MonotonicCounter) Current() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Exhausted reports whether the counter reached MaxUint32.
// Once exhausted, every candidate fails the progression check and the
// channel must be rekeyed by a higher-level policy.
func (c *MonotonicCounter) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value == math.MaxUint32
}

// reset returns the counter to zero. Administrative use only; never
// reachable from the validation path. A locked counter stays locked and
// keeps its value: the lock is a lifetime invariant that even bootstrap
// resets do not undo.
func (c *MonotonicCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked {
		return
	}

	c.value = 0
}
