package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping verdicts for audit ordering.
//
// Every verdict carries a strictly increasing seq number from this clock,
// so the audit log reflects acceptance order without wall-clock races.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// engine's single-worker design means only one goroutine calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to resume audit ordering from a persisted log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
