package engine

import "sync/atomic"

// Sequencer hands out strictly increasing stamps. Clock implements it;
// tests inject testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock. Every outbound push is stamped with
// its next value, so debug logs show the order pushes left and were
// confirmed in without relying on wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// A BlockSync only ever calls it from the store's goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Entities restored from a revision journal resume from the last stamp.
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
