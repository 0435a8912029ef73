package schedule

import "sync/atomic"

// Clock is a monotonic logical clock. Registration stamps every node with a
// strictly increasing seq number, which serves as the deterministic
// tie-break in the execution order: units with no ordering constraint
// between them run in registration order, every time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
