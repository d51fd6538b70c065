package registry

import "sync/atomic"

// Clock stamps each dispatched arrival with a strictly increasing number.
//
// Arrival numbers give the journal and traces a total order over
// deliveries across all entities. They are never used to order
// application; that is the sequence number's job.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
// Used by the journal replay to continue numbering after existing rows.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next arrival number.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
