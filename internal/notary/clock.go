package notary

import "sync/atomic"

// Clock numbers admissions. Admission order is the only total order in the
// system, so numbers never come from wall time.
//
// A number is taken only once the admission carrying it is durable: callers
// Peek, write, then Commit. A failed write leaves no gap.
type Clock struct {
	last atomic.Int64
}

// NewClock creates a clock whose last issued number is last.
func NewClock(last int64) *Clock {
	c := &Clock{}
	c.last.Store(last)
	return c
}

// Peek returns the number the next admission will carry.
func (c *Clock) Peek() int64 {
	return c.last.Load() + 1
}

// Commit marks seq as issued. It reports false unless seq directly follows
// the last issued number.
func (c *Clock) Commit(seq int64) bool {
	return c.last.CompareAndSwap(seq-1, seq)
}

// Last returns the last issued number, 0 if none.
func (c *Clock) Last() int64 {
	return c.last.Load()
}
