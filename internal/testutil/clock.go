// Package testutil holds deterministic stand-ins for the clock and token
// sources so scenario traces are byte-identical across runs.
package testutil

import "sync"

// DeterministicClock is a resettable logical clock for trace stamping.
//
// Unlike engine.Clock it can hand out a block of numbers at once and be
// reset, so one scenario run twice yields the same seq values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Advance reserves n consecutive sequence numbers and returns the first.
// Advance(0) returns the number the next call to Next would return and
// reserves nothing.
func (c *DeterministicClock) Advance(n int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	first := c.seq + 1
	if n > 0 {
		c.seq += int64(n)
	}
	return first
}

// Current returns the last issued sequence number.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next call to Next returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
