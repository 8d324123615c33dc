// Package stats holds the throughput counters shared by the generator, the
// listener, the emitters and the reporter.
package stats

import "sync/atomic"

// Counters are incremented with atomic adds and drained by the reporter with
// atomic swaps, so no increment is lost between intervals.
type Counters struct {
	lines    atomic.Uint64
	payloads atomic.Uint64
	verified atomic.Uint64
}

// Snapshot is the value of every counter at the moment it was swapped out.
type Snapshot struct {
	Lines    uint64
	Payloads uint64
	Verified uint64
}

// New creates zeroed counters.
func New() *Counters {
	return &Counters{}
}

// AddLines counts lines emitted (written to disk or sent on the wire).
func (c *Counters) AddLines(n uint64) {
	c.lines.Add(n)
}

// AddPayloads counts payloads delivered.
func (c *Counters) AddPayloads(n uint64) {
	c.payloads.Add(n)
}

// AddVerified counts lines that passed verification.
func (c *Counters) AddVerified(n uint64) {
	c.verified.Add(n)
}

// Lines returns the lines counted since the last swap.
func (c *Counters) Lines() uint64 {
	return c.lines.Load()
}

// Payloads returns the payloads counted since the last swap.
func (c *Counters) Payloads() uint64 {
	return c.payloads.Load()
}

// Swap resets every counter to zero and returns the previous values.
func (c *Counters) Swap() Snapshot {
	return Snapshot{
		Lines:    c.lines.Swap(0),
		Payloads: c.payloads.Swap(0),
		Verified: c.verified.Swap(0),
	}
}
