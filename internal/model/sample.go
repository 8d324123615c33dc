// Package model defines the data structures shared across logchurn components.
package model

import (
	"fmt"
	"time"

	"github.com/GabrielNunesIT/logchurn/internal/stats"
)

// Sample is one throughput observation produced by the reporter.
type Sample struct {
	// RunID identifies the process run that produced the sample.
	RunID string

	// Timestamp is when the counters were drained.
	Timestamp time.Time

	// Interval is the time covered by the counter deltas.
	Interval time.Duration

	// Lines, Payloads and Verified are the counter deltas for the interval.
	Lines    uint64
	Payloads uint64
	Verified uint64

	// Pending is the number of lines written but not yet verified, or -1
	// when the run has no ledger.
	Pending int
}

// NewSample creates a sample from drained counters.
func NewSample(runID string, interval time.Duration, snap stats.Snapshot, pending int) *Sample {
	return &Sample{
		RunID:     runID,
		Timestamp: time.Now(),
		Interval:  interval,
		Lines:     snap.Lines,
		Payloads:  snap.Payloads,
		Verified:  snap.Verified,
		Pending:   pending,
	}
}

// HasLedger reports whether Pending carries a ledger size.
func (s *Sample) HasLedger() bool {
	return s.Pending >= 0
}

// PerSecond normalizes a counter delta to the sample interval.
func (s *Sample) PerSecond(n uint64) float64 {
	if s.Interval <= 0 {
		return float64(n)
	}
	return float64(n) / s.Interval.Seconds()
}

// Fields returns the sample as a flat document for structured sinks.
func (s *Sample) Fields() map[string]any {
	fields := map[string]any{
		"run_id":      s.RunID,
		"timestamp":   s.Timestamp.Format(time.RFC3339Nano),
		"interval_ms": s.Interval.Milliseconds(),
		"lines":       s.Lines,
		"payloads":    s.Payloads,
		"verified":    s.Verified,
	}
	if s.HasLedger() {
		fields["pending"] = s.Pending
	}
	return fields
}

// String renders the sample as a single human-readable line.
func (s *Sample) String() string {
	line := fmt.Sprintf("lines/s=%.0f payloads/s=%.0f verified/s=%.0f",
		s.PerSecond(s.Lines), s.PerSecond(s.Payloads), s.PerSecond(s.Verified))
	if s.HasLedger() {
		line += fmt.Sprintf(" pending=%d", s.Pending)
	}
	return line
}
