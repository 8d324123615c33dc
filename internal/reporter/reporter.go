// Package reporter drains the shared counters at a fixed interval and hands
// each sample to the configured sinks.
package reporter

import (
	"context"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
)

// stopTimeout bounds the time sinks get to flush on shutdown.
const stopTimeout = 5 * time.Second

// Gauge reports the number of lines still awaiting verification.
// *ledger.Ledger implements it.
type Gauge interface {
	Pending() int
}

// Option configures the Reporter.
type Option func(*Reporter)

// WithSinks replaces the sinks built from configuration.
func WithSinks(sinks ...Sink) Option {
	return func(r *Reporter) {
		r.sinks = sinks
	}
}

// WithGauge adds the pending line count to every sample.
func WithGauge(g Gauge) Option {
	return func(r *Reporter) {
		r.gauge = g
	}
}

// Reporter periodically samples the counters.
type Reporter struct {
	interval time.Duration
	counters *stats.Counters
	gauge    Gauge
	sinks    []Sink
	runID    string
	last     time.Time
	logger   logger.ILogger
}

// New creates a reporter over counters.
func New(cfg config.ReporterConfig, counters *stats.Counters, runID string, log logger.ILogger, opts ...Option) *Reporter {
	r := &Reporter{
		interval: cfg.Interval,
		counters: counters,
		runID:    runID,
		logger:   log.SubLogger("Reporter"),
	}
	r.sinks = BuildSinks(cfg.Sinks, log)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SinkCount returns the number of configured sinks.
func (r *Reporter) SinkCount() int {
	return len(r.sinks)
}

// Run samples every interval until ctx is cancelled. Sinks that fail to
// start are skipped; sink errors are logged and never stop the reporter.
func (r *Reporter) Run(ctx context.Context) error {
	started := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		if err := s.Start(ctx); err != nil {
			r.logger.Errorf("failed to start sink: name=%s error=%v", s.Name(), err)
			continue
		}
		started = append(started, s)
	}
	defer r.stop(started)

	r.logger.Debugf("reporter started: interval=%v sinks=%d", r.interval, len(started))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.last = time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			sample := r.Collect(now)
			r.emit(ctx, started, sample)
		}
	}
}

// Collect swaps the counters and builds a sample covering the time since the
// previous collection.
func (r *Reporter) Collect(now time.Time) *model.Sample {
	interval := r.interval
	if !r.last.IsZero() {
		interval = now.Sub(r.last)
	}
	r.last = now

	pending := -1
	if r.gauge != nil {
		pending = r.gauge.Pending()
	}

	sample := model.NewSample(r.runID, interval, r.counters.Swap(), pending)
	sample.Timestamp = now
	return sample
}

func (r *Reporter) emit(ctx context.Context, sinks []Sink, sample *model.Sample) {
	for _, s := range sinks {
		if err := s.Emit(ctx, sample); err != nil {
			r.logger.Warningf("sink emit error: name=%s error=%v", s.Name(), err)
		}
	}
}

func (r *Reporter) stop(sinks []Sink) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for _, s := range sinks {
		if err := s.Stop(ctx); err != nil {
			r.logger.Warningf("sink stop error: name=%s error=%v", s.Name(), err)
		}
	}
	r.logger.Debug("reporter stopped")
}
