package reporter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/ledger"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/GabrielNunesIT/logchurn/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records what the reporter hands it.
type captureSink struct {
	mu       sync.Mutex
	startErr error
	emitErr  error
	samples  []*model.Sample
	stopped  bool
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Start(ctx context.Context) error { return c.startErr }

func (c *captureSink) Emit(ctx context.Context, s *model.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	return c.emitErr
}

func (c *captureSink) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func (c *captureSink) lines() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n uint64
	for _, s := range c.samples {
		n += s.Lines
	}
	return n
}

func TestReporter_Collect(t *testing.T) {
	counters := stats.New()
	l := ledger.New()
	l.Record("/a.log", "x")
	l.Record("/a.log", "y")

	r := New(config.ReporterConfig{Interval: time.Second}, counters, "run-1", testutil.NewTestLogger(),
		WithGauge(l), WithSinks())

	counters.AddLines(50)
	counters.AddPayloads(2)
	counters.AddVerified(48)

	start := time.Now()
	r.last = start
	s := r.Collect(start.Add(2 * time.Second))

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2*time.Second, s.Interval)
	assert.Equal(t, uint64(50), s.Lines)
	assert.Equal(t, uint64(2), s.Payloads)
	assert.Equal(t, uint64(48), s.Verified)
	assert.Equal(t, 2, s.Pending)
	assert.InDelta(t, 25, s.PerSecond(s.Lines), 1e-9)

	// Counters were reset by the collection.
	next := r.Collect(start.Add(3 * time.Second))
	assert.Zero(t, next.Lines)
	assert.Equal(t, time.Second, next.Interval)
}

func TestReporter_CollectWithoutGauge(t *testing.T) {
	r := New(config.ReporterConfig{Interval: time.Second}, stats.New(), "run-1", testutil.NewTestLogger(), WithSinks())

	s := r.Collect(time.Now())

	assert.False(t, s.HasLedger())
	assert.Equal(t, time.Second, s.Interval)
	assert.NotContains(t, s.String(), "pending")
}

func TestReporter_Run(t *testing.T) {
	counters := stats.New()
	good := &captureSink{}
	failing := &captureSink{emitErr: errors.New("sink down")}
	broken := &captureSink{startErr: errors.New("cannot start")}

	r := New(config.ReporterConfig{Interval: 10 * time.Millisecond}, counters, "run-1", testutil.NewTestLogger(),
		WithSinks(good, failing, broken))
	assert.Equal(t, 3, r.SinkCount())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	counters.AddLines(5)
	require.Eventually(t, func() bool {
		return good.lines() == 5 && good.count() >= 2 && failing.count() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.True(t, good.stopped)
	assert.True(t, failing.stopped)
	assert.False(t, broken.stopped, "sinks that never started are not stopped")
	assert.Zero(t, broken.count())
}
