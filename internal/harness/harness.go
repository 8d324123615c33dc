// Package harness wires the churn generator, the ledger, the verifying
// listener and the reporter into one run.
package harness

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/churn"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/ledger"
	"github.com/GabrielNunesIT/logchurn/internal/listener"
	"github.com/GabrielNunesIT/logchurn/internal/reporter"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Option configures the Harness.
type Option func(*Harness)

// WithGeneratorOptions passes options to the churn generator.
func WithGeneratorOptions(opts ...churn.Option) Option {
	return func(h *Harness) {
		h.generatorOpts = append(h.generatorOpts, opts...)
	}
}

// WithListenerOptions passes options to the listener.
func WithListenerOptions(opts ...listener.Option) Option {
	return func(h *Harness) {
		h.listenerOpts = append(h.listenerOpts, opts...)
	}
}

// WithReporterOptions passes options to the reporter.
func WithReporterOptions(opts ...reporter.Option) Option {
	return func(h *Harness) {
		h.reporterOpts = append(h.reporterOpts, opts...)
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(h *Harness) {
		h.runID = id
	}
}

// discard drops recorded lines when verification is off.
type discard struct{}

func (discard) Record(path, value string) {}

// Harness owns the shared state of one run.
type Harness struct {
	cfg      *config.Config
	runID    string
	ledger   *ledger.Ledger
	counters *stats.Counters
	mu       sync.Mutex

	generator *churn.Generator
	listener  *listener.Listener
	reporter  *reporter.Reporter

	generatorOpts []churn.Option
	listenerOpts  []listener.Option
	reporterOpts  []reporter.Option

	logger logger.ILogger
}

// New builds every component of a run from cfg.
func New(cfg *config.Config, log logger.ILogger, opts ...Option) (*Harness, error) {
	h := &Harness{
		cfg:      cfg,
		runID:    uuid.NewString(),
		ledger:   ledger.New(),
		counters: stats.New(),
		logger:   log.SubLogger("Harness"),
	}

	for _, opt := range opts {
		opt(h)
	}

	var rec churn.Recorder = h.ledger
	var handler listener.Handler
	if cfg.Listener.Verify {
		handler = listener.NewChain(listener.NewVerifyHandler(h.ledger, h.counters, log))
		h.reporterOpts = append([]reporter.Option{reporter.WithGauge(h.ledger)}, h.reporterOpts...)
	} else {
		rec = discard{}
		handler = listener.NewChain(listener.NewLogHandler(log), listener.NewPayloadCountHandler(h.counters))
	}

	gen, err := churn.NewGenerator(cfg.Churn, rec, h.counters, log, h.generatorOpts...)
	if err != nil {
		return nil, fmt.Errorf("building generator: %w", err)
	}
	h.generator = gen

	h.listener = listener.New(cfg.Listener, handler, log, h.listenerOpts...)
	h.reporter = reporter.New(cfg.Reporter, h.counters, h.runID, log, h.reporterOpts...)

	h.logger.Debugf("built harness: run_id=%s verify=%t sinks=%d", h.runID, cfg.Listener.Verify, h.reporter.SinkCount())
	return h, nil
}

// Run starts the listener, the generator and the reporter, and blocks until
// ctx is cancelled or one of them fails. The first failure cancels the rest
// and is returned. When the generator stops on its own the listener keeps
// verifying until ctx is cancelled.
func (h *Harness) Run(ctx context.Context) error {
	h.mu.Lock()
	root, address := h.cfg.Churn.Root, h.cfg.Listener.Address
	h.mu.Unlock()
	h.logger.Infof("starting run: run_id=%s root=%s listener=%s", h.runID, root, address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.listener.Serve(gCtx)
	})

	g.Go(func() error {
		select {
		case <-h.listener.Ready():
		case <-gCtx.Done():
			return nil
		}
		if err := h.generator.Run(gCtx); err != nil {
			return err
		}
		if gCtx.Err() == nil {
			h.logger.Infof("churn finished, awaiting reports: pending=%d", h.ledger.Pending())
		}
		return nil
	})

	g.Go(func() error {
		return h.reporter.Run(gCtx)
	})

	err := g.Wait()
	h.logger.Infof("run stopped: run_id=%s pending=%d", h.runID, h.ledger.Pending())
	return err
}

// Reconfigure applies the settings that can change during a run. Only the
// action weights are live; other changes need a restart.
func (h *Harness) Reconfigure(newCfg *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.generator.SetWeights(newCfg.Churn.Weights); err != nil {
		return fmt.Errorf("applying churn weights: %w", err)
	}

	old := h.cfg
	if old.Churn.Root != newCfg.Churn.Root ||
		old.Churn.Workers != newCfg.Churn.Workers ||
		old.Churn.FilesPerWorker != newCfg.Churn.FilesPerWorker ||
		old.Listener != newCfg.Listener {
		h.logger.Warning("configuration changes besides churn weights take effect on restart")
	}

	cfg := *old
	cfg.Churn.Weights = newCfg.Churn.Weights
	h.cfg = &cfg
	return nil
}

// RunID returns the id stamped on every sample of this run.
func (h *Harness) RunID() string {
	return h.runID
}

// Ledger returns the shared expectation ledger.
func (h *Harness) Ledger() *ledger.Ledger {
	return h.ledger
}

// Counters returns the shared throughput counters.
func (h *Harness) Counters() *stats.Counters {
	return h.counters
}

// Weights returns the action weights currently in use.
func (h *Harness) Weights() config.WeightsConfig {
	return h.generator.Weights()
}

// Ready is closed once the listener is bound.
func (h *Harness) Ready() <-chan struct{} {
	return h.listener.Ready()
}

// Addr returns the listener address, or nil before Ready.
func (h *Harness) Addr() net.Addr {
	return h.listener.Addr()
}
