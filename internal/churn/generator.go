// Package churn creates, appends to, rotates, truncates and deletes log files
// at random, recording every line it writes.
package churn

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/randpool"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Recorder receives every line in write order. *ledger.Ledger implements it.
type Recorder interface {
	Record(path, value string)
}

// Generator runs the churn workers.
type Generator struct {
	cfg      config.ChurnConfig
	fs       afero.Fs
	rec      Recorder
	counters *stats.Counters
	seed     uint64
	seeded   bool
	dist     atomic.Pointer[Distribution]
	logger   logger.ILogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithFs sets the filesystem workers operate on. Defaults to the OS.
func WithFs(fs afero.Fs) Option {
	return func(g *Generator) {
		g.fs = fs
	}
}

// WithSeed makes every worker's random stream reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
		g.seeded = true
	}
}

// NewGenerator creates a generator. It fails when the weights are invalid.
func NewGenerator(cfg config.ChurnConfig, rec Recorder, counters *stats.Counters, log logger.ILogger, opts ...Option) (*Generator, error) {
	g := &Generator{
		cfg:      cfg,
		fs:       afero.NewOsFs(),
		rec:      rec,
		counters: counters,
		logger:   log.SubLogger("Generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.seeded {
		g.seed = rand.Uint64()
	}

	if err := g.SetWeights(cfg.Weights); err != nil {
		return nil, fmt.Errorf("invalid churn weights: %w", err)
	}
	return g, nil
}

// SetWeights swaps the action table used by every worker from its next step.
func (g *Generator) SetWeights(w config.WeightsConfig) error {
	d, err := NewDistribution(w)
	if err != nil {
		return err
	}
	g.dist.Store(d)
	g.logger.Infof("action weights set: delete=%d create=%d rotate=%d truncate=%d write=%d",
		w.Delete, w.Create, w.Rotate, w.Truncate, w.Write)
	return nil
}

// Weights returns the weights currently in use.
func (g *Generator) Weights() config.WeightsConfig {
	return g.dist.Load().Weights()
}

// Run starts all workers and blocks until they finish, ctx is cancelled, or
// one fails. The first failure cancels the others and is returned.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Infof("starting churn: root=%s workers=%d files_per_worker=%d iterations=%d",
		g.cfg.Root, g.cfg.Workers, g.cfg.FilesPerWorker, g.cfg.Iterations)

	eg, ctx := errgroup.WithContext(ctx)
	for id := range g.cfg.Workers {
		w := g.newWorker(id)
		eg.Go(func() error {
			if err := w.run(ctx, g.cfg.Iterations); err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		g.logger.Errorf("churn stopped: error=%v", err)
		return err
	}
	g.logger.Info("churn stopped")
	return nil
}

func (g *Generator) newWorker(id int) *worker {
	rng := rand.New(rand.NewPCG(g.seed, uint64(id)))
	return &worker{
		id:       id,
		dir:      workerDir(g.cfg.Root, id),
		fs:       g.fs,
		rng:      rng,
		pool:     randpool.Fragments(rng, g.cfg.PoolRounds),
		slots:    make([]slot, g.cfg.FilesPerWorker),
		maxLine:  g.cfg.MaxLineLength,
		suffix:   g.cfg.RotateSuffix,
		rec:      g.rec,
		counters: g.counters,
		dist:     g.dist.Load,
		logger:   g.logger.SubLogger(fmt.Sprintf("worker-%d", id)),
	}
}
