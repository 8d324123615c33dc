package emitter

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/randpool"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/GabrielNunesIT/logchurn/internal/wire"
)

const (
	// dropOdds is the chance, 1 in dropOdds, of hanging up after a send.
	dropOdds = 128

	nameLength    = 6
	maxValueBytes = 64
)

// DialFunc opens a stream connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// NativeOption configures the Native emitter.
type NativeOption func(*Native)

// WithDialer sets a custom dial function.
func WithDialer(d DialFunc) NativeOption {
	return func(n *Native) {
		n.dial = d
	}
}

// WithNativeSeed makes the emitted stream reproducible.
func WithNativeSeed(seed uint64) NativeOption {
	return func(n *Native) {
		n.seed = seed
		n.seeded = true
	}
}

// Native sends framed line payloads over TCP, reconnecting as needed and
// hanging up at random.
type Native struct {
	cfg      config.NativeEmitterConfig
	dial     DialFunc
	counters *stats.Counters
	seed     uint64
	seeded   bool
	logger   logger.ILogger
}

// NewNative creates a native emitter.
func NewNative(cfg config.NativeEmitterConfig, counters *stats.Counters, log logger.ILogger, opts ...NativeOption) *Native {
	n := &Native{
		cfg:      cfg,
		dial:     (&net.Dialer{}).DialContext,
		counters: counters,
		logger:   log.SubLogger("NativeEmitter"),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Run emits until ctx is cancelled. Connection failures are logged and
// retried after the configured delay.
func (n *Native) Run(ctx context.Context) error {
	rng := newRand(n.seed, n.seeded)
	paths := uniqueNames(rng, n.cfg.PoolSize, nameLength)
	for i, name := range paths {
		paths[i] = "/" + name + ".log"
	}
	if len(paths) == 0 {
		return fmt.Errorf("native path pool is empty: pool_size=%d", n.cfg.PoolSize)
	}
	frags := randpool.Fragments(rng, 16)

	n.logger.Infof("native emitter started: address=%s pool=%d payload_limit=%d",
		n.cfg.Address, len(paths), n.cfg.PayloadLimit)

	var conn net.Conn
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for ctx.Err() == nil {
		p := n.payload(rng, paths, frags)
		n.counters.AddLines(uint64(p.Len()))

		if conn == nil {
			if !sleep(ctx, n.cfg.Delay) {
				break
			}
			c, err := n.dial(ctx, "tcp", n.cfg.Address)
			if err != nil {
				n.logger.Debugf("connect failed: address=%s error=%v", n.cfg.Address, err)
				continue
			}
			n.logger.Debugf("connected: address=%s", n.cfg.Address)
			conn = c
			continue
		}

		failed := false
		if err := wire.WriteFrame(conn, p); err != nil {
			n.logger.Debugf("send failed: address=%s error=%v", n.cfg.Address, err)
			failed = true
		} else {
			n.counters.AddPayloads(1)
		}

		if failed || rng.IntN(dropOdds) == 0 {
			conn.Close()
			conn = nil
		}
	}

	n.logger.Info("native emitter stopped")
	return nil
}

// payload builds a payload whose size is geometric with mean
// PayloadLimit.
func (n *Native) payload(rng *rand.Rand, paths, frags []string) *wire.Payload {
	limit := max(n.cfg.PayloadLimit, 1)
	p := wire.NewPayload()
	for {
		p.Add(randpool.Pick(rng, paths), randpool.Line(rng, frags, maxValueBytes))
		if rng.IntN(limit) == 0 {
			return p
		}
	}
}
