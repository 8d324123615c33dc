package emitter

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
)

const (
	maxLinesPerPacket = 39
	maxMetricValue    = 1000
)

// PacketConnFactory creates the local UDP socket.
type PacketConnFactory func(network, address string) (net.PacketConn, error)

// StatsdOption configures the Statsd emitter.
type StatsdOption func(*Statsd)

// WithPacketConnFactory sets a custom UDP socket factory.
func WithPacketConnFactory(f PacketConnFactory) StatsdOption {
	return func(s *Statsd) {
		s.factory = f
	}
}

// WithStatsdSeed makes the emitted stream reproducible.
func WithStatsdSeed(seed uint64) StatsdOption {
	return func(s *Statsd) {
		s.seed = seed
		s.seeded = true
	}
}

// metric is a pool entry: a name and its statsd type.
type metric struct {
	name string
	kind string
}

// Statsd floods a UDP address with statsd lines.
type Statsd struct {
	cfg      config.StatsdEmitterConfig
	factory  PacketConnFactory
	counters *stats.Counters
	seed     uint64
	seeded   bool
	logger   logger.ILogger
}

// NewStatsd creates a statsd emitter.
func NewStatsd(cfg config.StatsdEmitterConfig, counters *stats.Counters, log logger.ILogger, opts ...StatsdOption) *Statsd {
	s := &Statsd{
		cfg:      cfg,
		factory:  net.ListenPacket,
		counters: counters,
		logger:   log.SubLogger("StatsdEmitter"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// metricKind draws a statsd type: g 45%, c 50%, ms 3%, h 2%.
func metricKind(rng *rand.Rand) string {
	switch n := rng.IntN(100); {
	case n >= 98:
		return "h"
	case n >= 95:
		return "ms"
	case n >= 45:
		return "c"
	default:
		return "g"
	}
}

func metricPool(rng *rand.Rand, size int) []metric {
	names := uniqueNames(rng, size, nameLength)
	pool := make([]metric, len(names))
	for i, name := range names {
		pool[i] = metric{name: name, kind: metricKind(rng)}
	}
	return pool
}

// packet renders count copies of one metric line.
func packet(m metric, value, count int) []byte {
	line := fmt.Sprintf("a%s:%s|%s\n", m.name, strconv.Itoa(value), m.kind)
	return []byte(strings.Repeat(line, count))
}

// Run sends packets until ctx is cancelled. Once more than LineLimit lines
// were counted in the current reporting interval it sleeps Delay between
// packets.
func (s *Statsd) Run(ctx context.Context) error {
	dest, err := net.ResolveUDPAddr("udp", s.cfg.Address)
	if err != nil {
		return model.NewEnvironmentError("resolving", s.cfg.Address, err)
	}

	conn, err := s.factory("udp", ":0")
	if err != nil {
		return model.NewEnvironmentError("opening UDP socket", "", err)
	}
	defer conn.Close()

	rng := newRand(s.seed, s.seeded)
	pool := metricPool(rng, s.cfg.PoolSize)
	if len(pool) == 0 {
		return fmt.Errorf("statsd metric pool is empty: pool_size=%d", s.cfg.PoolSize)
	}

	kinds := make(map[string]int)
	for _, m := range pool {
		kinds[m.kind]++
	}
	s.logger.Infof("statsd emitter started: address=%s gauges=%d counters=%d timers=%d histograms=%d",
		s.cfg.Address, kinds["g"], kinds["c"], kinds["ms"], kinds["h"])

	for ctx.Err() == nil {
		m := pool[rng.IntN(len(pool))]
		count := 1 + rng.IntN(maxLinesPerPacket)
		already := s.counters.Lines()
		s.counters.AddLines(uint64(count))

		if _, err := conn.WriteTo(packet(m, rng.IntN(maxMetricValue), count), dest); err != nil {
			s.logger.Debugf("send failed: address=%s error=%v", s.cfg.Address, err)
		} else {
			s.counters.AddPayloads(1)
		}

		if already > uint64(s.cfg.LineLimit) && !sleep(ctx, s.cfg.Delay) {
			break
		}
	}

	s.logger.Info("statsd emitter stopped")
	return nil
}
