package listener

import (
	"context"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/GabrielNunesIT/logchurn/internal/wire"
)

// Handler processes one received payload. A returned error is fatal to the
// whole listener.
type Handler interface {
	Handle(ctx context.Context, remote string, p *wire.Payload) error

	// Name returns a unique identifier for this handler.
	Name() string
}

// Verifier checks one reported line. *ledger.Ledger implements it.
type Verifier interface {
	Verify(path, value string) error
}

// VerifyHandler checks every line of a payload, in order, against the
// expected lines.
type VerifyHandler struct {
	verifier Verifier
	counters *stats.Counters
	logger   logger.ILogger
}

// NewVerifyHandler creates a verifying handler.
func NewVerifyHandler(v Verifier, counters *stats.Counters, log logger.ILogger) *VerifyHandler {
	return &VerifyHandler{
		verifier: v,
		counters: counters,
		logger:   log.SubLogger("VerifyHandler"),
	}
}

// Name returns the handler identifier.
func (h *VerifyHandler) Name() string {
	return "verify"
}

// Handle verifies the lines of p and stops at the first violation.
func (h *VerifyHandler) Handle(ctx context.Context, remote string, p *wire.Payload) error {
	var verified uint64
	defer func() {
		h.counters.AddVerified(verified)
	}()

	for _, line := range p.Lines {
		if err := h.verifier.Verify(line.Path, line.Value); err != nil {
			h.logger.Errorf("verification failed: remote=%s error=%v", remote, err)
			return err
		}
		verified++
	}

	h.counters.AddPayloads(1)
	return nil
}

// LogHandler logs payloads without checking them.
type LogHandler struct {
	logger logger.ILogger
}

// NewLogHandler creates a logging handler.
func NewLogHandler(log logger.ILogger) *LogHandler {
	return &LogHandler{logger: log.SubLogger("LogHandler")}
}

// Name returns the handler identifier.
func (h *LogHandler) Name() string {
	return "log"
}

// Handle logs a summary of p and each line at debug level.
func (h *LogHandler) Handle(ctx context.Context, remote string, p *wire.Payload) error {
	h.logger.Infof("payload received: remote=%s lines=%d", remote, p.Len())
	for _, line := range p.Lines {
		h.logger.Debugf("line received: path=%s value=%q", line.Path, line.Value)
	}
	return nil
}

// CountHandler counts payloads and, unless built with
// NewPayloadCountHandler, the lines they carry.
type CountHandler struct {
	counters *stats.Counters
	lines    bool
}

// NewCountHandler creates a handler counting payloads and lines.
func NewCountHandler(counters *stats.Counters) *CountHandler {
	return &CountHandler{counters: counters, lines: true}
}

// NewPayloadCountHandler creates a handler counting payloads only, for runs
// where the generator already counts the lines it writes.
func NewPayloadCountHandler(counters *stats.Counters) *CountHandler {
	return &CountHandler{counters: counters}
}

// Name returns the handler identifier.
func (h *CountHandler) Name() string {
	return "count"
}

// Handle counts p.
func (h *CountHandler) Handle(ctx context.Context, remote string, p *wire.Payload) error {
	h.counters.AddPayloads(1)
	if h.lines {
		h.counters.AddLines(uint64(p.Len()))
	}
	return nil
}

// Chain runs handlers in sequence.
type Chain struct {
	handlers []Handler
}

// NewChain creates a new handler chain.
func NewChain(handlers ...Handler) *Chain {
	return &Chain{handlers: handlers}
}

// Handle applies all handlers in order and stops at the first error.
func (c *Chain) Handle(ctx context.Context, remote string, p *wire.Payload) error {
	for _, h := range c.handlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := h.Handle(ctx, remote, p); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the chain identifier.
func (c *Chain) Name() string {
	return "chain"
}

// Add appends a handler to the chain.
func (c *Chain) Add(h Handler) {
	c.handlers = append(c.handlers, h)
}

// Len returns the number of handlers in the chain.
func (c *Chain) Len() int {
	return len(c.handlers)
}
