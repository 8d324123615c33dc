// Package listener accepts line reports from the pipeline under test and
// hands every decoded payload to a Handler.
package listener

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/GabrielNunesIT/logchurn/internal/wire"
	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
)

// ListenerFactory creates the TCP listener.
type ListenerFactory func(network, address string) (net.Listener, error)

// ReadyNotifier is called once the listener is bound. It reports whether a
// notification was delivered.
type ReadyNotifier func() (bool, error)

// Option configures the Listener.
type Option func(*Listener)

// WithListenerFactory sets a custom TCP listener factory.
func WithListenerFactory(f ListenerFactory) Option {
	return func(l *Listener) {
		l.factory = f
	}
}

// WithReadyNotifier replaces the systemd readiness notification.
func WithReadyNotifier(n ReadyNotifier) Option {
	return func(l *Listener) {
		l.notify = n
	}
}

// Listener serves the framed wire protocol, one goroutine per connection.
type Listener struct {
	cfg     config.ListenerConfig
	handler Handler
	factory ListenerFactory
	notify  ReadyNotifier
	ready   chan struct{}
	mu      sync.Mutex
	addr    net.Addr
	logger  logger.ILogger
}

// New creates a listener that passes payloads to handler.
func New(cfg config.ListenerConfig, handler Handler, log logger.ILogger, opts ...Option) *Listener {
	l := &Listener{
		cfg:     cfg,
		handler: handler,
		factory: net.Listen,
		notify: func() (bool, error) {
			return daemon.SdNotify(false, daemon.SdNotifyReady)
		},
		ready:  make(chan struct{}),
		logger: log.SubLogger("Listener"),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Ready is closed once the listener is bound.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

// Addr returns the bound address, or nil before Ready.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

// Serve binds the configured address and serves connections until ctx is
// cancelled or a handler fails. A handler error closes every connection and
// is returned; framing errors only end their own connection. Serve must be
// called at most once.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := l.factory("tcp", l.cfg.Address)
	if err != nil {
		return model.NewEnvironmentError("binding listener", l.cfg.Address, err)
	}
	defer ln.Close()

	l.mu.Lock()
	l.addr = ln.Addr()
	l.mu.Unlock()
	close(l.ready)

	l.logger.Infof("listening: address=%s handler=%s", ln.Addr(), l.handler.Name())
	if sent, err := l.notify(); err != nil {
		l.logger.Warningf("readiness notification failed: error=%v", err)
	} else if sent {
		l.logger.Debug("readiness notification sent")
	}

	eg, ctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	eg.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return model.NewEnvironmentError("accepting on", l.cfg.Address, err)
			}

			eg.Go(func() error {
				return l.serveConn(ctx, conn)
			})
		}
	})

	if err := eg.Wait(); err != nil {
		l.logger.Errorf("listener stopped: error=%v", err)
		return err
	}
	l.logger.Info("listener stopped")
	return nil
}

// serveConn reads frames until the peer goes away, a frame is malformed, or
// ctx is cancelled.
func (l *Listener) serveConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	remote := conn.RemoteAddr().String()
	l.logger.Debugf("connection accepted: remote=%s", remote)

	r := wire.NewReader(conn, l.cfg.MaxFrameBytes)
	for {
		p, err := r.ReadFrame()
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case isExpectedCloseError(err):
				l.logger.Debugf("connection closed: remote=%s", remote)
			default:
				l.logger.Debugf("dropping connection: remote=%s error=%v", remote, err)
			}
			return nil
		}

		if err := l.handler.Handle(ctx, remote, p); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				l.logger.Debugf("connection cancelled: remote=%s", remote)
				return nil
			}
			return err
		}
	}
}

// isExpectedCloseError reports whether err is a normal connection
// termination rather than a malformed stream.
func isExpectedCloseError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
