package listener

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/ledger"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/GabrielNunesIT/logchurn/internal/testutil"
	"github.com/GabrielNunesIT/logchurn/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noNotify() (bool, error) { return false, nil }

// startListener serves handler on a loopback port and returns the bound
// address and the channel Serve's result is delivered on.
func startListener(t *testing.T, ctx context.Context, handler Handler, opts ...Option) (string, <-chan error) {
	t.Helper()
	cfg := config.ListenerConfig{Address: "127.0.0.1:0", MaxFrameBytes: 1024}
	l := New(cfg, handler, testutil.NewTestLogger(), append([]Option{WithReadyNotifier(noNotify)}, opts...)...)

	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	select {
	case <-l.Ready():
	case err := <-done:
		t.Fatalf("listener exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for listener")
	}
	return l.Addr().String(), done
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestListener_VerifiesPayloads(t *testing.T) {
	l := ledger.New()
	l.Record("/a.log", "hello")
	l.Record("/a.log", "world")
	l.Record("/b.log", "x")
	counters := stats.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, done := startListener(t, ctx, NewVerifyHandler(l, counters, testutil.NewTestLogger()))

	conn := dial(t, addr)
	require.NoError(t, wire.WriteFrame(conn, wire.NewPayload(
		wire.Line{Path: "/a.log", Value: "hello"},
		wire.Line{Path: "/b.log", Value: "x"},
	)))
	require.NoError(t, wire.WriteFrame(conn, wire.NewPayload(
		wire.Line{Path: "/a.log", Value: "world"},
	)))

	var total stats.Snapshot
	assert.Eventually(t, func() bool {
		snap := counters.Swap()
		total.Verified += snap.Verified
		total.Payloads += snap.Payloads
		return total.Payloads == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, uint64(3), total.Verified)
	assert.Zero(t, l.Pending())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_ViolationStopsServe(t *testing.T) {
	l := ledger.New()
	l.Record("/a.log", "hello")
	l.Record("/a.log", "world")

	addr, done := startListener(t, context.Background(), NewVerifyHandler(l, stats.New(), testutil.NewTestLogger()))

	// A second idle connection must be closed when the first one fails.
	idle := dial(t, addr)
	conn := dial(t, addr)
	require.NoError(t, wire.WriteFrame(conn, wire.NewPayload(wire.Line{Path: "/a.log", Value: "world"})))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, ledger.IsViolation(err))

		var violation *ledger.OrderingViolationError
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, "hello", violation.Expected)
		assert.Equal(t, "world", violation.Got)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not report the violation")
	}

	require.NoError(t, idle.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := idle.Read(make([]byte, 1))
	assert.Error(t, err)
}

// cancelOnFirst cancels the serving context the first time it handles a
// payload and then returns err.
type cancelOnFirst struct {
	cancel context.CancelFunc
	err    error
	calls  int
}

func (h *cancelOnFirst) Name() string { return "cancel-on-first" }

func (h *cancelOnFirst) Handle(ctx context.Context, remote string, p *wire.Payload) error {
	h.calls++
	if h.calls == 1 {
		h.cancel()
		return h.err
	}
	return nil
}

func writeFrames(t *testing.T, conn net.Conn, payloads ...*wire.Payload) {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range payloads {
		require.NoError(t, wire.WriteFrame(&buf, p))
	}
	_, err := conn.Write(buf.Bytes())
	require.NoError(t, err)
}

func TestListener_CancelWithBufferedFrameIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := &cancelOnFirst{cancel: cancel}
	addr, done := startListener(t, ctx, NewChain(h))

	conn := dial(t, addr)
	writeFrames(t, conn,
		wire.NewPayload(wire.Line{Path: "/a.log", Value: "one"}),
		wire.NewPayload(wire.Line{Path: "/a.log", Value: "two"}),
	)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_ViolationDuringCancelIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	violation := &ledger.UnexpectedDeliveryError{Path: "/a.log", Got: "one"}
	h := &cancelOnFirst{cancel: cancel, err: violation}
	addr, done := startListener(t, ctx, NewChain(h))

	conn := dial(t, addr)
	writeFrames(t, conn,
		wire.NewPayload(wire.Line{Path: "/a.log", Value: "one"}),
		wire.NewPayload(wire.Line{Path: "/a.log", Value: "two"}),
	)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ledger.ErrUnexpectedDelivery)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_UnexpectedDelivery(t *testing.T) {
	addr, done := startListener(t, context.Background(), NewVerifyHandler(ledger.New(), stats.New(), testutil.NewTestLogger()))

	conn := dial(t, addr)
	require.NoError(t, wire.WriteFrame(conn, wire.NewPayload(wire.Line{Path: "/never-written.log", Value: "x"})))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ledger.ErrUnexpectedDelivery)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not report the violation")
	}
}

func TestListener_ShortFrameClosesConnectionOnly(t *testing.T) {
	l := ledger.New()
	l.Record("/a.log", "hello")
	counters := stats.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, done := startListener(t, ctx, NewVerifyHandler(l, counters, testutil.NewTestLogger()))

	// Announce 100 bytes, send 10, then hang up.
	bad := dial(t, addr)
	frame := make([]byte, 4, 14)
	binary.BigEndian.PutUint32(frame, 100)
	frame = append(frame, make([]byte, 10)...)
	_, err := bad.Write(frame)
	require.NoError(t, err)
	require.NoError(t, bad.Close())

	// The listener keeps serving other connections.
	good := dial(t, addr)
	require.NoError(t, wire.WriteFrame(good, wire.NewPayload(wire.Line{Path: "/a.log", Value: "hello"})))
	assert.Eventually(t, func() bool { return l.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("listener stopped on a framing error: %v", err)
	default:
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestListener_OversizedFrameClosesConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, done := startListener(t, ctx, NewCountHandler(stats.New()))

	conn := dial(t, addr)
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, 1<<20)
	_, err := conn.Write(prefix)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err, "connection should be closed by the listener")

	select {
	case err := <-done:
		t.Fatalf("listener stopped on an oversized frame: %v", err)
	default:
	}
}

func TestListener_BindFailure(t *testing.T) {
	factory := func(network, address string) (net.Listener, error) {
		return nil, errors.New("address in use")
	}
	l := New(config.ListenerConfig{Address: "127.0.0.1:1972"}, NewCountHandler(stats.New()), testutil.NewTestLogger(),
		WithListenerFactory(factory), WithReadyNotifier(noNotify))

	err := l.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEnvironment)
	assert.Contains(t, err.Error(), "address in use")
	assert.Nil(t, l.Addr())
}

func TestListener_NotifiesReadiness(t *testing.T) {
	notified := make(chan struct{}, 1)
	notify := func() (bool, error) {
		notified <- struct{}{}
		return true, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, done := startListener(t, ctx, NewCountHandler(stats.New()), WithReadyNotifier(notify))

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("readiness was not notified")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestListener_LoggingMode(t *testing.T) {
	counters := stats.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := NewChain(NewLogHandler(testutil.NewTestLogger()), NewCountHandler(counters))
	addr, done := startListener(t, ctx, handler)

	conn := dial(t, addr)
	require.NoError(t, wire.WriteFrame(conn, wire.NewPayload(
		wire.Line{Path: "/unknown.log", Value: "a"},
		wire.Line{Path: "/unknown.log", Value: "b"},
	)))

	assert.Eventually(t, func() bool { return counters.Lines() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestIsExpectedCloseError(t *testing.T) {
	assert.True(t, isExpectedCloseError(net.ErrClosed))
	assert.True(t, isExpectedCloseError(errors.Join(errors.New("read"), net.ErrClosed)))
	assert.False(t, isExpectedCloseError(wire.ErrFraming))
	assert.False(t, isExpectedCloseError(errors.New("boom")))
}
