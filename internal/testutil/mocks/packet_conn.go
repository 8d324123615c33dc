package mocks

import (
	"net"
	"time"

	"github.com/stretchr/testify/mock"
)

// PacketConn is a mock of testutil.PacketConn.
type PacketConn struct {
	mock.Mock
}

// ReadFrom provides a mock function with given fields: p
func (m *PacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	ret := m.Called(p)

	var addr net.Addr
	if a := ret.Get(1); a != nil {
		addr = a.(net.Addr)
	}
	return ret.Int(0), addr, ret.Error(2)
}

// WriteTo provides a mock function with given fields: p, addr
func (m *PacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	ret := m.Called(p, addr)

	var n int
	if rf, ok := ret.Get(0).(func([]byte, net.Addr) int); ok {
		n = rf(p, addr)
	} else {
		n = ret.Int(0)
	}
	return n, ret.Error(1)
}

// Close provides a mock function with no fields
func (m *PacketConn) Close() error {
	ret := m.Called()
	return ret.Error(0)
}

// LocalAddr provides a mock function with no fields
func (m *PacketConn) LocalAddr() net.Addr {
	ret := m.Called()
	if a := ret.Get(0); a != nil {
		return a.(net.Addr)
	}
	return nil
}

// SetDeadline provides a mock function with given fields: t
func (m *PacketConn) SetDeadline(t time.Time) error {
	ret := m.Called(t)
	return ret.Error(0)
}

// SetReadDeadline provides a mock function with given fields: t
func (m *PacketConn) SetReadDeadline(t time.Time) error {
	ret := m.Called(t)
	return ret.Error(0)
}

// SetWriteDeadline provides a mock function with given fields: t
func (m *PacketConn) SetWriteDeadline(t time.Time) error {
	ret := m.Called(t)
	return ret.Error(0)
}

// NewPacketConn creates a new PacketConn mock and registers a cleanup that
// asserts its expectations.
func NewPacketConn(t interface {
	mock.TestingT
	Cleanup(func())
}) *PacketConn {
	m := &PacketConn{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
