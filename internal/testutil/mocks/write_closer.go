package mocks

import "github.com/stretchr/testify/mock"

// WriteCloser is a mock of testutil.WriteCloser.
type WriteCloser struct {
	mock.Mock
}

// Write provides a mock function with given fields: p
func (m *WriteCloser) Write(p []byte) (int, error) {
	ret := m.Called(p)

	var n int
	if rf, ok := ret.Get(0).(func([]byte) int); ok {
		n = rf(p)
	} else {
		n = ret.Int(0)
	}
	return n, ret.Error(1)
}

// Close provides a mock function with no fields
func (m *WriteCloser) Close() error {
	ret := m.Called()
	return ret.Error(0)
}

// NewWriteCloser creates a new WriteCloser mock and registers a cleanup that
// asserts its expectations.
func NewWriteCloser(t interface {
	mock.TestingT
	Cleanup(func())
}) *WriteCloser {
	m := &WriteCloser{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
