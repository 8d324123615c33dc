package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_InOrderDelivery(t *testing.T) {
	l := New()
	l.Record("/a.log", "hello")
	l.Record("/a.log", "world")

	assert.NoError(t, l.Verify("/a.log", "hello"))
	assert.NoError(t, l.Verify("/a.log", "world"))
	assert.Equal(t, 0, l.Pending())
}

func TestLedger_OutOfOrderDelivery(t *testing.T) {
	l := New()
	l.Record("/a.log", "hello")
	l.Record("/a.log", "world")

	err := l.Verify("/a.log", "world")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderingViolation)
	assert.NotErrorIs(t, err, ErrUnexpectedDelivery)

	var violation *OrderingViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "/a.log", violation.Path)
	assert.Equal(t, "hello", violation.Expected)
	assert.Equal(t, "world", violation.Got)

	assert.ErrorIs(t, l.Verify("/a.log", "hello"), ErrOrderingViolation)
}

func TestLedger_NeverWritten(t *testing.T) {
	l := New()

	err := l.Verify("/never-written.log", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedDelivery)
	assert.NotErrorIs(t, err, ErrOrderingViolation)

	var unexpected *UnexpectedDeliveryError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "/never-written.log", unexpected.Path)
	assert.Equal(t, "anything", unexpected.Got)
}

func TestLedger_DrainedQueue(t *testing.T) {
	l := New()
	l.Record("/a.log", "x")
	require.NoError(t, l.Verify("/a.log", "x"))

	assert.ErrorIs(t, l.Verify("/a.log", "x"), ErrUnexpectedDelivery)
	assert.Equal(t, 1, l.Paths())
}

func TestLedger_PathsAreIndependent(t *testing.T) {
	l := New()
	l.Record("/a.log", "a1")
	l.Record("/b.log", "b1")
	l.Record("/a.log", "a2")

	assert.NoError(t, l.Verify("/b.log", "b1"))
	assert.NoError(t, l.Verify("/a.log", "a1"))
	assert.Equal(t, 1, l.Len("/a.log"))
	assert.Equal(t, 0, l.Len("/b.log"))
	assert.Equal(t, 0, l.Len("/c.log"))
	assert.Equal(t, 1, l.Pending())
}

func TestLedger_LongQueueCompaction(t *testing.T) {
	l := New()
	const n = 5000

	for i := 0; i < n; i++ {
		l.Record("/a.log", fmt.Sprintf("line-%d", i))
	}
	for i := 0; i < n/2; i++ {
		require.NoError(t, l.Verify("/a.log", fmt.Sprintf("line-%d", i)))
	}
	for i := n; i < n+100; i++ {
		l.Record("/a.log", fmt.Sprintf("line-%d", i))
	}
	for i := n / 2; i < n+100; i++ {
		require.NoError(t, l.Verify("/a.log", fmt.Sprintf("line-%d", i)))
	}
	assert.Equal(t, 0, l.Pending())
}

func TestLedger_ConcurrentWritersAndVerifiers(t *testing.T) {
	l := New()
	const (
		paths = 8
		lines = 500
	)

	var wg sync.WaitGroup
	for p := 0; p < paths; p++ {
		path := fmt.Sprintf("/w%d.log", p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				l.Record(path, fmt.Sprintf("%s-%d", path, i))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, paths*lines, l.Pending())

	errs := make(chan error, paths)
	for p := 0; p < paths; p++ {
		path := fmt.Sprintf("/w%d.log", p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				if err := l.Verify(path, fmt.Sprintf("%s-%d", path, i)); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected verify error: %v", err)
	}
	assert.Equal(t, 0, l.Pending())
}

func TestIsViolation(t *testing.T) {
	assert.True(t, IsViolation(&UnexpectedDeliveryError{Path: "/a"}))
	assert.True(t, IsViolation(fmt.Errorf("wrapped: %w", &OrderingViolationError{Path: "/a"})))
	assert.False(t, IsViolation(errors.New("other")))
	assert.False(t, IsViolation(nil))
}

func TestViolationMessages(t *testing.T) {
	err := &OrderingViolationError{Path: "/a.log", Expected: "hello", Got: "world"}
	assert.Equal(t, `ordering or content violation: path=/a.log expected="hello" got="world"`, err.Error())

	unexpected := &UnexpectedDeliveryError{Path: "/b.log", Got: "x"}
	assert.Equal(t, `unexpected delivery: path=/b.log got="x"`, unexpected.Error())
}
