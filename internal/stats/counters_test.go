package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_SwapResets(t *testing.T) {
	c := New()
	c.AddLines(3)
	c.AddPayloads(1)
	c.AddVerified(2)

	assert.Equal(t, uint64(3), c.Lines())
	assert.Equal(t, uint64(1), c.Payloads())
	assert.Equal(t, Snapshot{Lines: 3, Payloads: 1, Verified: 2}, c.Swap())
	assert.Equal(t, Snapshot{}, c.Swap())
}

func TestCounters_NoLostIncrements(t *testing.T) {
	c := New()
	const (
		writers = 8
		adds    = 10000
	)

	var total uint64
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s := c.Swap()
			mu.Lock()
			total += s.Lines
			mu.Unlock()
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < adds; i++ {
				c.AddLines(1)
			}
		}()
	}
	wg.Wait()
	<-done

	total += c.Swap().Lines
	assert.Equal(t, uint64(writers*adds), total)
}
