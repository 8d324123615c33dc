// Package emitter generates synthetic traffic for exercising listeners and
// pipelines without running the churn generator.
package emitter

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/GabrielNunesIT/logchurn/internal/randpool"
)

// nameAttempts bounds the rounds spent filling a pool of unique names.
const nameAttempts = 10

// uniqueNames draws up to size unique n-character names, sorted. Fewer are
// returned only when collisions persist for nameAttempts rounds.
func uniqueNames(rng *rand.Rand, size, n int) []string {
	pool := make([]string, 0, size)
	for range nameAttempts {
		for len(pool) < size {
			before := len(pool)
			pool = randpool.InsertSorted(pool, randpool.String(rng, n))
			if len(pool) == before {
				break
			}
		}
		if len(pool) == size {
			break
		}
	}
	return pool
}

// sleep waits for d or until ctx is done, and reports whether ctx is still
// live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func newRand(seed uint64, seeded bool) *rand.Rand {
	if !seeded {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}
