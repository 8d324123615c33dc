// Package randpool builds the pools of short random strings that generated
// paths, lines and metric names are drawn from.
package randpool

import (
	"math/rand/v2"
	"slices"
	"strings"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLengths are the fragment lengths used when none are given.
var DefaultLengths = []int{3, 4, 5}

// String returns n random alphanumeric characters.
func String(rng *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphanumeric[rng.IntN(len(alphanumeric))])
	}
	return b.String()
}

// Fragments returns a sorted pool of unique fragments. Each round draws one
// fragment per length; duplicates are dropped.
func Fragments(rng *rand.Rand, rounds int, lengths ...int) []string {
	if len(lengths) == 0 {
		lengths = DefaultLengths
	}

	pool := make([]string, 0, rounds*len(lengths))
	for range rounds {
		for _, n := range lengths {
			pool = InsertSorted(pool, String(rng, n))
		}
	}
	return pool
}

// InsertSorted inserts s into the sorted slice pool unless it is already
// present, and returns the updated slice.
func InsertSorted(pool []string, s string) []string {
	i, found := slices.BinarySearch(pool, s)
	if found {
		return pool
	}
	return slices.Insert(pool, i, s)
}

// Pick returns a uniformly chosen element of pool. pool must not be empty.
func Pick(rng *rand.Rand, pool []string) string {
	return pool[rng.IntN(len(pool))]
}

// Line returns a line of random length in [1, maxLen] made of pool
// fragments. The last fragment is cut to hit the drawn length exactly.
func Line(rng *rand.Rand, pool []string, maxLen int) string {
	if maxLen < 1 {
		maxLen = 1
	}
	n := 1 + rng.IntN(maxLen)

	var b strings.Builder
	b.Grow(n)
	for b.Len() < n {
		frag := Pick(rng, pool)
		if rest := n - b.Len(); len(frag) > rest {
			frag = frag[:rest]
		}
		b.WriteString(frag)
	}
	return b.String()
}
