// Package sampling holds the seeded randomness and text normalization shared by query expansion and retrieval.
package sampling

import (
	"math/rand/v2"
	"slices"
	"strings"
)

// NewRand returns a PRNG whose sequence is fully determined by seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Shuffled returns a seeded permutation of items. items is not modified.
func Shuffled[T any](items []T, seed int64) []T {
	out := slices.Clone(items)
	r := NewRand(seed)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Take returns at most n leading items.
func Take[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// NormalizeText trims and collapses whitespace runs so near-identical passages compare equal.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
