package ports

import (
	"context"
	"math/rand"
)

// Permuter produces orderings of 0..n-1 for permutation tests. Every call
// must return a fresh slice that is a permutation of 0..n-1.
type Permuter interface {
	Permutation(n int) []int
}

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one method invocation of a run.
	// The same run/method/key/seed always yields the same permutations.
	Stream(ctx context.Context, runID, method, key string, baseSeed int64) (*rand.Rand, error)
}
