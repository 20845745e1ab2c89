// Package rng provides the deterministic random streams behind permutation
// tests.
package rng

import (
	"context"
	"math/rand"

	"microbiogeo/internal/permutation"
	"microbiogeo/ports"
)

// StreamAdapter implements ports.RNGPort. Streams are derived from names so
// identical run/method/key/seed tuples replay identical permutations.
type StreamAdapter struct{}

// NewStreamAdapter creates an RNG stream adapter
func NewStreamAdapter() *StreamAdapter {
	return &StreamAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *StreamAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name != "" {
		seed = int64(hashString(name)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// Stream creates a deterministic RNG stream for one method invocation of a run
func (r *StreamAdapter) Stream(ctx context.Context, runID, method, key string, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := baseSeed
	if runID != "" {
		seed = int64(hashString(runID)) + seed
	}
	if method != "" {
		seed = int64(hashString(method)) + seed
	}
	if key != "" {
		seed = int64(hashString(key)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// Permuter wraps the stream of one job in a permutation source.
func Permuter(ctx context.Context, port ports.RNGPort, runID, method, key string, baseSeed int64) (ports.Permuter, error) {
	stream, err := port.Stream(ctx, runID, method, key, baseSeed)
	if err != nil {
		return nil, err
	}
	return permutation.NewRandomPermuter(stream), nil
}

// hashString is djb2.
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}

var _ ports.RNGPort = (*StreamAdapter)(nil)
