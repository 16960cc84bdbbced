package ports

import (
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Source creates the deterministic random source for a seed. Distinct seeds
	// must yield distinct, non-overlapping streams.
	Source(seed int64) rand.Source

	// SeededStream wraps Source in a *rand.Rand
	SeededStream(seed int64) *rand.Rand

	// BlockSeed derives the seed of the block at position index from the base seed.
	// It is strictly increasing in index so no two blocks of a run share a seed.
	BlockSeed(base int64, index int) int64
}
