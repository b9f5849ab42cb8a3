package ports

import (
	mrand "math/rand"
	"math/rand/v2"
)

// StreamProvider hands out deterministic random streams derived from a
// master seed. The same (label, index) pair always yields the same
// stream, across runs and regardless of how work is parallelized, so
// distributing trials across workers never changes a numeric result.
type StreamProvider interface {
	// Stream returns a math/rand generator for shuffle-style use.
	Stream(label string, index uint64) *mrand.Rand

	// Source returns a rand/v2 source for feeding distribution
	// samplers.
	Source(label string, index uint64) rand.Source
}
