package nutrition

import (
	"math/rand/v2"
	"sync"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithSampleLimit caps the number of rows drawn for the scatter sample.
func WithSampleLimit(limit int) Option {
	return func(a *Analyzer) {
		if limit > 0 {
			a.sampleLimit = limit
		}
	}
}

// WithSeed makes sampling reproducible.
func WithSeed(seed uint64) Option {
	return func(a *Analyzer) {
		r := &lockedRand{rng: rand.New(rand.NewPCG(seed, seed))}
		a.perm = r.Perm
	}
}

// lockedRand serializes access to a seeded generator shared by requests.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Perm(n)
}
