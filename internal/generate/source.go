// Package generate produces the synthetic cohort datasets rendered by the
// dashboard views.
//
// Every generator is a pure function of its parameters and an injected
// *rand.Rand; the same seed always yields the same draw. Callers are expected
// to draw again whenever a parameter changes.
package generate

import (
	"math/rand/v2"
	"sync"
	"time"
)

// maxSeed keeps seeds exactly representable as JSON numbers.
const maxSeed = 1<<53 - 1

// NewSource returns a deterministic random source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Seeder hands out fresh seeds. It is safe for concurrent use.
type Seeder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeder creates a seeder. A zero base seed derives one from the clock.
func NewSeeder(base uint64) *Seeder {
	if base == 0 {
		base = uint64(time.Now().UnixNano())
	}
	return &Seeder{rng: NewSource(base)}
}

// Next returns a new seed in [1, 2^53).
func (s *Seeder) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint64N(maxSeed) + 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampPct clamps v to the [0,100] expression scale.
func clampPct(v float64) float64 { return clamp(v, 0, 100) }
