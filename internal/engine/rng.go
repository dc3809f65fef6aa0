package engine

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// RNG subsystems. Each gets its own seeded stream so draw order in one
// sub-algorithm cannot perturb another.
const (
	subsystemArrival    = "arrival"
	subsystemHistorical = "historical"
	subsystemKeys       = "keys"
)

// randomSource hands out per-subsystem deterministic RNG streams. Given the
// same master seed, every subsystem reproduces the same sequence of draws
// regardless of how the other subsystems are used.
//
// Not safe for concurrent use; each stream owns exactly one instance.
type randomSource struct {
	master     int64
	subsystems map[string]*rand.Rand
}

// newRandomSource seeds the source. A nil seed yields a time-derived master
// seed and therefore a non-reproducible stream.
func newRandomSource(seed *int64) *randomSource {
	master := time.Now().UnixNano()
	if seed != nil {
		master = *seed
	}
	return &randomSource{
		master:     master,
		subsystems: make(map[string]*rand.Rand),
	}
}

// subsystem returns the RNG stream for name, creating it on first use. The
// per-subsystem seed is masterSeed XOR fnv1a64(name).
func (s *randomSource) subsystem(name string) *rand.Rand {
	if r, ok := s.subsystems[name]; ok {
		return r
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	r := rand.New(rand.NewSource(s.master ^ int64(h.Sum64())))
	s.subsystems[name] = r
	return r
}
