package randx

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"
)

// Source is the subset of *rand.Rand the simulation draws from. Every random
// decision goes through a Source so tests can pin the outcome.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// New returns a PCG generator derived from seed. A zero seed picks one from the
// wall clock.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Non-cryptographic PRNG is intentional for reproducible runs.
	// #nosec G404
	return rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}

// Uniform draws from [lo, hi).
func Uniform(r Source, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// OneIn reports a 1-in-n event.
func OneIn(r Source, n int) bool {
	if n <= 1 {
		return true
	}
	return r.IntN(n) == 0
}

// Percent reports an event with the given percentage chance.
func Percent(r Source, chance float64) bool {
	return Uniform(r, 0, 100) < chance
}
