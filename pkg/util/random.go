package util

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is a mutex-guarded rand.Rand. The simulated verification providers
// share one instance across concurrent submissions, and math/rand sources
// are not safe for concurrent use.
type Rand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a Rand seeded with the current time.
func NewRand() *Rand {
	return NewSeededRand(time.Now().UnixNano())
}

// NewSeededRand returns a Rand with a fixed seed for deterministic tests.
func NewSeededRand(seed int64) *Rand {
	return &Rand{rng: rand.New(rand.NewSource(seed))}
}

func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *Rand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63n(n)
}

// FloatInRange returns a random float in [min, max]
func FloatInRange(rng *Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// IntInRange returns a random int in [min, max] (inclusive)
func IntInRange(rng *Rand, min, max int) int {
	return min + rng.Intn(max-min+1)
}

// DurationInRange returns a random duration in [min, max]
func DurationInRange(rng *Rand, min, max time.Duration) time.Duration {
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}
