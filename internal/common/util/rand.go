package util

import (
	"math"
	"math/rand"
	"sync"
)

// LockedSource serialises access to a rand.Source so that one generator can be shared by every job.
type LockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (r *LockedSource) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Int63()
}

func (r *LockedSource) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Uint64()
}

func (r *LockedSource) Seed(seed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src.Seed(seed)
}

// NewThreadsafeRand returns a *rand.Rand that is safe to share across multiple goroutines.
func NewThreadsafeRand(seed int64) *rand.Rand {
	return rand.New(&LockedSource{src: rand.NewSource(seed).(rand.Source64)})
}

// UniformUint64 returns a uniformly distributed value in [0, n). It panics if n is zero.
func UniformUint64(r *rand.Rand, n uint64) uint64 {
	if n == 0 {
		panic("UniformUint64 called with n == 0")
	}
	if n <= math.MaxInt64 {
		return uint64(r.Int63n(int64(n)))
	}
	// Rejection sampling keeps the result unbiased for ranges beyond int64.
	limit := math.MaxUint64 - math.MaxUint64%n
	for {
		v := r.Uint64()
		if v < limit {
			return v % n
		}
	}
}
