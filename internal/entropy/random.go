// Package entropy provides the random sources used by stochastic flux tracing.
// Seeded sources make traces reproducible; the crypto source is used when no
// seed is configured.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"sync"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic PCG source. Safe for concurrent use.
type Seeded struct {
	mu   sync.Mutex
	seed int64
	r    *mrand.Rand
}

// NewSeeded creates a deterministic source from seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{seed: seed, r: mrand.New(mrand.NewPCG(uint64(seed), 0))}
}

// Float64 returns the next value in the sequence.
func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Seed returns the seed the source was created with.
func (s *Seeded) Seed() int64 { return s.seed }

// Reseed restarts the sequence from seed.
func (s *Seeded) Reseed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.r = mrand.New(mrand.NewPCG(uint64(seed), 0))
}

// Crypto draws from crypto/rand.
type Crypto struct{}

// Float64 returns a uniform float built from 53 random bits.
func (Crypto) Float64() float64 { return cryptoRandFloat() }

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// New returns a Seeded source when seed is non-zero and Crypto otherwise.
func New(seed int64) Source {
	if seed != 0 {
		return NewSeeded(seed)
	}
	return Crypto{}
}

// Fixed replays a fixed sequence, wrapping around. Used to pin ray angles.
type Fixed struct {
	mu     sync.Mutex
	values []float64
	i      int
}

// NewFixed creates a source that cycles through values.
func NewFixed(values ...float64) *Fixed {
	return &Fixed{values: values}
}

// Float64 returns the next value, or 0 if the sequence is empty.
func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}
