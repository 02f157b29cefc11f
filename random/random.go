package random

import (
	"math/rand/v2"
)

const (
	multiplier = 69069
	modulus    = 1 << 32
)

// Stream is a deterministic linear congruential generator. It only holds its
// 32-bit state, so copying a Stream forks it.
//
// A seed of 0 is a fixed point: every draw returns 0.
type Stream struct {
	n uint32
}

// NewSeed returns a seed drawn from an external entropy source.
func NewSeed() uint32 {
	return rand.Uint32()
}

// New returns a stream initialized with the given seed.
func New(seed uint32) Stream {
	return Stream{n: seed}
}

// Fork returns an independent stream in the current state. Draws on the fork
// do not affect s.
func (s Stream) Fork() Stream {
	return s
}

// State returns the current 32-bit state.
func (s Stream) State() uint32 {
	return s.n
}

// Float advances the stream and returns a number in the range [0, 1).
func (s *Stream) Float() float64 {
	// uint32 arithmetic wraps at 2^32.
	s.n *= multiplier
	return float64(s.n) / modulus
}
