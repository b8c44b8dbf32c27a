package engine

import "sync"

// lfsrTaps is the feedback mask for the width-32 maximal-length polynomial
// x^32 + x^22 + x^2 + x + 1 (Fibonacci form). The register shifts right, so
// exponent n taps stage bit 32-n: bits 31, 30, 10 and 0. Any non-zero seed
// walks every non-zero 32-bit value exactly once over a full 2^32-1 period.
const lfsrTaps uint32 = 0xC0000401

// DefaultSeed is the power-on LFSR state when no profile seed is configured.
const DefaultSeed uint32 = 0xACE1ACE1

// NonceGenerator produces a sequence of pseudo-random, non-repeating values
// from a 32-bit linear-feedback shift register.
//
// The guarantee is structural uniqueness - no repeats within one period -
// not cryptographic unpredictability. The nonce stream is guessable by
// design; novelty is the only property callers may rely on.
//
// The all-zero state is unreachable: a maximal LFSR stepped from any
// non-zero state stays non-zero, and zero seeds are rejected.
//
// Thread-safety: all methods are safe for concurrent use.
type NonceGenerator struct {
	mu    sync.Mutex
	state uint32
	seed  uint32
}

// NewNonceGenerator creates a generator from the given seed.
// Returns ErrInvalidSeed when seed is zero.
func NewNonceGenerator(seed uint32) (*NonceGenerator, error) {
	if seed == 0 {
		return nil, ErrInvalidSeed
	}
	return &NonceGenerator{state: seed, seed: seed}, nil
}

// Next advances the shift register one step and returns the new state.
func (g *NonceGenerator) Next() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = lfsrStep(g.state)
	return g.state
}

// Reseed replaces the register state. Returns ErrInvalidSeed when seed is
// zero; the current state is left unchanged in that case.
func (g *NonceGenerator) Reseed(seed uint32) error {
	if seed == 0 {
		return ErrInvalidSeed
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = seed
	g.seed = seed
	return nil
}

// reset restores the register to its original seed. Administrative use only.
func (g *NonceGenerator) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = g.seed
}

// lfsrStep computes one Fibonacci LFSR step: the parity of the tapped bits
// becomes the new high bit, everything else shifts right.
func lfsrStep(s uint32) uint32 {
	tapped := s & lfsrTaps
	tapped ^= tapped >> 16
	tapped ^= tapped >> 8
	tapped ^= tapped >> 4
	tapped ^= tapped >> 2
	tapped ^= tapped >> 1
	feedback := tapped & 1
	return (s >> 1) | (feedback << 31)
}
