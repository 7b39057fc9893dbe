// Package presieve implements the PreSieve optimization: a repeating
// bitmask, built once at construction, that pre-eliminates multiples of
// the first few wheel primes (7 up to a configurable limit in [13,23])
// before the three cross-off tiers run on a segment.
//
// Grounded on original_source/include/primesieve/PreSieve.hpp's design
// note ("remove the multiples of small primes from [a buffer] at
// initialization... perform a bitwise AND... whilst sieving") and
// spec.md §4.2, which asks for a single repeating mask rather than the
// newer multi-buffer variant PreSieve.hpp documents.
package presieve

import "github.com/jannismilz/primesieve/wheel"

// MinLimit and MaxLimit bound the configurable PreSieve limit, per
// spec.md's preSieve-limit precondition.
const (
	MinLimit = 13
	MaxLimit = 23
)

// PreSieve holds the precomputed repeating mask. It is built once at
// construction and never mutated afterwards.
type PreSieve struct {
	limit uint32
	mask  []byte
}

// New builds a PreSieve for primes in (5, limit]. limit is clamped into
// [MinLimit, MaxLimit].
func New(limit uint32) *PreSieve {
	limit = wheel.Clamp(limit, MinLimit, MaxLimit)

	var sievingPrimes []uint64
	var period uint64 = 1
	for _, p := range primesUpTo(limit) {
		if p > 5 {
			sievingPrimes = append(sievingPrimes, uint64(p))
			period *= uint64(p)
		}
	}

	mask := make([]byte, period)
	for i := range mask {
		mask[i] = 0xff
	}

	maskIntegers := period * wheel.NumbersPerByte
	for _, p := range sievingPrimes {
		// Multiples of p starting at 3p: 2p is always even and thus never
		// a representable wheel residue, and p itself must stay set so the
		// prime p is still reported when it falls inside [start, stop].
		for k := uint64(3); k*p <= maskIntegers; k += 2 {
			m := k * p
			off, bit, ok := wheel.Locate(m, 0)
			if !ok {
				continue
			}
			mask[off] &^= 1 << bit
		}
	}

	return &PreSieve{limit: limit, mask: mask}
}

// Limit returns the configured PreSieve limit. Sieving primes <= Limit
// are never routed to a cross-off tier; their multiples are already
// eliminated by DoIt.
func (ps *PreSieve) Limit() uint32 {
	return ps.limit
}

// DoIt fills bitmap with the mask aligned so that byte i reflects
// composites of the PreSieve's primes at the absolute integer range
// [segmentLow+i*30+1, segmentLow+i*30+30]. segmentLow must be a multiple
// of 30.
func (ps *PreSieve) DoIt(bitmap []byte, segmentLow uint64) {
	maskLen := uint64(len(ps.mask))
	pos := (segmentLow / wheel.NumbersPerByte) % maskLen
	n := uint64(len(bitmap))
	for i := uint64(0); i < n; {
		chunk := maskLen - pos
		if rem := n - i; chunk > rem {
			chunk = rem
		}
		copy(bitmap[i:i+chunk], ps.mask[pos:pos+chunk])
		i += chunk
		pos = (pos + chunk) % maskLen
	}

	// The mask keeps each pre-sieve prime p itself set. In every later
	// mask period the same bit stands for p + q*period*30, a multiple of
	// p, so clear it wherever such an integer falls in this segment.
	periodInts := maskLen * wheel.NumbersPerByte
	for _, p := range primesUpTo(ps.limit) {
		if p <= 5 {
			continue
		}
		m := uint64(p) + periodInts
		if segmentLow > m {
			m += (segmentLow - m + periodInts - 1) / periodInts * periodInts
		}
		for ; m <= segmentLow+n*wheel.NumbersPerByte+1; m += periodInts {
			if off, bit, ok := wheel.Locate(m, segmentLow); ok && off < n {
				bitmap[off] &^= 1 << bit
			}
		}
	}
}

// primesUpTo returns the primes <= limit via trial division. limit is
// always small (<= MaxLimit), so this intentionally skips any sieve
// machinery of its own.
func primesUpTo(limit uint32) []uint32 {
	var primes []uint32
	for n := uint32(2); n <= limit; n++ {
		isPrime := true
		for d := uint32(2); d*d <= n; d++ {
			if n%d == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			primes = append(primes, n)
		}
	}
	return primes
}
