// Package eratsmall implements the EratSmall tier of the segmented sieve:
// primes p <= FACTOR_SMALL * sieveSize, which hit a given segment densely
// enough that a tight per-prime scan beats any bucket bookkeeping.
//
// Grounded on spec.md §4.3 and original_source/src/soe/SieveOfEratosthenes.cpp's
// EratSmall contract (crossOff(begin, end)); the per-residue jump table
// that source hand-unrolls is replaced here by wheel.NextWheelHit, computed
// once per prime per hit instead of hardcoded per residue — see DESIGN.md.
package eratsmall

import (
	"github.com/jannismilz/primesieve/sieveerr"
	"github.com/jannismilz/primesieve/wheel"
)

type entry struct {
	nextMultiple uint64
	prime        uint64
	wheelIndex   uint8
}

// EratSmall owns the sieving primes p <= limit, in a flat slice since
// every prime is visited every segment regardless of how densely it hits.
type EratSmall struct {
	stop   uint64
	limit  uint64
	primes []entry
}

// New returns an EratSmall tier for primes <= limit, sieving up to stop.
func New(stop, limit uint64) *EratSmall {
	return &EratSmall{stop: stop, limit: limit}
}

// Limit returns the upper bound (inclusive) of primes this tier owns.
func (es *EratSmall) Limit() uint64 { return es.limit }

// Add inserts sieving prime p, whose first multiple to cross off is the
// smallest wheel-representable multiple of p that is >= p*p and >=
// segmentLow+2 (segmentLow+1 is held by the byte before the segment).
func (es *EratSmall) Add(p, segmentLow uint64) error {
	if p == 0 {
		return sieveerr.Precondition("eratsmall: prime must be > 0")
	}
	lower := p * p
	if segmentLow+2 > lower {
		lower = segmentLow + 2
	}
	m, idx := wheel.FirstMultiple(p, lower)
	es.primes = append(es.primes, entry{nextMultiple: m, prime: p, wheelIndex: uint8(idx)})
	return nil
}

// CrossOff clears, for every owned prime, all multiples that fall inside
// [segmentLow, segmentLow+len(bitmap)*30), then advances each prime's
// state past the segment. Primes whose next multiple now exceeds stop are
// dropped.
func (es *EratSmall) CrossOff(bitmap []byte, segmentLow uint64) {
	sieveSize := uint64(len(bitmap))
	write := 0
	for _, e := range es.primes {
		p := e.prime
		m := e.nextMultiple
		idx := uint(e.wheelIndex)
		for {
			off := (m - segmentLow - wheel.BitValues[idx]) / wheel.NumbersPerByte
			if off >= sieveSize {
				break
			}
			bitmap[off] &^= 1 << idx
			strideK, nextIdx := wheel.NextWheelHit(p, idx)
			m += strideK * p
			idx = nextIdx
		}
		if m <= es.stop {
			es.primes[write] = entry{nextMultiple: m, prime: p, wheelIndex: uint8(idx)}
			write++
		}
	}
	es.primes = es.primes[:write]
}

// Empty reports whether the tier currently owns no sieving primes.
func (es *EratSmall) Empty() bool { return len(es.primes) == 0 }

// Count returns the number of sieving primes currently owned, for tests.
func (es *EratSmall) Count() int { return len(es.primes) }
