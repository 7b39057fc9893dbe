// Package eratmedium implements the EratMedium tier: sieving primes with
// FACTOR_SMALL*sieveSize < p <= FACTOR_MEDIUM*sieveSize. These still hit a
// segment more than once, but not densely enough to amortize EratSmall's
// per-prime scan, so state is kept in a bucket list instead of a plain
// slice — see spec.md §4.4 and bucket.List.
package eratmedium

import (
	"github.com/jannismilz/primesieve/bucket"
	"github.com/jannismilz/primesieve/sieveerr"
	"github.com/jannismilz/primesieve/wheel"
)

// EratMedium owns sieving primes in (lowLimit, highLimit].
type EratMedium struct {
	stop      uint64
	lowLimit  uint64
	highLimit uint64
	pool      bucket.Pool
	list      *bucket.List
}

// New returns an EratMedium tier for primes in (lowLimit, highLimit],
// sieving up to stop.
func New(stop, lowLimit, highLimit uint64) *EratMedium {
	em := &EratMedium{stop: stop, lowLimit: lowLimit, highLimit: highLimit}
	em.list = bucket.NewList(&em.pool)
	return em
}

// HighLimit returns the upper bound (inclusive) of primes this tier owns.
func (em *EratMedium) HighLimit() uint64 { return em.highLimit }

// Add inserts sieving prime p. Its first multiple to cross off is the
// smallest wheel-representable multiple of p that is >= p*p and >=
// segmentLow+2 (segmentLow+1 is held by the byte before the segment),
// stored as an offset relative to segmentLow.
func (em *EratMedium) Add(p, segmentLow uint64) error {
	if p == 0 {
		return sieveerr.Precondition("eratmedium: prime must be > 0")
	}
	lower := p * p
	if segmentLow+2 > lower {
		lower = segmentLow + 2
	}
	m, idx := wheel.FirstMultiple(p, lower)
	off := (m - segmentLow - wheel.BitValues[idx]) / wheel.NumbersPerByte
	em.list.Add(bucket.Entry{Prime: p, ByteOffset: uint32(off), WheelIndex: uint8(idx)})
	return nil
}

// CrossOff clears every owned prime's hits within the current segment,
// advances each prime's offset past the segment (possibly landing beyond
// it, ready for a future segment), and drops primes whose next multiple
// now exceeds stop.
func (em *EratMedium) CrossOff(bitmap []byte, segmentLow uint64) {
	sieveSize := uint64(len(bitmap))
	em.list.Each(func(b *bucket.Bucket) bool {
		entries := b.Entries()
		for i, e := range entries {
			p := uint64(e.Prime)
			off := uint64(e.ByteOffset)
			idx := uint(e.WheelIndex)
			for off < sieveSize {
				bitmap[off] &^= 1 << idx
				off, idx = wheel.StepOffset(off, p, idx)
			}
			b.Set(i, bucket.Entry{Prime: p, ByteOffset: uint32(off - sieveSize), WheelIndex: uint8(idx)})
		}
		return true
	})

	em.list.Filter(func(e bucket.Entry) bool {
		m := segmentLow + sieveSize*wheel.NumbersPerByte + uint64(e.ByteOffset)*wheel.NumbersPerByte + wheel.BitValues[e.WheelIndex]
		return m <= em.stop
	})
}

// Empty reports whether the tier currently owns no sieving primes.
func (em *EratMedium) Empty() bool { return em.list.Empty() }

// Close releases the tier's buckets back to its pool.
func (em *EratMedium) Close() {
	em.list.Release()
}
