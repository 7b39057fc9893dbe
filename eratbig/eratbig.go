// Package eratbig implements the EratBig tier: sieving primes p with
// FACTOR_MEDIUM*sieveSize < p <= sqrt(stop). Such a prime hits a given
// segment only a few times at most (often zero times), so state is
// organized as N per-segment bucket lists, one per future segment offset,
// rotated one slot every time a segment finishes. See spec.md §4.5.
package eratbig

import (
	"github.com/jannismilz/primesieve/bucket"
	"github.com/jannismilz/primesieve/sieveerr"
	"github.com/jannismilz/primesieve/wheel"
)

// MaxStop is the hard upper bound on stop the tier can support: the
// largest single-hit multiple-stride computation (2*p, p up to sqrt(stop))
// must stay clear of uint64 overflow, per spec.md's precondition
// "stop <= 2^64 - 10*2^32".
const MaxStop = uint64(1<<32) * (uint64(1<<32) - 10)

// EratBig owns sieving primes > lowLimit, up to sqrt(stop).
type EratBig struct {
	stop      uint64
	lowLimit  uint64
	sieveSize uint64 // bytes
	n         uint64 // ring size: number of per-segment bucket lists
	pool      bucket.Pool
	lists     []*bucket.List
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// New returns an EratBig tier for primes in (lowLimit, sqrtStop], sieving
// segments of sieveSizeBytes bytes up to stop.
func New(stop, sieveSizeBytes, lowLimit, sqrtStop uint64) *EratBig {
	// A single wheel step advances at most 6 multiples of p (the widest
	// gap between the eight wheel residues), so no prime can skip more
	// than 6*sqrtStop/30 bytes in one hit; 29*sqrtStop/30 is used as a
	// looser upper bound.
	maxSkipBytes := ceilDiv(29*sqrtStop, wheel.NumbersPerByte) + 1
	n := ceilDiv(maxSkipBytes, sieveSizeBytes) + 1
	if n < 2 {
		n = 2
	}

	eb := &EratBig{stop: stop, lowLimit: lowLimit, sieveSize: sieveSizeBytes, n: n}
	eb.lists = make([]*bucket.List, n)
	for i := range eb.lists {
		eb.lists[i] = bucket.NewList(&eb.pool)
	}
	return eb
}

// LowLimit returns the exclusive lower bound of primes this tier owns.
func (eb *EratBig) LowLimit() uint64 { return eb.lowLimit }

// Add inserts sieving prime p. Its first multiple is the smallest
// wheel-representable multiple of p that is >= p*p and >= segmentLow+2
// (segmentLow+1 is held by the byte before the segment).
func (eb *EratBig) Add(p, segmentLow uint64) error {
	if p == 0 {
		return sieveerr.Precondition("eratbig: prime must be > 0")
	}
	lower := p * p
	if segmentLow+2 > lower {
		lower = segmentLow + 2
	}
	m, idx := wheel.FirstMultiple(p, lower)
	total := (m - segmentLow - wheel.BitValues[idx]) / wheel.NumbersPerByte
	segOffset := total / eb.sieveSize
	within := total % eb.sieveSize
	if segOffset >= eb.n {
		return sieveerr.Precondition("eratbig: prime %d's first hit is %d segments out, ring only holds %d", p, segOffset, eb.n)
	}
	eb.lists[segOffset].Add(bucket.Entry{Prime: p, ByteOffset: uint32(within), WheelIndex: uint8(idx)})
	return nil
}

// CrossOff clears every hit each due prime has in the current segment,
// reschedules each into the bucket list for its next hit in a later
// segment, drops primes whose next multiple now exceeds stop, and rotates
// the ring so lists[0] is ready for the following segment.
func (eb *EratBig) CrossOff(bitmap []byte, segmentLow uint64) error {
	due := eb.lists[0]

	var firstErr error
	due.Each(func(b *bucket.Bucket) bool {
		for _, e := range b.Entries() {
			bitmap[e.ByteOffset] &^= 1 << e.WheelIndex

			newOff, newIdx := wheel.StepOffset(uint64(e.ByteOffset), e.Prime, uint(e.WheelIndex))
			for newOff < eb.sieveSize {
				bitmap[newOff] &^= 1 << newIdx
				newOff, newIdx = wheel.StepOffset(newOff, e.Prime, newIdx)
			}
			m := segmentLow + newOff*wheel.NumbersPerByte + wheel.BitValues[newIdx]
			if m > eb.stop {
				continue
			}

			segOffset := newOff / eb.sieveSize
			within := newOff % eb.sieveSize
			if segOffset == 0 || segOffset >= eb.n {
				firstErr = sieveerr.Precondition(
					"eratbig: prime %d's next hit is %d segments out, ring only holds %d", e.Prime, segOffset, eb.n)
				return false
			}
			eb.lists[segOffset].Add(bucket.Entry{Prime: e.Prime, ByteOffset: uint32(within), WheelIndex: uint8(newIdx)})
		}
		return true
	})
	if firstErr != nil {
		return firstErr
	}

	due.Release()
	copy(eb.lists, eb.lists[1:])
	eb.lists[eb.n-1] = bucket.NewList(&eb.pool)
	return nil
}

// Empty reports whether the tier currently owns no sieving primes, across
// every slot of the ring.
func (eb *EratBig) Empty() bool {
	for _, l := range eb.lists {
		if !l.Empty() {
			return false
		}
	}
	return true
}

// Close releases every bucket list's buckets back to the pool.
func (eb *EratBig) Close() {
	for _, l := range eb.lists {
		l.Release()
	}
}
