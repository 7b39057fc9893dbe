// Package sieve implements the segmented, mod-30 wheel-factorized sieve of
// Eratosthenes engine: it owns the segment bitmap and the three sieving-prime
// tiers (EratSmall, EratMedium, EratBig), walks [start, stop] segment by
// segment, and hands each finished segment to a sink.
package sieve

import (
	"github.com/jannismilz/primesieve/eratbig"
	"github.com/jannismilz/primesieve/eratmedium"
	"github.com/jannismilz/primesieve/eratsmall"
	"github.com/jannismilz/primesieve/presieve"
	"github.com/jannismilz/primesieve/sieveerr"
	"github.com/jannismilz/primesieve/wheel"
)

// Sink receives each finalized segment. bitmap's bit semantics: for byte
// index i, bit j set means segmentLow + i*30 + wheel.BitValues[j] is a
// candidate prime not ruled out. Returning true requests the engine stop
// after this segment; the current segment is always delivered in full —
// there is no within-segment early stop.
//
// Passing segmentLow explicitly (rather than having the sink reach into
// engine state, as the original callback does) keeps the sink a plain
// function with no hidden coupling to the engine that invokes it.
type Sink func(bitmap []byte, segmentLow uint64) (requestStop bool)

// Engine sieves [start, stop] and delivers segments to a Sink. Construct
// with New, feed sieving primes via AddSievingPrime in ascending order, then
// call Run. Always call Close when done, even on error paths.
type Engine struct {
	cfg       Config
	sieveSize uint64 // bytes
	sink      Sink

	limitPreSieve   uint64
	limitEratSmall  uint64
	limitEratMedium uint64
	lastPrimeAdded  uint64
	havePrime       bool

	pre    *presieve.PreSieve
	small  *eratsmall.EratSmall
	medium *eratmedium.EratMedium
	big    *eratbig.EratBig

	bitmap      []byte
	segmentLow  uint64
	segmentHigh uint64
	firstSeg    bool
	closed      bool
}

// New validates cfg and constructs an Engine ready to receive sieving
// primes. On any error, every tier already constructed is released before
// returning.
func New(cfg Config, sink Sink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sieveSize := cfg.sieveSizeBytes()
	sqrtStop := wheel.Isqrt(cfg.Stop)

	e := &Engine{
		cfg:             cfg,
		sieveSize:       sieveSize,
		sink:            sink,
		limitPreSieve:   uint64(cfg.PreSieveLimit),
		limitEratSmall:  uint64(cfg.factorSmall() * float64(sieveSize)),
		limitEratMedium: uint64(cfg.factorMedium() * float64(sieveSize)),
		firstSeg:        true,
	}

	e.pre = presieve.New(cfg.PreSieveLimit)
	e.small = eratsmall.New(cfg.Stop, e.limitEratSmall)
	e.medium = eratmedium.New(cfg.Stop, e.limitEratSmall, e.limitEratMedium)
	e.big = eratbig.New(cfg.Stop, sieveSize, e.limitEratMedium, sqrtStop)

	e.bitmap = make([]byte, sieveSize)
	e.segmentLow = cfg.Start - wheel.ByteRemainder(cfg.Start)
	e.segmentHigh = e.segmentLow + sieveSize*wheel.NumbersPerByte - 1

	return e, nil
}

// AddSievingPrime routes p to the tier its magnitude belongs to: discarded
// (already handled by the pre-sieve mask) if p <= the pre-sieve limit, else
// EratSmall, EratMedium, or EratBig in ascending order of threshold. Callers
// — the external small-prime producer — must call this in strictly
// ascending p order for every prime 7 <= p <= sqrt(stop).
//
// When FactorSmall*sieveSize happens to fall below the pre-sieve limit (tiny
// sieve sizes), the EratSmall branch below is simply never reached for any
// remaining p, since every such p already exceeds limitPreSieve >
// limitEratSmall; no special-casing is needed.
func (e *Engine) AddSievingPrime(p uint64) error {
	if p == 0 {
		return sieveerr.Precondition("sieve: sieving prime must be > 0")
	}
	if e.havePrime && p <= e.lastPrimeAdded {
		return sieveerr.Precondition("sieve: sieving primes must be added in ascending order, got %d after %d", p, e.lastPrimeAdded)
	}
	e.lastPrimeAdded = p
	e.havePrime = true

	var err error
	switch {
	case p <= e.limitPreSieve:
		// handled by the pre-sieve mask; nothing to store
	case p <= e.limitEratSmall:
		err = e.small.Add(p, e.segmentLow)
	case p <= e.limitEratMedium:
		err = e.medium.Add(p, e.segmentLow)
	default:
		err = e.big.Add(p, e.segmentLow)
	}
	return err
}

// Run sieves every remaining segment up to stop, delivering each to the
// sink, until the interval is exhausted or the sink requests an early stop.
func (e *Engine) Run() error {
	if e.closed {
		return sieveerr.Precondition("sieve: engine is closed")
	}
	for {
		done, err := e.runSegment()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (e *Engine) runSegment() (done bool, err error) {
	bitmap := e.bitmap
	e.pre.DoIt(bitmap, e.segmentLow)

	if e.firstSeg {
		e.maskBelowStart(bitmap)
		e.firstSeg = false
	}

	e.small.CrossOff(bitmap, e.segmentLow)
	e.medium.CrossOff(bitmap, e.segmentLow)
	if err := e.big.CrossOff(bitmap, e.segmentLow); err != nil {
		return false, err
	}

	last := e.segmentHigh >= e.cfg.Stop
	deliver := bitmap
	if last {
		deliver = e.truncateFinalSegment(bitmap)
	}

	requestStop := e.sink(deliver, e.segmentLow)

	e.segmentLow += e.sieveSize * wheel.NumbersPerByte
	e.segmentHigh += e.sieveSize * wheel.NumbersPerByte

	return last || requestStop, nil
}

// maskBelowStart clears bits in the first byte that represent integers
// below the configured start, since the first segment's window may begin
// earlier than start (segmentLow is start - wheel.ByteRemainder(start),
// a multiple of 30 between 2 and 31 below start).
func (e *Engine) maskBelowStart(bitmap []byte) {
	for j := range wheel.BitValues {
		if wheel.ToInteger(e.segmentLow, 0, uint(j)) < e.cfg.Start {
			bitmap[0] &^= 1 << uint(j)
		}
	}
}

// truncateFinalSegment shrinks the delivered slice to just cover stop: it
// masks, across every delivered byte, the bits representing integers
// beyond stop, then zero-fills up to the next 8-byte boundary so callers
// that read the rounded length see only cleared bits past the true
// cutoff. The full sieveSize-byte backing array is always used for
// cross-off, so tier state computed against the full segment stays valid;
// only the delivered slice shrinks.
//
// Masking isn't confined to the last byte: bit value 31 (wheel.BitValues's
// last entry) represents the residue-1 integer of the *next* byte's
// window, packed a byte early. Whenever stop-segmentLow is a multiple of
// 30, that residue-1 integer (stop+1) is packed into the byte just before
// the one deliverLen's span would suggest is "last", so it has to be
// checked too; checking every delivered byte's bits against stop directly
// covers this without relying on where exactly the overflow can land.
func (e *Engine) truncateFinalSegment(bitmap []byte) []byte {
	span := e.cfg.Stop - e.segmentLow + 1
	deliverLen := (span + wheel.NumbersPerByte - 1) / wheel.NumbersPerByte
	if deliverLen < 1 {
		deliverLen = 1
	}
	if deliverLen > uint64(len(bitmap)) {
		deliverLen = uint64(len(bitmap))
	}

	for i := uint64(0); i < deliverLen; i++ {
		for j := range wheel.BitValues {
			if wheel.ToInteger(e.segmentLow, i, uint(j)) > e.cfg.Stop {
				bitmap[i] &^= 1 << uint(j)
			}
		}
	}

	roundedLen := (deliverLen + 7) / 8 * 8
	if roundedLen > uint64(len(bitmap)) {
		roundedLen = uint64(len(bitmap))
	}
	for i := deliverLen; i < roundedLen; i++ {
		bitmap[i] = 0
	}
	return bitmap[:roundedLen]
}

// Close releases the engine's tiers. Safe to call more than once.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	if e.medium != nil {
		e.medium.Close()
	}
	if e.big != nil {
		e.big.Close()
	}
	e.closed = true
}
