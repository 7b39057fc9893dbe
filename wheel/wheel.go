// Package wheel provides the mod-30 wheel primitives shared by the
// segmented sieve tiers: bit <-> integer conversion, bit-scan-forward via a
// De Bruijn table, and the small integer helpers (isqrt, floor power of
// two) the rest of the engine builds on.
//
// Only integers n with n mod 30 in {1,7,11,13,17,19,23,29} are ever
// represented. Each byte of a segment covers 30 consecutive integers; bit j
// of that byte represents the residue BitValues[j].
package wheel

import "math/bits"

// NumbersPerByte is the span of integers a single sieve byte represents
// under the mod-30 wheel.
const NumbersPerByte = 30

// BitValues maps bit index 0..7 to the integer offset within a byte's
// 30-wide window it represents.
var BitValues = [8]uint64{7, 11, 13, 17, 19, 23, 29, 31}

// bruijnBitValues maps a De Bruijn bit-scan index (bits 58..63 of
// (b^(b-1))*debruijn64) to the integer offset the lowest set bit of a
// byte represents, ported from soe::SieveOfEratosthenes::bruijnBitValues_.
var bruijnBitValues = [64]uint64{
	7, 47, 11, 49, 67, 113, 13, 53,
	89, 71, 161, 101, 119, 187, 17, 233,
	59, 79, 91, 73, 133, 139, 163, 103,
	149, 121, 203, 169, 191, 217, 19, 239,
	43, 61, 109, 83, 157, 97, 181, 229,
	77, 131, 137, 143, 199, 167, 211, 41,
	107, 151, 179, 227, 127, 197, 209, 37,
	173, 223, 193, 31, 221, 29, 23, 241,
}

// debruijn64 isolates the lowest set bit's position in a byte via
// multiplication, avoiding a hardware bit-scan intrinsic.
const debruijn64 = 0x03f08a4c6acb9dbd

// NextBitValue returns the integer offset (within the byte's 30-wide
// window) represented by the lowest set bit of byte. b must be non-zero.
func NextBitValue(b byte) uint64 {
	x := uint64(b)
	idx := ((x ^ (x - 1)) * debruijn64) >> 58
	return bruijnBitValues[idx]
}

// Locate maps an integer n (with n >= segmentLow and n one of the eight
// wheel residues mod 30) to the (byteOffset, bitIndex) pair representing
// it within a segment starting at segmentLow. Byte i represents the window
// (segmentLow+i*30, segmentLow+i*30+30], so bit value 31 of byte i stands
// for the residue-1 integer of byte i+1's window, packed a byte early.
func Locate(n, segmentLow uint64) (byteOffset uint64, bitIndex uint, ok bool) {
	diff := n - segmentLow
	for i, v := range BitValues {
		if diff >= v && (diff-v)%NumbersPerByte == 0 {
			return (diff - v) / NumbersPerByte, uint(i), true
		}
	}
	return 0, 0, false
}

// ToInteger is the inverse of Locate: it recovers the integer a given
// (byteOffset, bitIndex) pair represents within a segment starting at
// segmentLow.
func ToInteger(segmentLow, byteOffset uint64, bitIndex uint) uint64 {
	return segmentLow + byteOffset*NumbersPerByte + BitValues[bitIndex]
}

// Isqrt returns the exact floor of the integer square root of n.
func Isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	r := uint64(1) << ((bits.Len64(n) + 1) / 2)
	for {
		next := (r + n/r) / 2
		if next >= r {
			return r
		}
		r = next
	}
}

// FloorPowerOf2 returns the largest power of two <= n, or 1 if n == 0.
func FloorPowerOf2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	return uint32(1) << (bits.Len32(n) - 1)
}

// Clamp constrains n to [lo, hi].
func Clamp(n, lo, hi uint32) uint32 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// ByteRemainder returns n mod 30, with 0 and 1 lifted to 30 and 31, so the
// result lies in [2, 31]. n - ByteRemainder(n) is a multiple of 30 whose
// first byte still covers n: this is how the engine aligns segmentLow.
func ByteRemainder(n uint64) uint64 {
	r := n % NumbersPerByte
	if r <= 1 {
		r += NumbersPerByte
	}
	return r
}

// ResidueIndex returns the bit index of the wheel residue mod30, if mod30
// is one of the eight representable residues.
func ResidueIndex(mod30 uint64) (idx uint, ok bool) {
	for i, v := range BitValues {
		if v%NumbersPerByte == mod30 {
			return uint(i), true
		}
	}
	return 0, false
}

// NextWheelHit returns, for a sieving prime p currently sitting at wheel
// bit index idx, how many more multiples of p (strideK) to add to reach
// the next wheel-representable multiple, and the wheel bit index that
// multiple lands on. p must be coprime to 30 (true for every prime > 5).
//
// This replaces the original engine's static 8x8 per-residue jump table
// with an equivalent value computed on the fly from p mod 30: since p is
// invertible mod 30, stepping k forward by one sweeps through all 30
// residues bijectively, so the sequence of wheel hits (and the gaps
// between them) depends only on p mod 30, not on p itself.
func NextWheelHit(p uint64, idx uint) (strideK uint64, nextIdx uint) {
	pm := p % NumbersPerByte
	vr := BitValues[idx] % NumbersPerByte

	var k0 uint64
	for k := uint64(0); k < NumbersPerByte; k++ {
		if (k*pm)%NumbersPerByte == vr {
			k0 = k
			break
		}
	}
	for step := uint64(1); step <= NumbersPerByte; step++ {
		w := ((k0+step)%NumbersPerByte*pm) % NumbersPerByte
		if ni, ok := ResidueIndex(w); ok {
			return step, ni
		}
	}
	// Unreachable: every 30-residue window contains exactly 8 wheel hits.
	panic("wheel: no next hit found")
}

// StepOffset advances a (byteOffset, wheelIndex) pair — byteOffset counted
// from whichever segment's segmentLow the pair is relative to — to the
// next wheel-representable multiple of p, without needing the absolute
// integer value. This is what lets EratMedium and EratBig store compact
// per-segment offsets (bucket.Entry) instead of a full uint64 per prime.
//
// Derivation: if m = segmentLow + off*30 + BitValues[idx] and
// m' = m + strideK*p = segmentLow + off'*30 + BitValues[nextIdx], then
// off' = off + (strideK*p + BitValues[idx] - BitValues[nextIdx]) / 30,
// and that division is always exact because off and off' are each exact
// by construction (Locate/ToInteger) and segmentLow cancels out.
func StepOffset(off, p uint64, idx uint) (newOff uint64, newIdx uint) {
	strideK, nextIdx := NextWheelHit(p, idx)
	delta := strideK*p + BitValues[idx] - BitValues[nextIdx]
	return off + delta/NumbersPerByte, nextIdx
}

// FirstMultiple returns the smallest wheel-representable multiple of p
// that is >= lowerBound, and the wheel bit index it lands on. p must be a
// prime > 5.
func FirstMultiple(p, lowerBound uint64) (value uint64, idx uint) {
	if lowerBound < p {
		lowerBound = p
	}
	k := lowerBound / p
	if k*p < lowerBound {
		k++
	}
	if k%2 == 0 {
		k++
	}
	for {
		m := k * p
		if i, ok := ResidueIndex(m % NumbersPerByte); ok {
			return m, i
		}
		k += 2
	}
}
