package wheel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateRoundTrip(t *testing.T) {
	segmentLow := uint64(0)
	for _, v := range BitValues {
		n := v
		off, idx, ok := Locate(n, segmentLow)
		require.True(t, ok, "n=%d", n)
		require.Equal(t, n, ToInteger(segmentLow, off, idx))
	}
	// second window: segmentLow+30+7 == 37
	off, idx, ok := Locate(37, segmentLow)
	require.True(t, ok)
	require.Equal(t, uint64(1), off)
	require.Equal(t, uint(0), idx)
}

func TestLocateRejectsNonWheelResidue(t *testing.T) {
	for _, n := range []uint64{0, 2, 3, 4, 5, 6, 8, 9, 10, 30} {
		_, _, ok := Locate(n, 0)
		require.False(t, ok, "n=%d should not be a wheel residue", n)
	}
}

func TestNextBitValueMatchesBitIndex(t *testing.T) {
	for i, v := range BitValues {
		var b byte = 1 << uint(i)
		require.Equal(t, v, NextBitValue(b), "bit %d", i)
	}
}

func TestNextBitValueLowestSetBit(t *testing.T) {
	// 0b00101000 -> bit 3 set lowest among {3,5}
	b := byte(1<<3 | 1<<5)
	require.Equal(t, BitValues[3], NextBitValue(b))
}

func TestIsqrt(t *testing.T) {
	cases := map[uint64]uint64{
		0: 0, 1: 1, 2: 1, 3: 1, 4: 2, 8: 2, 9: 3, 10: 3,
		1_000_000: 1000,
		(1 << 62): 1 << 31,
	}
	for n, want := range cases {
		require.Equal(t, want, Isqrt(n), "n=%d", n)
	}
	// near the top of the representable range
	big := ^uint64(0)
	r := Isqrt(big)
	require.LessOrEqual(t, r*r, big)
}

func TestFloorPowerOf2(t *testing.T) {
	require.Equal(t, uint32(1), FloorPowerOf2(0))
	require.Equal(t, uint32(1), FloorPowerOf2(1))
	require.Equal(t, uint32(4), FloorPowerOf2(5))
	require.Equal(t, uint32(4096), FloorPowerOf2(4096))
	require.Equal(t, uint32(4096), FloorPowerOf2(5000))
}

func TestClamp(t *testing.T) {
	require.Equal(t, uint32(1), Clamp(0, 1, 4096))
	require.Equal(t, uint32(4096), Clamp(5000, 1, 4096))
	require.Equal(t, uint32(32), Clamp(32, 1, 4096))
}

func TestNextWheelHitStaysOnWheel(t *testing.T) {
	for _, p := range []uint64{7, 11, 13, 17, 97, 101} {
		m, idx := FirstMultiple(p, p*p)
		for i := 0; i < 50; i++ {
			strideK, nextIdx := NextWheelHit(p, idx)
			require.Greater(t, strideK, uint64(0))
			m += strideK * p
			_, ok := ResidueIndex(m % NumbersPerByte)
			require.True(t, ok, "p=%d m=%d not a wheel residue", p, m)
			idx = nextIdx
		}
	}
}

func TestFirstMultiple(t *testing.T) {
	m, idx := FirstMultiple(7, 49)
	require.Equal(t, uint64(49), m)
	require.Equal(t, uint64(0), m%7)
	_, ok := ResidueIndex(m % NumbersPerByte)
	require.True(t, ok)
	_ = idx

	m2, _ := FirstMultiple(11, 11*11)
	require.GreaterOrEqual(t, m2, uint64(121))
	require.Zero(t, m2%11)
}

func TestStepOffsetMatchesAbsoluteTracking(t *testing.T) {
	segmentLow := uint64(1_000_000_020) // multiple of 30
	for _, p := range []uint64{7, 11, 23, 101} {
		m, idx := FirstMultiple(p, segmentLow)
		off := (m - segmentLow - BitValues[idx]) / NumbersPerByte
		for i := 0; i < 20; i++ {
			strideK, wantIdx := NextWheelHit(p, idx)
			wantM := m + strideK*p

			gotOff, gotIdx := StepOffset(off, p, idx)
			require.Equal(t, wantIdx, gotIdx)
			require.Equal(t, wantM, ToInteger(segmentLow, gotOff, gotIdx))

			m, idx, off = wantM, wantIdx, gotOff
		}
	}
}

func TestByteRemainder(t *testing.T) {
	require.Equal(t, uint64(30), ByteRemainder(0))
	require.Equal(t, uint64(31), ByteRemainder(1))
	require.Equal(t, uint64(7), ByteRemainder(7))
	require.Equal(t, uint64(30), ByteRemainder(30))
	require.Equal(t, uint64(31), ByteRemainder(31))
}
