package eratmedium

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jannismilz/primesieve/wheel"
)

func decode(bitmap []byte, segmentLow uint64) map[uint64]bool {
	out := map[uint64]bool{}
	for i, b := range bitmap {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				out[wheel.ToInteger(segmentLow, uint64(i), uint(bit))] = true
			}
		}
	}
	return out
}

func TestCrossOffClearsCompositesOfOwnedPrime(t *testing.T) {
	em := New(100000, 100, 10000)
	require.NoError(t, em.Add(101, 0))

	bitmap := make([]byte, 1024) // covers [0, 30720)
	for i := range bitmap {
		bitmap[i] = 0xff
	}
	em.CrossOff(bitmap, 0)

	set := decode(bitmap, 0)
	// sieving starts at p*p = 10201, never at smaller multiples such as
	// 101*7 (those are removed by the prime 7's own tier, not this one).
	require.False(t, set[10201]) // 101*101
	require.False(t, set[10807]) // 101*107, mod30=7, representable
	require.True(t, set[101])
}

func TestCrossOffAdvancesAcrossSegments(t *testing.T) {
	const p = 137 // p*p = 18769
	em := New(1_000_000, 100, 10000)
	require.NoError(t, em.Add(p, 0))

	sieveSize := 64 // covers 1920 integers per segment
	segmentLow := uint64(0)
	found := false
	for i := 0; i < 12; i++ {
		bitmap := make([]byte, sieveSize)
		for j := range bitmap {
			bitmap[j] = 0xff
		}
		em.CrossOff(bitmap, segmentLow)
		set := decode(bitmap, segmentLow)
		if !set[p*p] && segmentLow <= p*p && p*p < segmentLow+uint64(sieveSize)*wheel.NumbersPerByte {
			found = true
		}
		segmentLow += uint64(sieveSize) * wheel.NumbersPerByte
	}
	require.True(t, found, "p*p should be cleared in the segment containing it")
	require.False(t, em.Empty())
}

func TestCrossOffDropsPrimesPastStop(t *testing.T) {
	em := New(1000, 100, 10000)
	require.NoError(t, em.Add(997, 0))
	bitmap := make([]byte, 8)
	for i := range bitmap {
		bitmap[i] = 0xff
	}
	em.CrossOff(bitmap, 0)
	require.True(t, em.Empty())
}
