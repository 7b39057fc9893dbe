package cpuinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectNeverFails(t *testing.T) {
	info, err := Detect()
	require.NoError(t, err)
	require.Greater(t, info.L1D, 0)
	require.Greater(t, info.L2, 0)
	require.GreaterOrEqual(t, info.PhysicalCores, 1)
}

func TestPickSieveSizeIsPowerOfTwoInRange(t *testing.T) {
	cases := []Info{
		{L1D: 32 * 1024, L2: 256 * 1024},
		{L1D: 48 * 1024, L2: 1024 * 1024},
		{L1D: 0, L2: 0},
		{L1D: 32 * 1024, L2: 0},
		{L1D: 32 * 1024, L2: 100 * 1024 * 1024}, // forces clamp to 4096 KiB
	}
	for _, info := range cases {
		kib := PickSieveSize(info)
		require.GreaterOrEqual(t, kib, uint32(1))
		require.LessOrEqual(t, kib, uint32(4096))
		require.Equal(t, kib&(kib-1), uint32(0), "kib=%d not a power of two", kib)
	}
}
