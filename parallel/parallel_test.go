package parallel

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jannismilz/primesieve/sieve"
	"github.com/jannismilz/primesieve/wheel"
)

func decodeSegment(bitmap []byte, segmentLow uint64, into map[uint64]bool, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for i, b := range bitmap {
		for j := 0; j < 8; j++ {
			if b&(1<<j) != 0 {
				into[wheel.ToInteger(segmentLow, uint64(i), uint(j))] = true
			}
		}
	}
}

func runSingleEngine(t *testing.T, start, stop uint64) map[uint64]bool {
	t.Helper()
	cfg := sieve.Config{Start: start, Stop: stop, SieveSizeKiB: 4, PreSieveLimit: 17}
	result := map[uint64]bool{}
	var mu sync.Mutex

	eng, err := sieve.New(cfg, func(bitmap []byte, segmentLow uint64) bool {
		decodeSegment(bitmap, segmentLow, result, &mu)
		return false
	})
	require.NoError(t, err)
	defer eng.Close()

	sqrtStop := wheel.Isqrt(stop)
	for n := uint64(2); n <= sqrtStop; n++ {
		isPrime := true
		for d := uint64(2); d*d <= n; d++ {
			if n%d == 0 {
				isPrime = false
				break
			}
		}
		if isPrime && n >= 7 {
			require.NoError(t, eng.AddSievingPrime(n))
		}
	}
	require.NoError(t, eng.Run())
	return result
}

func TestRunMatchesSingleEngine(t *testing.T) {
	const start, stop = 7, 200_000
	cfg := sieve.Config{Start: start, Stop: stop, SieveSizeKiB: 4, PreSieveLimit: 17}

	result := map[uint64]bool{}
	var mu sync.Mutex

	err := Run(context.Background(), cfg, 4, 20_000, func(_ int, bitmap []byte, segmentLow uint64) {
		decodeSegment(bitmap, segmentLow, result, &mu)
	})
	require.NoError(t, err)

	want := runSingleEngine(t, start, stop)
	require.Equal(t, want, result)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := sieve.Config{Start: 100, Stop: 10, SieveSizeKiB: 4, PreSieveLimit: 17}
	err := Run(context.Background(), cfg, 2, 1000, func(int, []byte, uint64) {})
	require.Error(t, err)
}

func TestSplitChunksCoversIntervalContiguously(t *testing.T) {
	chunks := splitChunks(7, 100_000, 7919)
	require.NotEmpty(t, chunks)
	require.Equal(t, uint64(7), chunks[0].start)
	require.Equal(t, uint64(100_000), chunks[len(chunks)-1].stop)

	for i := 1; i < len(chunks); i++ {
		require.Equal(t, chunks[i-1].stop+1, chunks[i].start, "chunk %d not contiguous with %d", i, i-1)
	}
	for _, c := range chunks[:len(chunks)-1] {
		require.Equal(t, uint64(29), c.stop%30, "chunk boundary %d not aligned", c.stop)
	}
}

func TestRunSingleWorkerOrdersSegmentsAscending(t *testing.T) {
	const start, stop = 7, 50_000
	cfg := sieve.Config{Start: start, Stop: stop, SieveSizeKiB: 2, PreSieveLimit: 13}

	var mu sync.Mutex
	var lows []uint64
	err := Run(context.Background(), cfg, 1, stop-start+1, func(_ int, _ []byte, segmentLow uint64) {
		mu.Lock()
		lows = append(lows, segmentLow)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.True(t, sort.SliceIsSorted(lows, func(i, j int) bool { return lows[i] < lows[j] }))
}
