// Package parallel runs several independent sieve.Engine instances over
// disjoint sub-intervals concurrently, the way spec.md's concurrency model
// anticipates ("an external driver may instantiate N engines over disjoint
// sub-intervals and run them in parallel threads"). The worker pool is
// grounded in jannismilz-primes' strong_goldbach processChunks: a buffered
// channel of chunk descriptors drained by a fixed number of goroutines,
// synchronized with sync.WaitGroup.
package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/jannismilz/primesieve/sieve"
	"github.com/jannismilz/primesieve/smallprimes"
	"github.com/jannismilz/primesieve/wheel"
)

// Sink receives each finalized segment, tagged with the chunk index it came
// from, so callers can tell which sub-interval a segment belongs to even
// though segments from different chunks may be delivered out of order
// relative to each other (though always in order within a chunk).
type Sink func(chunkIndex int, bitmap []byte, segmentLow uint64)

type chunk struct {
	index       int
	start, stop uint64
}

// Run splits [cfg.Start, cfg.Stop] into chunk-sized, wheel-aligned
// sub-intervals and sieves each with its own sieve.Engine, in parallel
// across workers goroutines. Every worker shares one smallprimes.Producer
// (sieved once, up front, up to sqrt(cfg.Stop)) as a read-only source of
// sieving primes, per spec.md §5's "shared read-only source of primes <=
// sqrt(stop)" allowance. The first error from any chunk cancels the rest
// and is returned; partial results already delivered to sink are not
// rolled back.
func Run(ctx context.Context, cfg sieve.Config, workers int, chunkSize uint64, sink Sink) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}
	if chunkSize == 0 {
		chunkSize = cfg.Stop - cfg.Start + 1
	}

	chunks := splitChunks(cfg.Start, cfg.Stop, chunkSize)

	sqrtStop := wheel.Isqrt(cfg.Stop)
	producer := smallprimes.New(sqrtStop)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunkChan := make(chan chunk, len(chunks))
	for _, c := range chunks {
		chunkChan <- c
	}
	close(chunkChan)

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunkChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := runChunk(ctx, cfg, c, producer, sink); err != nil {
					errs <- fmt.Errorf("parallel: chunk %d [%d,%d]: %w", c.index, c.start, c.stop, err)
					cancel()
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		return err
	}
	return nil
}

func runChunk(ctx context.Context, cfg sieve.Config, c chunk, producer *smallprimes.Producer, sink Sink) error {
	chunkCfg := cfg
	chunkCfg.Start = c.start
	chunkCfg.Stop = c.stop

	eng, err := sieve.New(chunkCfg, func(bitmap []byte, segmentLow uint64) bool {
		sink(c.index, bitmap, segmentLow)
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	chunkSqrtStop := wheel.Isqrt(c.stop)
	local := producer.Cursor()
	for {
		p, ok := local.Next()
		if !ok {
			break
		}
		if p > chunkSqrtStop {
			break
		}
		if p < 7 {
			continue
		}
		if err := eng.AddSievingPrime(p); err != nil {
			return err
		}
	}

	return eng.Run()
}

// splitChunks partitions [start, stop] into sub-intervals of roughly
// chunkSize, aligned so each boundary m satisfies m mod 30 == 29 — the
// split round-trip property from spec.md §8 requires this alignment, since
// it's the boundary value the property is stated in terms of.
func splitChunks(start, stop, chunkSize uint64) []chunk {
	var chunks []chunk
	idx := 0
	lo := start
	for lo <= stop {
		hi := lo + chunkSize - 1
		if hi >= stop {
			hi = stop
		} else {
			hi = alignToWheelBoundary(hi)
			if hi < lo {
				hi = stop
			}
		}
		chunks = append(chunks, chunk{index: idx, start: lo, stop: hi})
		idx++
		lo = hi + 1
	}
	return chunks
}

// alignToWheelBoundary returns the largest m <= n with m mod 30 == 29.
func alignToWheelBoundary(n uint64) uint64 {
	base := (n / wheel.NumbersPerByte) * wheel.NumbersPerByte
	m := base + 29
	if m > n {
		m -= wheel.NumbersPerByte
	}
	return m
}
