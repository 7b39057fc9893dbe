// Command primesieve is a CLI front end for the segmented sieve engine: it
// wires cpuinfo's cache-size detection into a sieve.Config, feeds sieving
// primes from smallprimes, runs either a single sieve.Engine or a
// parallel.Run fleet, and either counts or prints the primes found. 2, 3,
// and 5 are prepended here, by the CLI, never by the engine itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jannismilz/primesieve/checkpoint"
	"github.com/jannismilz/primesieve/cpuinfo"
	"github.com/jannismilz/primesieve/parallel"
	"github.com/jannismilz/primesieve/sieve"
	"github.com/jannismilz/primesieve/smallprimes"
	"github.com/jannismilz/primesieve/wheel"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("primesieve failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("primesieve", flag.ContinueOnError)
	start := fs.Uint64("start", 7, "start of the interval to sieve (inclusive)")
	stop := fs.Uint64("stop", 1_000_000, "end of the interval to sieve (inclusive)")
	sieveKiB := fs.Uint("sieve-kib", 0, "segment size in KiB, power of two in [1,4096]; 0 auto-detects from CPU cache")
	preSieveLimit := fs.Uint("presieve", 19, "pre-sieve limit in [13,23]")
	workers := fs.Int("workers", 1, "number of parallel chunk workers; 1 runs a single engine directly")
	countOnly := fs.Bool("count-only", false, "do not print the primes; the count appears only in the completion log on stderr")
	checkpointDB := fs.String("checkpoint-db", "", "path to a SQLite checkpoint database; empty disables resume support")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *workers > 1 && *checkpointDB != "" {
		return fmt.Errorf("primesieve: -checkpoint-db requires -workers=1 (parallel chunks complete out of order)")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	info, err := cpuinfo.Detect()
	if err != nil {
		return fmt.Errorf("primesieve: detect cpu info: %w", err)
	}

	sizeKiB := uint32(*sieveKiB)
	if sizeKiB == 0 {
		sizeKiB = cpuinfo.PickSieveSize(info)
	}
	logger.Info("starting sieve",
		"start", *start, "stop", *stop,
		"sieve_kib", sizeKiB, "presieve_limit", *preSieveLimit,
		"workers", *workers, "physical_cores", info.PhysicalCores)

	cfg := sieve.Config{
		Start:         *start,
		Stop:          *stop,
		SieveSizeKiB:  sizeKiB,
		PreSieveLimit: uint32(*preSieveLimit),
	}
	// 2, 3 and 5 are counted by the CLI below; the engine starts at 7.
	if cfg.Start < 7 {
		cfg.Start = 7
	}

	var store *checkpoint.Store
	var checkpointKey string
	count := uint64(0)
	resuming := false

	if *checkpointDB != "" {
		store, err = checkpoint.Open(*checkpointDB)
		if err != nil {
			return err
		}
		defer store.Close()

		checkpointKey = checkpoint.Key(*start, *stop, sizeKiB, uint32(*preSieveLimit))
		progress, found, err := store.Load(checkpointKey)
		if err != nil {
			return err
		}
		if found {
			logger.Info("resuming from checkpoint",
				"next_segment_low", progress.NextSegmentLow, "count_so_far", progress.Count)
			// NextSegmentLow+1 was delivered in the last byte of the
			// saved segment, so the resumed run starts just above it.
			cfg.Start = progress.NextSegmentLow + 2
			count = progress.Count
			resuming = true
		}
	}

	startTime := time.Now()
	if !resuming {
		for _, p := range []uint64{2, 3, 5} {
			if p >= *start && p <= *stop {
				count++
				if !*countOnly {
					fmt.Println(p)
				}
			}
		}
	}

	sieveSizeBytes := uint64(wheel.FloorPowerOf2(sizeKiB)) * 1024
	segments := 0
	onSegment := func(bitmap []byte, segmentLow uint64) {
		segments++
		for i, b := range bitmap {
			for j := 0; j < 8; j++ {
				if b&(1<<j) == 0 {
					continue
				}
				n := wheel.ToInteger(segmentLow, uint64(i), uint(j))
				count++
				if !*countOnly {
					fmt.Println(n)
				}
			}
		}
		if store != nil {
			nextLow := segmentLow + sieveSizeBytes*wheel.NumbersPerByte
			if err := store.Save(checkpointKey, *start, *stop, checkpoint.Progress{NextSegmentLow: nextLow, Count: count}); err != nil {
				logger.Warn("failed to save checkpoint", "error", err)
			}
		}
	}

	if *workers <= 1 {
		err = runSingle(cfg, onSegment)
	} else {
		err = runParallel(cfg, *workers, onSegment)
	}
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.Clear(checkpointKey); err != nil {
			logger.Warn("failed to clear checkpoint after completion", "error", err)
		}
	}

	logger.Info("sieve complete",
		"count", count, "segments", segments, "elapsed", time.Since(startTime))
	return nil
}

func runSingle(cfg sieve.Config, onSegment func(bitmap []byte, segmentLow uint64)) error {
	if cfg.Start > cfg.Stop {
		// nothing for the engine to do beyond the 2,3,5 special case above
		return nil
	}

	eng, err := sieve.New(cfg, func(bitmap []byte, segmentLow uint64) bool {
		onSegment(bitmap, segmentLow)
		return false
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	sqrtStop := wheel.Isqrt(cfg.Stop)
	producer := smallprimes.New(sqrtStop)
	for {
		p, ok := producer.Next()
		if !ok {
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

// runParallel sieves with workers concurrent chunk engines. Segments print
// as they complete: ascending within a chunk, but chunks themselves may
// finish in any order, so output across chunk boundaries may interleave.
// Sorting the output is left to the caller (e.g. pipe through `sort -n`);
// buffering it here would defeat the point of streaming delivery.
func runParallel(cfg sieve.Config, workers int, onSegment func(bitmap []byte, segmentLow uint64)) error {
	if cfg.Start > cfg.Stop {
		return nil
	}

	span := cfg.Stop - cfg.Start + 1
	chunkSize := span / uint64(workers)
	if chunkSize == 0 {
		chunkSize = span
	}

	return parallel.Run(context.Background(), cfg, workers, chunkSize, func(_ int, bitmap []byte, segmentLow uint64) {
		onSegment(bitmap, segmentLow)
	})
}

