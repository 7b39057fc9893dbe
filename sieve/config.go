package sieve

import (
	"github.com/jannismilz/primesieve/eratbig"
	"github.com/jannismilz/primesieve/presieve"
	"github.com/jannismilz/primesieve/sieveerr"
	"github.com/jannismilz/primesieve/wheel"
)

// Default tier thresholds, expressed as multiples of the sieve size.
const (
	DefaultFactorSmall  = 0.75
	DefaultFactorMedium = 9.0
)

// Config holds the construction-time parameters for an Engine.
type Config struct {
	Start, Stop   uint64
	SieveSizeKiB  uint32
	PreSieveLimit uint32

	// FactorSmall and FactorMedium set the tier thresholds: primes up to
	// FactorSmall*sieveSize go to EratSmall, up to FactorMedium*sieveSize
	// to EratMedium, the rest (up to sqrt(Stop)) to EratBig. Zero values
	// are replaced by DefaultFactorSmall/DefaultFactorMedium.
	FactorSmall, FactorMedium float64
}

func (c Config) factorSmall() float64 {
	if c.FactorSmall == 0 {
		return DefaultFactorSmall
	}
	return c.FactorSmall
}

func (c Config) factorMedium() float64 {
	if c.FactorMedium == 0 {
		return DefaultFactorMedium
	}
	return c.FactorMedium
}

// sieveSizeBytes returns the configured sieve size in bytes, floored to the
// nearest power of two. It does not re-validate the [1,4096] KiB range;
// callers must call Validate first.
func (c Config) sieveSizeBytes() uint64 {
	return uint64(wheel.FloorPowerOf2(c.SieveSizeKiB)) * 1024
}

// Validate enforces the engine's construction preconditions. sieveSizeKiB
// values inside [1,4096] that aren't already a power of two are silently
// floored by sieveSizeBytes, not rejected; only out-of-range values and the
// other listed preconditions are errors.
func (c Config) Validate() error {
	if c.Start < 7 {
		return sieveerr.Precondition("sieve: start must be >= 7, got %d", c.Start)
	}
	if c.Start > c.Stop {
		return sieveerr.Precondition("sieve: start %d exceeds stop %d", c.Start, c.Stop)
	}
	if c.Stop > eratbig.MaxStop {
		return sieveerr.Precondition("sieve: stop %d exceeds max stop %d", c.Stop, eratbig.MaxStop)
	}
	if c.SieveSizeKiB < 1 || c.SieveSizeKiB > 4096 {
		return sieveerr.Precondition("sieve: sieveSizeKiB %d out of range [1,4096]", c.SieveSizeKiB)
	}
	if c.PreSieveLimit < presieve.MinLimit || c.PreSieveLimit > presieve.MaxLimit {
		return sieveerr.Precondition(
			"sieve: preSieveLimit %d out of range [%d,%d]", c.PreSieveLimit, presieve.MinLimit, presieve.MaxLimit)
	}
	return nil
}

// MaxStop returns the hard upper bound on Stop the engine can support.
func MaxStop() uint64 { return eratbig.MaxStop }
