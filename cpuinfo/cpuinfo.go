// Package cpuinfo detects cache sizes and picks a sieve segment size that
// fits comfortably inside them, the way jannismilz-primes' strong_goldbach
// reaches for github.com/klauspost/cpuid/v2 to read CPU.PhysicalCores and
// CPU.BrandName. Detection happens once per process; the result is an
// immutable value, not a package-level singleton.
package cpuinfo

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/jannismilz/primesieve/wheel"
)

// Info holds the cache sizes relevant to picking a sieve segment size, all
// in bytes. A size of 0 means "unknown".
type Info struct {
	L1D, L2, L3   int
	PhysicalCores int
}

// Detect reads cache sizes via cpuid.CPU.Cache, falling back to conservative
// fixed estimates when cpuid reports an unknown size — common in
// virtualized or containerized environments where the CPUID leaves aren't
// populated, the same gap original_source/src/primesieve/CpuInfo.cpp works
// around with per-OS syscalls. cpuid.Detect already folds in OS-level
// fallbacks (sysfs on Linux, sysctl on Darwin) before we ever see a zero
// here, so the constants below are a last resort, not the common path.
// Detect never fails; an all-unknown Info is itself a valid, usable result.
func Detect() (Info, error) {
	info := Info{
		L1D:           cpuid.CPU.Cache.L1D,
		L2:            cpuid.CPU.Cache.L2,
		L3:            cpuid.CPU.Cache.L3,
		PhysicalCores: cpuid.CPU.PhysicalCores,
	}

	if info.L1D <= 0 {
		info.L1D = 32 * 1024
	}
	if info.L2 <= 0 {
		info.L2 = 256 * 1024
	}
	if info.PhysicalCores <= 0 {
		info.PhysicalCores = 1
	}
	return info, nil
}

// PickSieveSize chooses the largest power-of-two segment size, in KiB,
// clamped to [1,4096], that fits within half of L2 (or half of L1D if L2 is
// unknown) — leaving headroom for the pre-sieve mask and bucket lists that
// share the same cache level during a segment's cross-off pass.
func PickSieveSize(info Info) uint32 {
	budget := info.L2
	if budget <= 0 {
		budget = info.L1D
	}
	if budget <= 0 {
		budget = 32 * 1024
	}
	budget /= 2

	kib := uint32(budget / 1024)
	kib = wheel.FloorPowerOf2(kib)
	return wheel.Clamp(kib, 1, 4096)
}
