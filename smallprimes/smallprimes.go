// Package smallprimes provides a lazy, ascending producer of primes up to a
// limit — the "external small-prime producer" the segmented sieve engine
// pulls sieving primes from. It's a plain flat-bitmap sieve, not
// wheel-factorized: it only ever runs once, up to sqrt(stop), which stays
// small relative to stop, so the constant-factor win of wheel factorization
// isn't worth the complexity here. Grounded in jannismilz-primes'
// strong_goldbach SimpleSieve/sieve_50k.
package smallprimes

import "context"

// Producer yields primes in [0, limit] in strictly ascending order.
type Producer struct {
	composite []bool
	next      int
}

// New returns a Producer over primes in [0, limit], sieved eagerly up
// front; Next then just walks the precomputed bitmap.
func New(limit uint64) *Producer {
	composite := make([]bool, limit+1)
	if len(composite) > 0 {
		composite[0] = true
	}
	if len(composite) > 1 {
		composite[1] = true
	}
	for i := uint64(2); i*i <= limit; i++ {
		if composite[i] {
			continue
		}
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return &Producer{composite: composite}
}

// Next returns the next prime in ascending order and true, or (0, false)
// once the limit is exhausted.
func (p *Producer) Next() (uint64, bool) {
	for p.next < len(p.composite) {
		n := p.next
		p.next++
		if !p.composite[n] {
			return uint64(n), true
		}
	}
	return 0, false
}

// Reset rewinds the producer so it can be replayed from the beginning.
func (p *Producer) Reset() { p.next = 0 }

// Cursor returns an independent walker over the same already-sieved
// bitmap, starting from the beginning. The bitmap itself is never mutated
// after New returns, so any number of cursors may read it concurrently —
// this is what lets parallel.Run share one sieved Producer's composite
// bitmap across worker goroutines, each walking it at its own pace.
func (p *Producer) Cursor() *Producer {
	return &Producer{composite: p.composite}
}

// Primes sends every prime in ascending order on the returned channel,
// closing it when exhausted or ctx is done.
func (p *Producer) Primes(ctx context.Context) <-chan uint64 {
	out := make(chan uint64)
	go func() {
		defer close(out)
		for {
			n, ok := p.Next()
			if !ok {
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
