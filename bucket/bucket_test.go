package bucket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListAddAcrossBuckets(t *testing.T) {
	pool := &Pool{}
	l := NewList(pool)
	for i := 0; i < Capacity+10; i++ {
		l.Add(Entry{Prime: uint64(i)})
	}
	total := 0
	l.Each(func(b *Bucket) bool {
		total += b.Len()
		return true
	})
	require.Equal(t, Capacity+10, total)
}

func TestListFilterCompactsEntries(t *testing.T) {
	pool := &Pool{}
	l := NewList(pool)
	for i := 0; i < Capacity+5; i++ {
		l.Add(Entry{Prime: uint64(i)})
	}
	// keep only even primes: about half of each bucket's entries go
	l.Filter(func(e Entry) bool { return e.Prime%2 == 0 })

	total := 0
	l.Each(func(b *Bucket) bool {
		for _, e := range b.Entries() {
			require.Zero(t, e.Prime%2)
		}
		total += b.Len()
		return true
	})
	require.Equal(t, (Capacity+5+1)/2, total)
}

func TestListFilterToEmptyKeepsOneBucket(t *testing.T) {
	pool := &Pool{}
	l := NewList(pool)
	l.Add(Entry{Prime: 7})
	l.Filter(func(Entry) bool { return false })
	require.True(t, l.Empty())
	// Add must still work without panicking.
	l.Add(Entry{Prime: 11})
	require.False(t, l.Empty())
}

func TestPoolReusesBuckets(t *testing.T) {
	pool := &Pool{}
	b1 := pool.Get()
	b1.add(Entry{Prime: 3})
	pool.Put(b1)
	b2 := pool.Get()
	require.Same(t, b1, b2)
	require.Equal(t, 0, b2.Len())
}

func TestListRelease(t *testing.T) {
	pool := &Pool{}
	l := NewList(pool)
	for i := 0; i < Capacity*3; i++ {
		l.Add(Entry{Prime: uint64(i)})
	}
	l.Release()
	require.Nil(t, l.head)
	// pool should have reusable buckets now
	require.NotNil(t, pool.free)
}
