// Package bucket implements the arena-style, bounded-capacity containers
// EratMedium and EratBig use to store sieving-prime state. Buckets are
// linked by pointer but allocated from a per-tier Pool with an explicit
// free list, so teardown never walks live application state — only the
// pool's free chain — per spec.md §9's note against ad-hoc back-pointers
// and for index/handle-stable arenas.
package bucket

// Capacity is the number of entries a single bucket holds before a fresh
// one is linked in front of it.
const Capacity = 1024

// Entry is one sieving prime's resumable cross-off state. ByteOffset and
// WheelIndex are interpreted by the owning tier: for EratMedium they are
// relative to the current segment; for EratBig they are relative to the
// future segment the bucket itself is scheduled for.
type Entry struct {
	Prime      uint64
	ByteOffset uint32
	WheelIndex uint8
}

// Bucket is a fixed-capacity node of Entry values plus a link to the next
// (older) bucket in its List.
type Bucket struct {
	entries [Capacity]Entry
	count   int
	next    *Bucket
}

// Full reports whether the bucket has no remaining capacity.
func (b *Bucket) Full() bool { return b.count == Capacity }

// Len returns the number of live entries in the bucket.
func (b *Bucket) Len() int { return b.count }

// Entries returns the bucket's live entries. The returned slice aliases
// the bucket's backing array and is only valid until the next mutation.
func (b *Bucket) Entries() []Entry { return b.entries[:b.count] }

// Set overwrites entry i in place; used by crossOff to advance state.
func (b *Bucket) Set(i int, e Entry) { b.entries[i] = e }

func (b *Bucket) add(e Entry) bool {
	if b.Full() {
		return false
	}
	b.entries[b.count] = e
	b.count++
	return true
}

func (b *Bucket) reset() {
	b.count = 0
	b.next = nil
}

// Pool is a free list of buckets shared by every List a tier owns. Buckets
// are never returned to the Go allocator individually; Pool.Get reuses a
// freed bucket whenever one is available.
type Pool struct {
	free *Bucket
}

// Get returns an empty, unlinked bucket, either from the free list or
// freshly allocated.
func (p *Pool) Get() *Bucket {
	if p.free == nil {
		return &Bucket{}
	}
	b := p.free
	p.free = b.next
	b.next = nil
	return b
}

// Put returns b (and, transitively, nothing else — callers must Put each
// bucket of a chain individually) to the free list.
func (p *Pool) Put(b *Bucket) {
	b.reset()
	b.next = p.free
	p.free = b
}

// List is a singly linked chain of buckets belonging to one tier slot
// (EratMedium's single list, or one of EratBig's per-segment lists). head
// is the most recently allocated, partially-filled bucket; older buckets
// follow via the next link.
type List struct {
	pool *Pool
	head *Bucket
}

// NewList returns an empty list backed by pool.
func NewList(pool *Pool) *List {
	return &List{pool: pool, head: pool.Get()}
}

// Add inserts e, allocating a fresh bucket from the pool if the current
// head is full.
func (l *List) Add(e Entry) {
	if l.head.add(e) {
		return
	}
	nb := l.pool.Get()
	nb.next = l.head
	l.head = nb
	l.head.add(e)
}

// Empty reports whether the list holds no entries.
func (l *List) Empty() bool {
	return l.head == nil || (l.head.count == 0 && l.head.next == nil)
}

// Each calls fn once per bucket, newest first, until fn returns false.
func (l *List) Each(fn func(*Bucket) bool) {
	for b := l.head; b != nil; b = b.next {
		if !fn(b) {
			return
		}
	}
}

// Filter compacts every bucket in place, keeping only entries for which
// keep returns true, and returns buckets that become empty to the pool.
// It preserves bucket order and never allocates.
func (l *List) Filter(keep func(Entry) bool) {
	var prev *Bucket
	b := l.head
	for b != nil {
		next := b.next
		w := 0
		for r := 0; r < b.count; r++ {
			if keep(b.entries[r]) {
				b.entries[w] = b.entries[r]
				w++
			}
		}
		b.count = w

		if b.count == 0 && b.next != nil {
			// Drop the now-empty bucket from the chain, unless it's the
			// last (oldest) bucket — that one is always kept so the list
			// never runs out of buckets and Add has somewhere to write.
			if prev == nil {
				l.head = b.next
			} else {
				prev.next = b.next
			}
			b.next = nil
			l.pool.Put(b)
		} else {
			prev = b
		}
		b = next
	}
	if l.head == nil {
		l.head = l.pool.Get()
	}
}

// Release returns every bucket in the list to its pool and clears head.
func (l *List) Release() {
	b := l.head
	for b != nil {
		next := b.next
		l.pool.Put(b)
		b = next
	}
	l.head = nil
}
