package buffer

import (
	"sync"
	"sync/atomic"
)

// tierSizes mirrors a size-tiered pooling strategy: small/medium/large
// buckets each backed by their own sync.Pool so a 200-byte header buffer
// never displaces a 1MB batch buffer's backing array.
var tierSizes = []int{4 * 1024, 64 * 1024, 1024 * 1024}

const numTiers = 3

// Pool is a process-wide, goroutine-safe allocator for reference-counted
// Buffers. It is the allocator referenced by stream.Stream.GetBuffer and is
// intended to be shared across every stream the process opens.
type Pool struct {
	tiers [numTiers + 1]sync.Pool // last tier is "oversized, not pooled"

	allocations int64
	poolHits    int64
	poolMisses  int64
}

// NewPool constructs an empty Pool. A single Pool should be shared across
// all streams in a process; it has no per-instance state that would make
// multiple pools beneficial.
func NewPool() *Pool {
	p := &Pool{}
	for i, size := range tierSizes {
		size := size
		p.tiers[i].New = func() interface{} {
			return newBuffer(size)
		}
	}
	return p
}

func (p *Pool) tierFor(size int) int {
	for i, s := range tierSizes {
		if size <= s {
			return i
		}
	}
	return len(tierSizes)
}

// Get returns a Buffer with at least `size` bytes of write-mode capacity.
// Buffers above the largest tier are allocated directly and not returned to
// any pool on release.
func (p *Pool) Get(size int) *Buffer {
	atomic.AddInt64(&p.allocations, 1)
	tier := p.tierFor(size)
	if tier == len(tierSizes) {
		atomic.AddInt64(&p.poolMisses, 1)
		b := newBuffer(size)
		b.tier = tier
		return b
	}

	v := p.tiers[tier].Get()
	b := v.(*Buffer)
	if len(b.data) < size {
		// Pool returned an undersized buffer from a prior Get with a
		// smaller request; grow it rather than fragmenting the tier.
		b.data = make([]byte, tierSizes[tier])
		atomic.AddInt64(&p.poolMisses, 1)
	} else {
		atomic.AddInt64(&p.poolHits, 1)
	}
	b.refCount = 1
	b.pos = 0
	b.limit = len(b.data)
	b.writing = true
	b.readOnly = false
	b.underlying = nil
	b.pool = p
	b.tier = tier
	return b
}

func (p *Pool) put(b *Buffer) {
	if b.tier >= len(tierSizes) {
		return // oversized buffers are left for GC
	}
	p.tiers[b.tier].Put(b)
}

// Stats reports allocation/hit/miss counters for diagnostics.
func (p *Pool) Stats() (allocations, hits, misses int64) {
	return atomic.LoadInt64(&p.allocations), atomic.LoadInt64(&p.poolHits), atomic.LoadInt64(&p.poolMisses)
}
