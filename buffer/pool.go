package buffer

import "fmt"

// link is one node of an arena-indexed doubly linked list: prev/next are
// slot indices, never pointers, so the list can span the fixed buffer pool
// without any per-node heap allocation. Indices [0, n) are real buffers;
// indices [n, n+b) are per-bucket sentinels that never hold data and are
// never themselves a scan or eviction candidate.
type link struct {
	prev, next int
}

// Cache is the fixed-size buffer pool: n buffer slots indexed by a hash
// table of b sentinel-headed circular lists, one global eviction arbiter,
// and a device/clock pair it consults on a miss.
type Cache struct {
	n, b      int
	blockSize int
	dev       BlockDevice
	clock     TickSource

	buffers []Buffer
	links   []link // len n+b; links[n+j] is bucket j's sentinel

	bucketLocks []SpinLock
	arbiter     SpinLock
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithClock overrides the default clock.Now tick source, for tests that
// need deterministic or hand-driven timestamps.
func WithClock(c TickSource) Option {
	return func(c2 *Cache) { c2.clock = c }
}

// NewCache builds a cache of n buffer slots hashed across b buckets, each
// holding blockSize bytes of content, backed by dev. b should be prime, per
// the hash index's collision-spreading design, though this is not enforced.
func NewCache(n, b, blockSize int, dev BlockDevice, opts ...Option) (*Cache, error) {
	if n <= 0 || b <= 0 {
		return nil, fmt.Errorf("buffer: n and b must be positive, got n=%d b=%d", n, b)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("buffer: blockSize must be positive, got %d", blockSize)
	}

	c := &Cache{
		n:           n,
		b:           b,
		blockSize:   blockSize,
		dev:         dev,
		clock:       defaultClock{},
		buffers:     make([]Buffer, n),
		links:       make([]link, n+b),
		bucketLocks: make([]SpinLock, b),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.buffers {
		c.buffers[i].data = make([]byte, blockSize)
	}

	// Every sentinel starts as an empty circular list pointing to itself.
	for j := 0; j < b; j++ {
		s := n + j
		c.links[s] = link{prev: s, next: s}
	}
	// All n buffers start threaded onto bucket 0's list, identity (0, 0).
	sentinel0 := n
	for i := 0; i < n; i++ {
		c.insertAfter(sentinel0, i)
	}

	return c, nil
}

// BlockSize returns the configured content size of every buffer slot.
func (c *Cache) BlockSize() int { return c.blockSize }

func (c *Cache) bucketOf(dev, blockno uint64) int {
	return int(blockno % uint64(c.b))
}

func (c *Cache) sentinel(bucket int) int { return c.n + bucket }

// insertAfter splices node right after at in the list at's successor chain.
// Caller must hold the lock guarding that list.
func (c *Cache) insertAfter(at, node int) {
	next := c.links[at].next
	c.links[node] = link{prev: at, next: next}
	c.links[at].next = node
	c.links[next].prev = node
}

// unlink removes node from whatever list currently threads it. Caller must
// hold the lock guarding that list.
func (c *Cache) unlink(node int) {
	l := c.links[node]
	c.links[l.prev].next = l.next
	c.links[l.next].prev = l.prev
}
