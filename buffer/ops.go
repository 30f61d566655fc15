package buffer

import (
	"fmt"
	"sync/atomic"
)

// Handle is a caller's exclusive, content-locked reference to one cached
// block. It is not safe to share a Handle across goroutines: the content
// lock it holds protects the data from other callers, not from concurrent
// use of the same Handle.
type Handle struct {
	c    *Cache
	idx  int
	done atomic.Bool
}

// Data returns the buffer's content. The returned slice is valid only while
// the handle has not yet been released.
func (h *Handle) Data() []byte {
	return h.c.buffers[h.idx].data
}

func (h *Handle) checkLive() {
	if h.done.Load() {
		fatal(fmt.Errorf("%w: handle for dev %d block %d", ErrAlreadyReleased, h.c.buffers[h.idx].dev, h.c.buffers[h.idx].blockno))
	}
}

// Read returns a handle to the requested block, reading it from the device
// on a miss. On a device error the handle is still returned, pinned and
// content-locked, so the caller can inspect it or release it; the cache
// does not interpret or retry device errors itself.
func (c *Cache) Read(dev, blockno uint64) (*Handle, error) {
	idx := c.get(dev, blockno)
	h := &Handle{c: c, idx: idx}

	b := &c.buffers[idx]
	if !b.valid {
		if err := c.dev.ReadAt(dev, blockno, b.data); err != nil {
			return h, fmt.Errorf("buffer: read dev %d block %d: %w", dev, blockno, err)
		}
		b.valid = true
	}
	return h, nil
}

// Write flushes the handle's current content to the device. The handle must
// still hold its content lock (i.e. must not have been released).
func (h *Handle) Write() error {
	h.checkLive()
	b := &h.c.buffers[h.idx]
	if err := h.c.dev.WriteAt(b.dev, b.blockno, b.data); err != nil {
		return fmt.Errorf("buffer: write dev %d block %d: %w", b.dev, b.blockno, err)
	}
	return nil
}

// Release drops the handle's content lock and decrements its reference
// count. If the count reaches zero, the buffer is stamped with the current
// tick so it becomes eligible for eviction, ordered against every other
// currently-unpinned buffer. Releasing a handle more than once is a fatal
// contract violation.
func (h *Handle) Release() {
	if !h.done.CompareAndSwap(false, true) {
		fatal(fmt.Errorf("%w: dev %d block %d", ErrAlreadyReleased, h.c.buffers[h.idx].dev, h.c.buffers[h.idx].blockno))
	}

	idx := h.idx
	b := &h.c.buffers[idx]
	b.content.Unlock()

	j := h.c.bucketOf(b.dev, b.blockno)
	h.c.bucketLocks[j].Lock()
	b.refcnt--
	if b.refcnt == 0 {
		b.timestamp = h.c.clock.Now()
	}
	h.c.bucketLocks[j].Unlock()
}

// Pin increments the handle's reference count, keeping the buffer resident
// past the next Release. It does not touch the content lock: a caller that
// has already released a handle can still Pin it, provided some earlier
// Pin kept its reference count above zero in the meantime.
func (h *Handle) Pin() {
	idx := h.idx
	b := &h.c.buffers[idx]
	j := h.c.bucketOf(b.dev, b.blockno)
	h.c.bucketLocks[j].Lock()
	b.refcnt++
	h.c.bucketLocks[j].Unlock()
}

// Unpin decrements the handle's reference count, stamping the buffer with
// the current tick if it falls to zero. Pins and unpins must be balanced by
// the caller; unpinning a buffer more times than it was pinned corrupts its
// reference count and is not detected.
func (h *Handle) Unpin() {
	idx := h.idx
	b := &h.c.buffers[idx]
	j := h.c.bucketOf(b.dev, b.blockno)
	h.c.bucketLocks[j].Lock()
	b.refcnt--
	if b.refcnt == 0 {
		b.timestamp = h.c.clock.Now()
	}
	h.c.bucketLocks[j].Unlock()
}
