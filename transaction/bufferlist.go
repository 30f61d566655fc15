package transaction

import (
	"fmt"

	"bufcache/buffer"
	"bufcache/kfile"
)

// BufferList tracks the blocks one transaction currently holds pinned. A
// pin here is long-lived: it survives far past any single content-locked
// access, so it is implemented as an extra buffer.Handle.Pin rather than by
// holding the content lock for the transaction's whole lifetime.
type BufferList struct {
	cache   *buffer.Cache
	pins    map[kfile.BlockId]*buffer.Handle
}

func NewBufferList(cache *buffer.Cache) *BufferList {
	return &BufferList{cache: cache, pins: make(map[kfile.BlockId]*buffer.Handle)}
}

// Pin pins blk for the lifetime of the transaction, a no-op if it is
// already pinned. It briefly acquires and releases the content lock purely
// to load the block into the cache; the resulting extra reference count
// keeps the buffer resident with no lock held.
func (bl *BufferList) Pin(blk kfile.BlockId) error {
	if _, ok := bl.pins[blk]; ok {
		return nil
	}
	h, err := bl.cache.Read(blk.Dev, blk.Blockno)
	if err != nil {
		return fmt.Errorf("bufferlist: pinning %v: %w", blk, err)
	}
	h.Pin()
	h.Release()
	bl.pins[blk] = h
	return nil
}

// Unpin releases this transaction's pin on blk, a no-op if it was not
// pinned by this BufferList.
func (bl *BufferList) Unpin(blk kfile.BlockId) {
	h, ok := bl.pins[blk]
	if !ok {
		return
	}
	h.Unpin()
	delete(bl.pins, blk)
}

// UnpinAll releases every block this transaction has pinned.
func (bl *BufferList) UnpinAll() {
	for blk, h := range bl.pins {
		h.Unpin()
		delete(bl.pins, blk)
	}
}
