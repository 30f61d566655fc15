package log

import (
	"fmt"

	"bufcache/buffer"
	"bufcache/kfile"
)

// Iterator walks the log backward from the tail block, one record at a
// time, the same direction recovery needs: the most recently appended
// record first.
type Iterator struct {
	cache      *buffer.Cache
	dev        uint64
	blockno    uint64
	page       *kfile.Page
	currentPos int
	boundary   int
}

func newIterator(cache *buffer.Cache, dev, blockno uint64) (*Iterator, error) {
	it := &Iterator{
		cache:   cache,
		dev:     dev,
		blockno: blockno,
		page:    kfile.NewPage(cache.BlockSize()),
	}
	if err := it.moveToBlock(blockno); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Iterator) moveToBlock(blockno uint64) error {
	h, err := it.cache.Read(it.dev, blockno)
	if err != nil {
		return fmt.Errorf("log: iterator read block %d: %w", blockno, err)
	}
	copy(it.page.Contents(), h.Data())
	h.Release()

	it.blockno = blockno
	boundary, err := it.page.GetInt(0)
	if err != nil {
		return fmt.Errorf("log: iterator reading boundary: %w", err)
	}
	it.boundary = boundary
	it.currentPos = boundary
	return nil
}

// HasNext reports whether another record remains to be read.
func (it *Iterator) HasNext() bool {
	return it.currentPos < it.cache.BlockSize() || it.blockno > 0
}

// Next returns the next record's raw bytes, moving to the previous block
// first if the current one is exhausted.
func (it *Iterator) Next() ([]byte, error) {
	if it.currentPos == it.cache.BlockSize() {
		if it.blockno == 0 {
			return nil, fmt.Errorf("log: iterator exhausted")
		}
		if err := it.moveToBlock(it.blockno - 1); err != nil {
			return nil, err
		}
	}
	rec, err := it.page.GetBytes(it.currentPos)
	if err != nil {
		return nil, fmt.Errorf("log: iterator reading record: %w", err)
	}
	it.currentPos += 4 + len(rec)
	return rec, nil
}
