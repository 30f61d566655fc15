package kfile

import "fmt"

// BlockId identifies one fixed-size block on a device: an unsigned device id
// paired with an unsigned block number on that device. It is the cache's
// identity key and is deliberately a plain comparable value, not a pointer,
// so it can be used directly as a map/struct key and compared with ==.
type BlockId struct {
	Dev     uint64
	Blockno uint64
}

// NewBlockId builds a BlockId from a device id and block number.
func NewBlockId(dev, blockno uint64) BlockId {
	return BlockId{Dev: dev, Blockno: blockno}
}

func (b BlockId) String() string {
	return fmt.Sprintf("[dev %d, block %d]", b.Dev, b.Blockno)
}

func (b BlockId) NextBlock() BlockId {
	return BlockId{Dev: b.Dev, Blockno: b.Blockno + 1}
}

func (b BlockId) IsFirst() bool {
	return b.Blockno == 0
}
