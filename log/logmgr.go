package log

import (
	"fmt"
	"sync"

	"bufcache/buffer"
	"bufcache/kfile"
)

// LogMgr appends length-prefixed log records to the tail block of a
// dedicated log device, packing them back-to-front within each block the
// way bio.c's own log area is packed, and flushing through the shared
// buffer cache rather than writing the device directly.
type LogMgr struct {
	cache *buffer.Cache
	fm    *kfile.FileMgr
	dev   uint64

	mu             sync.Mutex
	currentBlockno uint64
	logPage        *kfile.Page
	latestLSN      int
	latestSavedLSN int
}

// NewLogMgr opens (or creates) the log device's tail block on cache/fm and
// prepares it to receive Append calls.
func NewLogMgr(cache *buffer.Cache, fm *kfile.FileMgr, dev uint64) (*LogMgr, error) {
	lm := &LogMgr{
		cache:   cache,
		fm:      fm,
		dev:     dev,
		logPage: kfile.NewPage(cache.BlockSize()),
	}

	logsize, err := fm.Length(dev)
	if err != nil {
		return nil, fmt.Errorf("log: determining log length: %w", err)
	}

	if logsize == 0 {
		blockno, err := lm.appendNewBlock()
		if err != nil {
			return nil, fmt.Errorf("log: appending initial block: %w", err)
		}
		lm.currentBlockno = blockno
	} else {
		lm.currentBlockno = logsize - 1
		h, err := cache.Read(dev, lm.currentBlockno)
		if err != nil {
			return nil, fmt.Errorf("log: reading tail block: %w", err)
		}
		copy(lm.logPage.Contents(), h.Data())
		h.Release()
	}

	return lm, nil
}

// FlushLSN flushes the log up through lsn if it has not already been saved.
func (lm *LogMgr) FlushLSN(lsn int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lsn < lm.latestSavedLSN {
		return nil
	}
	return lm.flushLocked()
}

// Flush writes the current log page to the device.
func (lm *LogMgr) Flush() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.flushLocked()
}

func (lm *LogMgr) flushLocked() error {
	h, err := lm.cache.Read(lm.dev, lm.currentBlockno)
	if err != nil {
		return fmt.Errorf("log: flush read: %w", err)
	}
	copy(h.Data(), lm.logPage.Contents())
	werr := h.Write()
	h.Release()
	if werr != nil {
		return fmt.Errorf("log: flush write: %w", werr)
	}
	lm.latestSavedLSN = lm.latestLSN
	return nil
}

func (lm *LogMgr) appendNewBlock() (uint64, error) {
	blockno, err := lm.fm.Append(lm.dev)
	if err != nil {
		return 0, err
	}
	if err := lm.logPage.SetInt(0, lm.cache.BlockSize()); err != nil {
		return 0, err
	}

	h, err := lm.cache.Read(lm.dev, blockno)
	if err != nil {
		return 0, err
	}
	copy(h.Data(), lm.logPage.Contents())
	werr := h.Write()
	h.Release()
	if werr != nil {
		return 0, werr
	}
	return blockno, nil
}

// Append writes logrec to the log, flushing the current block and starting
// a new one if logrec does not fit in the remaining space, and returns the
// LSN assigned to it.
func (lm *LogMgr) Append(logrec []byte) (int, error) {
	if len(logrec) == 0 {
		return 0, fmt.Errorf("log: empty log record")
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	boundary, err := lm.logPage.GetInt(0)
	if err != nil {
		return 0, fmt.Errorf("log: reading boundary: %w", err)
	}

	const intBytes = 4
	bytesNeeded := len(logrec) + intBytes

	if boundary-bytesNeeded < intBytes {
		if err := lm.flushLocked(); err != nil {
			return 0, fmt.Errorf("log: flushing before new block: %w", err)
		}
		lm.logPage = kfile.NewPage(lm.cache.BlockSize())
		blockno, err := lm.appendNewBlock()
		if err != nil {
			return 0, fmt.Errorf("log: appending new block: %w", err)
		}
		lm.currentBlockno = blockno
		boundary, _ = lm.logPage.GetInt(0)
	}

	recpos := boundary - bytesNeeded
	if err := lm.logPage.SetBytes(recpos, logrec); err != nil {
		return 0, fmt.Errorf("log: writing record: %w", err)
	}
	if err := lm.logPage.SetInt(0, recpos); err != nil {
		return 0, fmt.Errorf("log: updating boundary: %w", err)
	}

	lm.latestLSN++
	return lm.latestLSN, nil
}

// Iterator flushes the log and returns an iterator over its records in
// reverse (most recent first) order, the order recovery needs to undo or
// redo transactions correctly.
func (lm *LogMgr) Iterator() (*Iterator, error) {
	if err := lm.Flush(); err != nil {
		return nil, fmt.Errorf("log: iterator: %w", err)
	}
	return newIterator(lm.cache, lm.dev, lm.currentBlockno)
}
