// Package transaction ties the buffer cache, log manager, concurrency
// manager and recovery manager together into a single-threaded-per-call
// unit of work: every page access goes through a two-phase lock, every
// mutation is logged before it is applied, and commit/rollback/recover
// drive the recovery manager's undo logic.
package transaction

import (
	"fmt"
	"sync/atomic"

	"bufcache/buffer"
	"bufcache/concurrency"
	"bufcache/kfile"
	"bufcache/log"
	"bufcache/recovery"
)

var nextTxNum int64

func nextTxNumber() int {
	return int(atomic.AddInt64(&nextTxNum, 1))
}

// eofBlockNo is the dummy block number Size/Append lock to serialize file
// growth across concurrently running transactions, the same trick SimpleDB
// uses with a reserved "end of file" block identity.
const eofBlockNo = ^uint64(0)

// Mgr is one transaction: a cache handle factory bound to a shared lock
// table and log, scoped to a single transaction number.
type Mgr struct {
	cache *buffer.Cache
	fm    *kfile.FileMgr
	lm    *log.LogMgr
	cm    *concurrency.ConcurrencyMgr
	rm    *recovery.RecoveryMgr
	bl    *BufferList
	txNum int
}

// NewTransaction starts a new transaction against cache/fm, logging through
// lm and serializing with every other transaction sharing lt.
func NewTransaction(cache *buffer.Cache, fm *kfile.FileMgr, lm *log.LogMgr, lt *concurrency.LockTable) (*Mgr, error) {
	t := &Mgr{
		cache: cache,
		fm:    fm,
		lm:    lm,
		cm:    concurrency.NewConcurrencyMgr(lt),
		txNum: nextTxNumber(),
	}
	t.bl = NewBufferList(cache)

	rm, err := recovery.NewRecoveryMgr(t, t.txNum, lm)
	if err != nil {
		return nil, fmt.Errorf("transaction: starting tx %d: %w", t.txNum, err)
	}
	t.rm = rm
	return t, nil
}

// TxNumber returns this transaction's number.
func (t *Mgr) TxNumber() int { return t.txNum }

// Commit logs and flushes a commit record, releases every lock this
// transaction holds, and unpins every block it pinned.
func (t *Mgr) Commit() error {
	if err := t.rm.Commit(); err != nil {
		return err
	}
	if err := t.cm.Release(); err != nil {
		return err
	}
	t.bl.UnpinAll()
	return nil
}

// Rollback undoes this transaction's writes, logs and flushes a rollback
// record, releases its locks, and unpins its blocks.
func (t *Mgr) Rollback() error {
	if err := t.rm.Rollback(); err != nil {
		return err
	}
	if err := t.cm.Release(); err != nil {
		return err
	}
	t.bl.UnpinAll()
	return nil
}

// Recover undoes every write logged by a transaction that never committed
// or rolled back, then writes a checkpoint.
func (t *Mgr) Recover() error {
	return t.rm.Recover()
}

// Pin keeps blk resident in the cache for the rest of this transaction.
func (t *Mgr) Pin(blk kfile.BlockId) error {
	return t.bl.Pin(blk)
}

// Unpin releases this transaction's residency claim on blk.
func (t *Mgr) Unpin(blk kfile.BlockId) {
	t.bl.Unpin(blk)
}

// GetInt acquires a shared lock on blk and reads a 4-byte int at offset.
func (t *Mgr) GetInt(blk kfile.BlockId, offset int) (int, error) {
	if err := t.cm.SLock(blk); err != nil {
		return 0, fmt.Errorf("transaction: GetInt %v: %w", blk, err)
	}
	h, err := t.cache.Read(blk.Dev, blk.Blockno)
	if err != nil {
		return 0, fmt.Errorf("transaction: GetInt %v: %w", blk, err)
	}
	defer h.Release()
	return kfile.NewPageFromBytes(h.Data()).GetInt(offset)
}

// GetString acquires a shared lock on blk and reads a length-prefixed
// string at offset.
func (t *Mgr) GetString(blk kfile.BlockId, offset int) (string, error) {
	if err := t.cm.SLock(blk); err != nil {
		return "", fmt.Errorf("transaction: GetString %v: %w", blk, err)
	}
	h, err := t.cache.Read(blk.Dev, blk.Blockno)
	if err != nil {
		return "", fmt.Errorf("transaction: GetString %v: %w", blk, err)
	}
	defer h.Release()
	return kfile.NewPageFromBytes(h.Data()).GetString(offset)
}

// SetInt acquires an exclusive lock on blk, logs the previous value when
// okToLog is true, writes val at offset, and flushes the block through to
// the device.
func (t *Mgr) SetInt(blk kfile.BlockId, offset, val int, okToLog bool) error {
	if err := t.cm.XLock(blk); err != nil {
		return fmt.Errorf("transaction: SetInt %v: %w", blk, err)
	}
	h, err := t.cache.Read(blk.Dev, blk.Blockno)
	if err != nil {
		return fmt.Errorf("transaction: SetInt %v: %w", blk, err)
	}
	defer h.Release()

	p := kfile.NewPageFromBytes(h.Data())
	if okToLog {
		oldVal, err := p.GetInt(offset)
		if err != nil {
			return fmt.Errorf("transaction: SetInt %v: %w", blk, err)
		}
		if _, err := t.rm.LogSetInt(blk, offset, oldVal); err != nil {
			return fmt.Errorf("transaction: SetInt %v: %w", blk, err)
		}
	}
	if err := p.SetInt(offset, val); err != nil {
		return fmt.Errorf("transaction: SetInt %v: %w", blk, err)
	}
	return h.Write()
}

// SetString acquires an exclusive lock on blk, logs the previous value
// when okToLog is true, writes val at offset, and flushes the block
// through to the device.
func (t *Mgr) SetString(blk kfile.BlockId, offset int, val string, okToLog bool) error {
	if err := t.cm.XLock(blk); err != nil {
		return fmt.Errorf("transaction: SetString %v: %w", blk, err)
	}
	h, err := t.cache.Read(blk.Dev, blk.Blockno)
	if err != nil {
		return fmt.Errorf("transaction: SetString %v: %w", blk, err)
	}
	defer h.Release()

	p := kfile.NewPageFromBytes(h.Data())
	if okToLog {
		oldVal, err := p.GetString(offset)
		if err != nil {
			return fmt.Errorf("transaction: SetString %v: %w", blk, err)
		}
		if _, err := t.rm.LogSetString(blk, offset, oldVal); err != nil {
			return fmt.Errorf("transaction: SetString %v: %w", blk, err)
		}
	}
	if err := p.SetString(offset, val); err != nil {
		return fmt.Errorf("transaction: SetString %v: %w", blk, err)
	}
	return h.Write()
}

// Size returns the number of blocks currently allocated on dev, after
// acquiring a shared lock on dev's reserved end-of-file block.
func (t *Mgr) Size(dev uint64) (uint64, error) {
	dummy := kfile.NewBlockId(dev, eofBlockNo)
	if err := t.cm.SLock(dummy); err != nil {
		return 0, fmt.Errorf("transaction: Size: %w", err)
	}
	return t.fm.Length(dev)
}

// Append allocates a new block on dev, after acquiring an exclusive lock on
// dev's reserved end-of-file block, and returns its identity.
func (t *Mgr) Append(dev uint64) (kfile.BlockId, error) {
	dummy := kfile.NewBlockId(dev, eofBlockNo)
	if err := t.cm.XLock(dummy); err != nil {
		return kfile.BlockId{}, fmt.Errorf("transaction: Append: %w", err)
	}
	blockno, err := t.fm.Append(dev)
	if err != nil {
		return kfile.BlockId{}, fmt.Errorf("transaction: Append: %w", err)
	}
	return kfile.NewBlockId(dev, blockno), nil
}

// BlockSize returns the configured block size of the underlying cache.
func (t *Mgr) BlockSize() int { return t.cache.BlockSize() }
