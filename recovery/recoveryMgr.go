// Package recovery replays a transaction's log records to undo its writes,
// either on an explicit rollback or, after a crash, for every transaction
// the log shows started but never committed.
package recovery

import (
	"fmt"

	"bufcache/kfile"
	"bufcache/log"
	"bufcache/log_record"
)

// RecoveryMgr is one transaction's view onto the shared log: it writes that
// transaction's start/commit/rollback/checkpoint records and, given a
// log.Transaction to call back into, can undo everything the transaction
// logged. It depends only on log and log_record, not on the transaction
// package, so the transaction package can depend on recovery instead of the
// two importing each other.
type RecoveryMgr struct {
	lm    *log.LogMgr
	tx    log.Transaction
	txNum int
}

// NewRecoveryMgr writes a start record for txNum and returns a manager tied
// to tx for later undo callbacks.
func NewRecoveryMgr(tx log.Transaction, txNum int, lm *log.LogMgr) (*RecoveryMgr, error) {
	rm := &RecoveryMgr{lm: lm, tx: tx, txNum: txNum}
	if _, err := log_record.WriteStartRecord(lm, txNum); err != nil {
		return nil, fmt.Errorf("recovery: writing start record: %w", err)
	}
	return rm, nil
}

// LogSetInt records the old value at offset in blk before a transaction
// overwrites it, returning the LSN so the caller can pin the log up to it.
func (r *RecoveryMgr) LogSetInt(blk kfile.BlockId, offset, oldVal int) (int, error) {
	return log_record.WriteSetIntRecord(r.lm, r.txNum, blk, offset, oldVal)
}

// LogSetString records the old value at offset in blk before a transaction
// overwrites it, returning the LSN.
func (r *RecoveryMgr) LogSetString(blk kfile.BlockId, offset int, oldVal string) (int, error) {
	return log_record.WriteSetStringRecord(r.lm, r.txNum, blk, offset, oldVal)
}

// Commit writes and flushes a commit record for this transaction.
func (r *RecoveryMgr) Commit() error {
	lsn, err := log_record.WriteCommitRecord(r.lm, r.txNum)
	if err != nil {
		return fmt.Errorf("recovery: writing commit record: %w", err)
	}
	return r.lm.FlushLSN(lsn)
}

// Rollback undoes every record this transaction logged, then writes and
// flushes a rollback record.
func (r *RecoveryMgr) Rollback() error {
	if err := r.doRollback(); err != nil {
		return fmt.Errorf("recovery: rollback: %w", err)
	}
	lsn, err := log_record.WriteRollbackRecord(r.lm, r.txNum)
	if err != nil {
		return fmt.Errorf("recovery: writing rollback record: %w", err)
	}
	return r.lm.FlushLSN(lsn)
}

// Recover undoes every record logged by a transaction that never committed
// or rolled back, then writes a checkpoint record marking where a future
// recovery scan can stop.
func (r *RecoveryMgr) Recover() error {
	if err := r.doRecover(); err != nil {
		return fmt.Errorf("recovery: recover: %w", err)
	}
	lsn, err := log_record.WriteCheckpointRecord(r.lm)
	if err != nil {
		return fmt.Errorf("recovery: writing checkpoint record: %w", err)
	}
	return r.lm.FlushLSN(lsn)
}

// doRollback scans the log backward, undoing every record belonging to
// this transaction until it reaches that transaction's start record.
func (r *RecoveryMgr) doRollback() error {
	iter, err := r.lm.Iterator()
	if err != nil {
		return err
	}
	for iter.HasNext() {
		data, err := iter.Next()
		if err != nil {
			return err
		}
		rec, err := log_record.CreateLogRecord(data)
		if err != nil {
			return err
		}
		if rec.TxNumber() != r.txNum {
			continue
		}
		if rec.Op() == log.START {
			return nil
		}
		if err := rec.Undo(r.tx); err != nil {
			return fmt.Errorf("undoing record for tx %d: %w", r.txNum, err)
		}
	}
	return nil
}

// doRecover scans the log backward from its tail, stopping at the most
// recent checkpoint, undoing every record from a transaction that never reached a commit or
// rollback record.
func (r *RecoveryMgr) doRecover() error {
	finished := make(map[int]bool)

	iter, err := r.lm.Iterator()
	if err != nil {
		return err
	}
	for iter.HasNext() {
		data, err := iter.Next()
		if err != nil {
			return err
		}
		rec, err := log_record.CreateLogRecord(data)
		if err != nil {
			return err
		}
		switch rec.Op() {
		case log.CHECKPOINT:
			return nil
		case log.COMMIT, log.ROLLBACK:
			finished[rec.TxNumber()] = true
		default:
			if !finished[rec.TxNumber()] {
				if err := rec.Undo(r.tx); err != nil {
					return fmt.Errorf("undoing record for tx %d: %w", rec.TxNumber(), err)
				}
			}
		}
	}
	return nil
}
