package log

import "bufcache/kfile"

// Log record operation codes, shared by the log package and log_record's
// concrete record types.
const (
	CHECKPOINT = iota
	START
	COMMIT
	ROLLBACK
	SETINT
	SETSTRING
)

// Transaction is the subset of transaction.Transaction a log record needs
// to undo itself: writing an old value back to a page without re-logging
// the write. Defined here, rather than in the transaction package, so
// log_record can implement LogRecord without importing transaction (which
// itself depends on log_record to create records).
type Transaction interface {
	SetInt(blk kfile.BlockId, offset int, val int, okToLog bool) error
	SetString(blk kfile.BlockId, offset int, val string, okToLog bool) error
}

// LogRecord is one decoded entry from the log: a transaction-tagged,
// replayable record of either control flow (start/commit/rollback/
// checkpoint) or a page mutation (SetInt/SetString).
type LogRecord interface {
	Op() int
	TxNumber() int
	Undo(tx Transaction) error
}
