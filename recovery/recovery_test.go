package recovery_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bufcache/buffer"
	"bufcache/kfile"
	"bufcache/log"
	"bufcache/log_record"
	"bufcache/recovery"
)

// stubTx is a minimal log.Transaction that records undo calls instead of
// writing through a real cache, so the ordering tests below can assert on
// what Undo did without standing up a full transaction manager.
type stubTx struct {
	setInts    []int
	setStrings []string
}

func (s *stubTx) SetInt(blk kfile.BlockId, offset int, val int, okToLog bool) error {
	s.setInts = append(s.setInts, val)
	return nil
}

func (s *stubTx) SetString(blk kfile.BlockId, offset int, val string, okToLog bool) error {
	s.setStrings = append(s.setStrings, val)
	return nil
}

func newTestLogMgr(t *testing.T) *log.LogMgr {
	t.Helper()
	fm, err := kfile.NewFileMgr(t.TempDir(), 128)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })

	c, err := buffer.NewCache(4, 3, 128, fm)
	require.NoError(t, err)

	dev, err := fm.Register("recovery_log.db")
	require.NoError(t, err)

	lm, err := log.NewLogMgr(c, fm, dev)
	require.NoError(t, err)
	return lm
}

func readOps(t *testing.T, lm *log.LogMgr) []int {
	t.Helper()
	iter, err := lm.Iterator()
	require.NoError(t, err)

	var ops []int
	for iter.HasNext() {
		data, err := iter.Next()
		require.NoError(t, err)
		rec, err := log_record.CreateLogRecord(data)
		require.NoError(t, err)
		ops = append(ops, rec.Op())
	}
	return ops
}

func TestCommitWritesStartThenCommit(t *testing.T) {
	lm := newTestLogMgr(t)
	tx := &stubTx{}

	rm, err := recovery.NewRecoveryMgr(tx, 1, lm)
	require.NoError(t, err)
	require.NoError(t, rm.Commit())

	// Iterator is LIFO: most recent record first.
	ops := readOps(t, lm)
	require.Equal(t, []int{log.COMMIT, log.START}, ops)
}

func TestRollbackUndoesLoggedRecordsForItsOwnTransaction(t *testing.T) {
	lm := newTestLogMgr(t)
	tx := &stubTx{}

	rm, err := recovery.NewRecoveryMgr(tx, 1, lm)
	require.NoError(t, err)

	blk := kfile.NewBlockId(0, 0)
	_, err = rm.LogSetInt(blk, 0, 42)
	require.NoError(t, err)
	_, err = rm.LogSetString(blk, 8, "old value")
	require.NoError(t, err)

	require.NoError(t, rm.Rollback())

	require.Equal(t, []int{42}, tx.setInts, "rollback should replay the pre-write int value")
	require.Equal(t, []string{"old value"}, tx.setStrings, "rollback should replay the pre-write string value")

	ops := readOps(t, lm)
	require.Equal(t, []int{log.ROLLBACK, log.SETSTRING, log.SETINT, log.START}, ops)
}

func TestRecoverUndoesOnlyUnfinishedTransactions(t *testing.T) {
	lm := newTestLogMgr(t)
	blk := kfile.NewBlockId(0, 0)

	finishedTx := &stubTx{}
	finished, err := recovery.NewRecoveryMgr(finishedTx, 1, lm)
	require.NoError(t, err)
	_, err = finished.LogSetInt(blk, 0, 1)
	require.NoError(t, err)
	require.NoError(t, finished.Commit())

	crashedTx := &stubTx{}
	crashed, err := recovery.NewRecoveryMgr(crashedTx, 2, lm)
	require.NoError(t, err)
	_, err = crashed.LogSetInt(blk, 0, 2)
	require.NoError(t, err)
	// no Commit/Rollback: simulates a crash mid-transaction

	require.NoError(t, crashed.Recover())

	require.Empty(t, finishedTx.setInts, "a committed transaction's writes must not be undone")
	require.Equal(t, []int{2}, crashedTx.setInts, "an unfinished transaction's writes must be undone")

	ops := readOps(t, lm)
	require.Equal(t, log.CHECKPOINT, ops[0], "Recover must append a checkpoint record")
}
