package log_record

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"bufcache/kfile"
	"bufcache/log"
)

// StartRecord marks the beginning of transaction txnum.
type StartRecord struct{ txnum int }

// CommitRecord marks transaction txnum as durably committed.
type CommitRecord struct{ txnum int }

// RollbackRecord marks transaction txnum as rolled back.
type RollbackRecord struct{ txnum int }

// CheckpointRecord marks a point recovery can stop scanning backward from.
type CheckpointRecord struct{}

func NewStartRecord(txnum int) *StartRecord       { return &StartRecord{txnum: txnum} }
func NewCommitRecord(txnum int) *CommitRecord     { return &CommitRecord{txnum: txnum} }
func NewRollbackRecord(txnum int) *RollbackRecord { return &RollbackRecord{txnum: txnum} }
func NewCheckpointRecord() *CheckpointRecord      { return &CheckpointRecord{} }

func (r *StartRecord) Op() int       { return log.START }
func (r *StartRecord) TxNumber() int { return r.txnum }
func (r *StartRecord) Undo(log.Transaction) error { return nil }

func (r *CommitRecord) Op() int       { return log.COMMIT }
func (r *CommitRecord) TxNumber() int { return r.txnum }
func (r *CommitRecord) Undo(log.Transaction) error { return nil }

func (r *RollbackRecord) Op() int       { return log.ROLLBACK }
func (r *RollbackRecord) TxNumber() int { return r.txnum }
func (r *RollbackRecord) Undo(log.Transaction) error { return nil }

func (r *CheckpointRecord) Op() int       { return log.CHECKPOINT }
func (r *CheckpointRecord) TxNumber() int { return -1 }
func (r *CheckpointRecord) Undo(log.Transaction) error { return nil }

func (r *StartRecord) ToBytes() []byte    { return encodeTxOnly(log.START, r.txnum) }
func (r *CommitRecord) ToBytes() []byte   { return encodeTxOnly(log.COMMIT, r.txnum) }
func (r *RollbackRecord) ToBytes() []byte { return encodeTxOnly(log.ROLLBACK, r.txnum) }

func (r *CheckpointRecord) ToBytes() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(log.CHECKPOINT))
	return buf.Bytes()
}

func encodeTxOnly(op, txnum int) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(op))
	binary.Write(&buf, binary.BigEndian, int32(txnum))
	return buf.Bytes()
}

func decodeTxOnly(data []byte) (int, error) {
	buf := bytes.NewBuffer(data)
	var op int32
	if err := binary.Read(buf, binary.BigEndian, &op); err != nil {
		return 0, fmt.Errorf("reading op code: %w", err)
	}
	var txnum int32
	if err := binary.Read(buf, binary.BigEndian, &txnum); err != nil {
		return 0, fmt.Errorf("reading txnum: %w", err)
	}
	return int(txnum), nil
}

func newStartRecordFromBytes(data []byte) (*StartRecord, error) {
	txnum, err := decodeTxOnly(data)
	if err != nil {
		return nil, err
	}
	return NewStartRecord(txnum), nil
}

func newCommitRecordFromBytes(data []byte) (*CommitRecord, error) {
	txnum, err := decodeTxOnly(data)
	if err != nil {
		return nil, err
	}
	return NewCommitRecord(txnum), nil
}

func newRollbackRecordFromBytes(data []byte) (*RollbackRecord, error) {
	txnum, err := decodeTxOnly(data)
	if err != nil {
		return nil, err
	}
	return NewRollbackRecord(txnum), nil
}

func newCheckpointRecordFromBytes(data []byte) (*CheckpointRecord, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("checkpoint record too short")
	}
	return NewCheckpointRecord(), nil
}

// SetIntRecord logs that transaction txnum overwrote a 4-byte int field at
// offset in blk, remembering the previous value so Undo can restore it.
type SetIntRecord struct {
	txnum  int
	blk    kfile.BlockId
	offset int
	oldVal int
}

func NewSetIntRecord(txnum int, blk kfile.BlockId, offset, oldVal int) *SetIntRecord {
	return &SetIntRecord{txnum: txnum, blk: blk, offset: offset, oldVal: oldVal}
}

func (r *SetIntRecord) Op() int       { return log.SETINT }
func (r *SetIntRecord) TxNumber() int { return r.txnum }

func (r *SetIntRecord) Undo(tx log.Transaction) error {
	return tx.SetInt(r.blk, r.offset, r.oldVal, false)
}

func (r *SetIntRecord) ToBytes() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(log.SETINT))
	binary.Write(&buf, binary.BigEndian, int32(r.txnum))
	writeBlockId(&buf, r.blk)
	binary.Write(&buf, binary.BigEndian, int32(r.offset))
	binary.Write(&buf, binary.BigEndian, int32(r.oldVal))
	return buf.Bytes()
}

func newSetIntRecordFromBytes(data []byte) (*SetIntRecord, error) {
	buf := bytes.NewBuffer(data)
	var op, txnum, offset, oldVal int32
	if err := binary.Read(buf, binary.BigEndian, &op); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &txnum); err != nil {
		return nil, err
	}
	blk, err := readBlockId(buf)
	if err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &offset); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &oldVal); err != nil {
		return nil, err
	}
	return NewSetIntRecord(int(txnum), blk, int(offset), int(oldVal)), nil
}

// SetStringRecord logs that transaction txnum overwrote a length-prefixed
// string field at offset in blk, remembering the previous value.
type SetStringRecord struct {
	txnum  int
	blk    kfile.BlockId
	offset int
	oldVal string
}

func NewSetStringRecord(txnum int, blk kfile.BlockId, offset int, oldVal string) *SetStringRecord {
	return &SetStringRecord{txnum: txnum, blk: blk, offset: offset, oldVal: oldVal}
}

func (r *SetStringRecord) Op() int       { return log.SETSTRING }
func (r *SetStringRecord) TxNumber() int { return r.txnum }

func (r *SetStringRecord) Undo(tx log.Transaction) error {
	return tx.SetString(r.blk, r.offset, r.oldVal, false)
}

func (r *SetStringRecord) ToBytes() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(log.SETSTRING))
	binary.Write(&buf, binary.BigEndian, int32(r.txnum))
	writeBlockId(&buf, r.blk)
	binary.Write(&buf, binary.BigEndian, int32(r.offset))
	valBytes := []byte(r.oldVal)
	binary.Write(&buf, binary.BigEndian, uint32(len(valBytes)))
	buf.Write(valBytes)
	return buf.Bytes()
}

func newSetStringRecordFromBytes(data []byte) (*SetStringRecord, error) {
	buf := bytes.NewBuffer(data)
	var op, txnum, offset int32
	if err := binary.Read(buf, binary.BigEndian, &op); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &txnum); err != nil {
		return nil, err
	}
	blk, err := readBlockId(buf)
	if err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &offset); err != nil {
		return nil, err
	}
	var valLen uint32
	if err := binary.Read(buf, binary.BigEndian, &valLen); err != nil {
		return nil, err
	}
	valBytes := make([]byte, valLen)
	if _, err := buf.Read(valBytes); err != nil {
		return nil, err
	}
	return NewSetStringRecord(int(txnum), blk, int(offset), string(valBytes)), nil
}

// WriteStartRecord appends a start record for txnum and returns its LSN.
func WriteStartRecord(lm *log.LogMgr, txnum int) (int, error) {
	return lm.Append(NewStartRecord(txnum).ToBytes())
}

// WriteCommitRecord appends a commit record for txnum and returns its LSN.
func WriteCommitRecord(lm *log.LogMgr, txnum int) (int, error) {
	return lm.Append(NewCommitRecord(txnum).ToBytes())
}

// WriteRollbackRecord appends a rollback record for txnum and returns its LSN.
func WriteRollbackRecord(lm *log.LogMgr, txnum int) (int, error) {
	return lm.Append(NewRollbackRecord(txnum).ToBytes())
}

// WriteCheckpointRecord appends a checkpoint record and returns its LSN.
func WriteCheckpointRecord(lm *log.LogMgr) (int, error) {
	return lm.Append(NewCheckpointRecord().ToBytes())
}

// WriteSetIntRecord appends a SetInt undo record and returns its LSN.
func WriteSetIntRecord(lm *log.LogMgr, txnum int, blk kfile.BlockId, offset, oldVal int) (int, error) {
	return lm.Append(NewSetIntRecord(txnum, blk, offset, oldVal).ToBytes())
}

// WriteSetStringRecord appends a SetString undo record and returns its LSN.
func WriteSetStringRecord(lm *log.LogMgr, txnum int, blk kfile.BlockId, offset int, oldVal string) (int, error) {
	return lm.Append(NewSetStringRecord(txnum, blk, offset, oldVal).ToBytes())
}
