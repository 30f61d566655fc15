// Package log_record implements the concrete log.LogRecord types: four
// control records (start, commit, rollback, checkpoint) and two update
// records (SetInt, SetString) that carry enough of the old page state to
// undo themselves.
package log_record

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"bufcache/kfile"
	"bufcache/log"
)

// CreateLogRecord inspects the first 4 bytes of data (the op code) and
// decodes the matching concrete record. It returns an error for an
// unrecognized op code rather than silently dropping the record, since a
// corrupt or truncated log entry should stop recovery, not continue past it.
func CreateLogRecord(data []byte) (log.LogRecord, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("log_record: record too short (%d bytes)", len(data))
	}
	op := int(int32(binary.BigEndian.Uint32(data[:4])))
	switch op {
	case log.CHECKPOINT:
		return newCheckpointRecordFromBytes(data)
	case log.START:
		return newStartRecordFromBytes(data)
	case log.COMMIT:
		return newCommitRecordFromBytes(data)
	case log.ROLLBACK:
		return newRollbackRecordFromBytes(data)
	case log.SETINT:
		return newSetIntRecordFromBytes(data)
	case log.SETSTRING:
		return newSetStringRecordFromBytes(data)
	default:
		return nil, fmt.Errorf("log_record: unknown op code %d", op)
	}
}

func writeBlockId(buf *bytes.Buffer, blk kfile.BlockId) error {
	if err := binary.Write(buf, binary.BigEndian, blk.Dev); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, blk.Blockno)
}

func readBlockId(buf *bytes.Buffer) (kfile.BlockId, error) {
	var dev, blockno uint64
	if err := binary.Read(buf, binary.BigEndian, &dev); err != nil {
		return kfile.BlockId{}, err
	}
	if err := binary.Read(buf, binary.BigEndian, &blockno); err != nil {
		return kfile.BlockId{}, err
	}
	return kfile.NewBlockId(dev, blockno), nil
}
