package log

import (
	"testing"

	"bufcache/buffer"
	"bufcache/kfile"
)

func newTestLogMgr(t *testing.T) *LogMgr {
	t.Helper()
	fm, err := kfile.NewFileMgr(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("NewFileMgr: %v", err)
	}
	t.Cleanup(func() { fm.Close() })

	c, err := buffer.NewCache(4, 3, 64, fm)
	if err != nil {
		t.Fatalf("buffer.NewCache: %v", err)
	}

	dev, err := fm.Register("log.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	lm, err := NewLogMgr(c, fm, dev)
	if err != nil {
		t.Fatalf("NewLogMgr: %v", err)
	}
	return lm
}

func TestAppendAssignsIncreasingLSNs(t *testing.T) {
	lm := newTestLogMgr(t)

	lsn1, err := lm.Append([]byte("record one"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	lsn2, err := lm.Append([]byte("record two"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if lsn2 <= lsn1 {
		t.Fatalf("lsn2 (%d) should be greater than lsn1 (%d)", lsn2, lsn1)
	}
}

func TestIteratorReturnsRecordsMostRecentFirst(t *testing.T) {
	lm := newTestLogMgr(t)

	records := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, r := range records {
		if _, err := lm.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	it, err := lm.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}

	var got [][]byte
	for it.HasNext() {
		rec, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, rec)
	}

	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i, want := range []string{"third", "second", "first"} {
		if string(got[i]) != want {
			t.Errorf("record %d = %q, want %q", i, got[i], want)
		}
	}
}

func TestAppendSpansMultipleBlocksWhenPageFills(t *testing.T) {
	lm := newTestLogMgr(t)

	// 64-byte blocks leave little room; many records force at least one
	// block rollover, exercising appendNewBlock.
	for i := 0; i < 20; i++ {
		if _, err := lm.Append([]byte("xxxxxx")); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	it, err := lm.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	for it.HasNext() {
		if _, err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
		count++
	}
	if count != 20 {
		t.Fatalf("iterator produced %d records, want 20", count)
	}
}
