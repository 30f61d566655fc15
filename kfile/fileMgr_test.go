package kfile

import "testing"

func TestNewFileMgrCreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/sub"
	fm, err := NewFileMgr(dir, 64)
	if err != nil {
		t.Fatalf("NewFileMgr: %v", err)
	}
	defer fm.Close()

	if !fm.IsNew() {
		t.Errorf("expected IsNew() true for a freshly created directory")
	}
	if fm.BlockSize() != 64 {
		t.Errorf("BlockSize() = %d, want 64", fm.BlockSize())
	}
}

func TestRegisterIsStableAndDistinct(t *testing.T) {
	fm, err := NewFileMgr(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("NewFileMgr: %v", err)
	}
	defer fm.Close()

	a1, err := fm.Register("a.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	a2, err := fm.Register("a.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if a1 != a2 {
		t.Errorf("Register(\"a.db\") returned %d then %d, want stable id", a1, a2)
	}

	b, err := fm.Register("b.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if b == a1 {
		t.Errorf("distinct names got the same device id %d", b)
	}
}

func TestWriteAtThenReadAtRoundTrips(t *testing.T) {
	fm, err := NewFileMgr(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("NewFileMgr: %v", err)
	}
	defer fm.Close()

	dev, err := fm.Register("data.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	want := []byte("0123456789abcdef")
	if err := fm.WriteAt(dev, 2, want); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	got := make([]byte, 16)
	if err := fm.ReadAt(dev, 2, got); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("ReadAt = %q, want %q", got, want)
	}
	if fm.BlocksWritten() != 1 || fm.BlocksRead() != 1 {
		t.Errorf("BlocksWritten/BlocksRead = %d/%d, want 1/1", fm.BlocksWritten(), fm.BlocksRead())
	}
}

func TestReadAtPastEOFYieldsZeroedBlock(t *testing.T) {
	fm, err := NewFileMgr(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("NewFileMgr: %v", err)
	}
	defer fm.Close()

	dev, err := fm.Register("sparse.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xFF
	}
	if err := fm.ReadAt(dev, 3, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0 past EOF", i, b)
		}
	}
}

func TestAppendGrowsLength(t *testing.T) {
	fm, err := NewFileMgr(t.TempDir(), 32)
	if err != nil {
		t.Fatalf("NewFileMgr: %v", err)
	}
	defer fm.Close()

	dev, err := fm.Register("grow.db")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	length, err := fm.Length(dev)
	if err != nil {
		t.Fatalf("Length: %v", err)
	}
	if length != 0 {
		t.Fatalf("initial Length = %d, want 0", length)
	}

	for i := 0; i < 3; i++ {
		blockno, err := fm.Append(dev)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if blockno != uint64(i) {
			t.Fatalf("Append #%d returned blockno %d, want %d", i, blockno, i)
		}
	}

	length, err = fm.Length(dev)
	if err != nil {
		t.Fatalf("Length: %v", err)
	}
	if length != 3 {
		t.Fatalf("Length after 3 appends = %d, want 3", length)
	}
}
