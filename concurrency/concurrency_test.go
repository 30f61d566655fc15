package concurrency

import (
	"sync"
	"testing"
	"time"

	"bufcache/kfile"
)

// TestConcurrencyManagerConcurrent exercises multiple readers followed by an
// exclusive writer against a shared lock table.
func TestConcurrencyManagerConcurrent(t *testing.T) {
	lt := NewLockTable()
	blk := kfile.NewBlockId(1, 42)

	var wg sync.WaitGroup
	const numReaders = 3

	for i := 1; i <= numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()
			cm := NewConcurrencyMgr(lt)

			if err := cm.SLock(blk); err != nil {
				t.Errorf("[reader %d] SLock: %v", readerID, err)
				return
			}
			time.Sleep(50 * time.Millisecond)
			if err := cm.Release(); err != nil {
				t.Errorf("[reader %d] release: %v", readerID, err)
			}
		}(i)
	}

	time.Sleep(25 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		cm := NewConcurrencyMgr(lt)

		if err := cm.XLock(blk); err != nil {
			t.Errorf("[writer] XLock: %v", err)
			return
		}
		time.Sleep(50 * time.Millisecond)
		if err := cm.Release(); err != nil {
			t.Errorf("[writer] release: %v", err)
		}
	}()

	wg.Wait()
}

func TestLockTableUpgradeAndUnlock(t *testing.T) {
	lt := NewLockTable()
	blk := kfile.NewBlockId(1, 1)

	if err := lt.SLock(blk); err != nil {
		t.Fatalf("SLock: %v", err)
	}
	if lockType, count := lt.GetLockInfo(blk); lockType != "shared" || count != 1 {
		t.Errorf("got type=%s count=%d, want shared/1", lockType, count)
	}

	if err := lt.XLock(blk); err != nil {
		t.Fatalf("XLock upgrade: %v", err)
	}
	if lockType, _ := lt.GetLockInfo(blk); lockType != "exclusive" {
		t.Errorf("got type=%s, want exclusive", lockType)
	}

	if err := lt.Unlock(blk); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if lockType, count := lt.GetLockInfo(blk); lockType != "none" || count != 0 {
		t.Errorf("got type=%s count=%d, want none/0", lockType, count)
	}
}

func TestXLockBlocksUntilSharedLockReleased(t *testing.T) {
	lt := NewLockTable()
	blk := kfile.NewBlockId(1, 7)
	holder := NewConcurrencyMgr(lt)
	if err := holder.SLock(blk); err != nil {
		t.Fatalf("SLock: %v", err)
	}

	acquired := make(chan struct{})
	contender := NewConcurrencyMgr(lt)
	go func() {
		if err := contender.XLock(blk); err != nil {
			t.Errorf("XLock: %v", err)
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("XLock acquired while shared lock still held")
	case <-time.After(50 * time.Millisecond):
	}

	holder.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("XLock never acquired after shared lock released")
	}
	contender.Release()
}
