package kfile

import "testing"

func TestBlockIdEquality(t *testing.T) {
	a := NewBlockId(1, 5)
	b := NewBlockId(1, 5)
	c := NewBlockId(1, 6)

	if a != b {
		t.Errorf("%v != %v, want equal", a, b)
	}
	if a == c {
		t.Errorf("%v == %v, want distinct", a, c)
	}
}

func TestBlockIdAsMapKey(t *testing.T) {
	m := map[BlockId]int{}
	m[NewBlockId(0, 0)] = 1
	m[NewBlockId(0, 1)] = 2

	if m[NewBlockId(0, 0)] != 1 {
		t.Errorf("lookup (0,0) = %d, want 1", m[NewBlockId(0, 0)])
	}
	if len(m) != 2 {
		t.Errorf("len(m) = %d, want 2", len(m))
	}
}

func TestBlockIdNextBlock(t *testing.T) {
	b := NewBlockId(3, 9)
	next := b.NextBlock()
	if next.Dev != 3 || next.Blockno != 10 {
		t.Errorf("NextBlock() = %v, want dev=3 blockno=10", next)
	}
	if !NewBlockId(3, 0).IsFirst() {
		t.Errorf("IsFirst() on blockno 0 should be true")
	}
	if b.IsFirst() {
		t.Errorf("IsFirst() on blockno 9 should be false")
	}
}
