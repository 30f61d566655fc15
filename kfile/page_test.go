package kfile

import (
	"testing"
	"time"
)

func TestPageIntRoundTrip(t *testing.T) {
	p := NewPage(64)
	if err := p.SetInt(0, 123456); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	got, err := p.GetInt(0)
	if err != nil {
		t.Fatalf("GetInt: %v", err)
	}
	if got != 123456 {
		t.Fatalf("GetInt = %d, want 123456", got)
	}
}

func TestPageStringRoundTrip(t *testing.T) {
	p := NewPage(64)
	if err := p.SetString(4, "hello, page"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	got, err := p.GetString(4)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "hello, page" {
		t.Fatalf("GetString = %q, want %q", got, "hello, page")
	}
}

func TestPageBoolAndDateRoundTrip(t *testing.T) {
	p := NewPage(32)
	if err := p.SetBool(0, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	b, err := p.GetBool(0)
	if err != nil {
		t.Fatalf("GetBool: %v", err)
	}
	if !b {
		t.Fatalf("GetBool = false, want true")
	}

	now := time.Unix(1700000000, 0)
	if err := p.SetDate(8, now); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	got, err := p.GetDate(8)
	if err != nil {
		t.Fatalf("GetDate: %v", err)
	}
	if !got.Equal(now) {
		t.Fatalf("GetDate = %v, want %v", got, now)
	}
}

func TestPageOutOfBoundsErrors(t *testing.T) {
	p := NewPage(8)
	if _, err := p.GetInt(6); err == nil {
		t.Fatalf("expected an error reading an int past the page end")
	}
	if err := p.SetInt(6, 1); err == nil {
		t.Fatalf("expected an error writing an int past the page end")
	}
}

func TestNewPageFromBytesSharesUnderlyingSlice(t *testing.T) {
	b := make([]byte, 16)
	p := NewPageFromBytes(b)
	if err := p.SetInt(0, 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if p.Contents()[3] != 7 {
		t.Fatalf("expected writes through NewPageFromBytes to mutate the backing slice")
	}
}
