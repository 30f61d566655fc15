package kfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Page is a structured view over one block's raw bytes: big-endian
// integers, length-prefixed byte/string fields, booleans and dates at
// caller-chosen offsets. It carries no lock of its own — callers reach a
// Page only through a cache Handle whose content lock already serializes
// access to the underlying bytes, exactly the way the buffer's data field
// is protected per SPEC_FULL.md I6.
type Page struct {
	data []byte
}

const errOutOfBounds = "offset out of bounds"

// NewPage allocates a zeroed page of blockSize bytes.
func NewPage(blockSize int) *Page {
	return &Page{data: make([]byte, blockSize)}
}

// NewPageFromBytes wraps an existing byte slice (no copy).
func NewPageFromBytes(b []byte) *Page {
	return &Page{data: b}
}

// GetInt reads a 4-byte big-endian integer from the given offset.
func (p *Page) GetInt(offset int) (int, error) {
	if offset < 0 || offset+4 > len(p.data) {
		return 0, fmt.Errorf("%s: getting int", errOutOfBounds)
	}
	return int(binary.BigEndian.Uint32(p.data[offset:])), nil
}

// SetInt writes a 4-byte big-endian integer at the given offset.
func (p *Page) SetInt(offset int, val int) error {
	if offset < 0 || offset+4 > len(p.data) {
		return fmt.Errorf("%s: setting int", errOutOfBounds)
	}
	binary.BigEndian.PutUint32(p.data[offset:], uint32(val))
	return nil
}

// GetBytes reads a length-prefixed byte slice from the given offset.
func (p *Page) GetBytes(offset int) ([]byte, error) {
	if offset < 0 || offset+4 > len(p.data) {
		return nil, fmt.Errorf("%s: getting bytes", errOutOfBounds)
	}
	length := int(binary.BigEndian.Uint32(p.data[offset : offset+4]))
	if length < 0 || offset+4+length > len(p.data) {
		return nil, fmt.Errorf("%s: invalid length", errOutOfBounds)
	}
	result := make([]byte, length)
	copy(result, p.data[offset+4:offset+4+length])
	return result, nil
}

// SetBytes writes a length-prefixed byte slice at the given offset.
func (p *Page) SetBytes(offset int, val []byte) error {
	length := len(val)
	totalSize := 4 + length
	if offset < 0 || offset+totalSize > len(p.data) {
		return fmt.Errorf("%s: setting bytes", errOutOfBounds)
	}
	binary.BigEndian.PutUint32(p.data[offset:], uint32(length))
	copy(p.data[offset+4:], val)
	return nil
}

// GetString reads a length-prefixed UTF-8 string starting at offset.
func (p *Page) GetString(offset int) (string, error) {
	b, err := p.GetBytes(offset)
	if err != nil {
		return "", fmt.Errorf("getting string: %w", err)
	}
	return string(bytes.TrimRight(b, "\x00")), nil
}

// SetString writes val as a length-prefixed byte slice at the given offset.
func (p *Page) SetString(offset int, val string) error {
	return p.SetBytes(offset, []byte(val))
}

// SetBool writes a single byte (0 or 1) at the given offset.
func (p *Page) SetBool(offset int, val bool) error {
	if offset < 0 || offset+1 > len(p.data) {
		return fmt.Errorf("%s: setting bool", errOutOfBounds)
	}
	if val {
		p.data[offset] = 1
	} else {
		p.data[offset] = 0
	}
	return nil
}

// GetBool reads a boolean value (0 or 1) from the given offset.
func (p *Page) GetBool(offset int) (bool, error) {
	if offset < 0 || offset+1 > len(p.data) {
		return false, fmt.Errorf("%s: getting bool", errOutOfBounds)
	}
	return p.data[offset] == 1, nil
}

// SetDate writes an 8-byte big-endian Unix timestamp at the given offset.
func (p *Page) SetDate(offset int, val time.Time) error {
	if offset < 0 || offset+8 > len(p.data) {
		return fmt.Errorf("%s: setting date", errOutOfBounds)
	}
	binary.BigEndian.PutUint64(p.data[offset:], uint64(val.Unix()))
	return nil
}

// GetDate reads an 8-byte big-endian Unix timestamp from the given offset.
func (p *Page) GetDate(offset int) (time.Time, error) {
	if offset < 0 || offset+8 > len(p.data) {
		return time.Unix(0, 0), fmt.Errorf("%s: getting date", errOutOfBounds)
	}
	timestamp := binary.BigEndian.Uint64(p.data[offset:])
	return time.Unix(int64(timestamp), 0), nil
}

// Contents returns the underlying byte slice.
func (p *Page) Contents() []byte { return p.data }

// Size returns the size in bytes of the page.
func (p *Page) Size() int { return len(p.data) }
