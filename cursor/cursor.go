// Package cursor provides ByteCursor, a positioned view over an in-memory
// buffer or a memory-mapped file, with sized big/little-endian reads. Every
// higher layer (utf, afs2) speaks to its byte source only through this type.
package cursor

import (
	"encoding/binary"
	"math"

	"github.com/hatsuho/criutf/errs"
)

// Source is the minimal byte-addressable backing store a ByteCursor reads
// from. Both the in-memory and mmap-backed constructors satisfy it.
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
	Len() int64
	Close() error
}

// ByteCursor is a positioned view over a Source. ReadBytes and the sized
// reads start at the current position and advance it, so callers Seek to a
// computed absolute offset and then read sequentially from there; ReadAt and
// ReadCString take an absolute offset and leave the position unchanged.
type ByteCursor struct {
	src Source
	pos int64
}

// New wraps src in a ByteCursor positioned at offset 0.
func New(src Source) *ByteCursor {
	return &ByteCursor{src: src}
}

// NewMemory wraps an in-memory buffer. The ByteCursor does not take
// ownership of buf beyond the lifetime of the call using it; buf is not
// copied.
func NewMemory(buf []byte) *ByteCursor {
	return New(memorySource(buf))
}

// Len reports the total size of the underlying source.
func (c *ByteCursor) Len() int64 {
	return c.src.Len()
}

// Pos reports the cursor's current absolute offset.
func (c *ByteCursor) Pos() int64 {
	return c.pos
}

// Seek repositions the cursor to an absolute offset. It does not itself
// validate the offset against Len(); the next read does, so a Seek to a
// valid header position followed immediately by a bounds-checked read
// remains a single failure point.
func (c *ByteCursor) Seek(offset int64) {
	c.pos = offset
}

// Close releases the underlying source (unmapping a memory-mapped file, or
// a no-op for an in-memory buffer).
func (c *ByteCursor) Close() error {
	return c.src.Close()
}

// ReadBytes reads n raw bytes starting at the cursor's current position and
// advances the cursor by n.
func (c *ByteCursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.New(errs.OffsetOutOfBounds, "negative read length %d", n)
	}
	buf := make([]byte, n)
	read, err := c.src.ReadAt(buf, c.pos)
	if err != nil || read != n {
		return nil, errs.Wrap(errs.OffsetOutOfBounds, err,
			"read %d bytes at offset %#x (got %d)", n, c.pos, read)
	}
	c.pos += int64(n)
	return buf, nil
}

// ReadAt reads n raw bytes from an absolute offset without disturbing the
// cursor's running position.
func (c *ByteCursor) ReadAt(offset int64, n int) ([]byte, error) {
	if n < 0 || offset < 0 {
		return nil, errs.New(errs.OffsetOutOfBounds, "invalid read: offset %#x length %d", offset, n)
	}
	buf := make([]byte, n)
	read, err := c.src.ReadAt(buf, offset)
	if err != nil || read != n {
		return nil, errs.Wrap(errs.OffsetOutOfBounds, err,
			"read %d bytes at offset %#x (got %d)", n, offset, read)
	}
	return buf, nil
}

func (c *ByteCursor) ReadU8() (uint8, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *ByteCursor) ReadS8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *ByteCursor) ReadU16BE() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *ByteCursor) ReadU16LE() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *ByteCursor) ReadS16BE() (int16, error) {
	v, err := c.ReadU16BE()
	return int16(v), err
}

func (c *ByteCursor) ReadU32BE() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *ByteCursor) ReadU32LE() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *ByteCursor) ReadS32BE() (int32, error) {
	v, err := c.ReadU32BE()
	return int32(v), err
}

func (c *ByteCursor) ReadU64BE() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *ByteCursor) ReadS64BE() (int64, error) {
	v, err := c.ReadU64BE()
	return int64(v), err
}

func (c *ByteCursor) ReadF32BE() (float32, error) {
	v, err := c.ReadU32BE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *ByteCursor) ReadF64BE() (float64, error) {
	v, err := c.ReadU64BE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadCString reads a NUL-terminated byte run starting at an absolute
// offset, without requiring the caller to know its length in advance. It
// does not disturb the cursor's running position.
func (c *ByteCursor) ReadCString(from int64) ([]byte, error) {
	const chunk = 64
	var out []byte
	offset := from
	for {
		buf, err := c.ReadAt(offset, chunk)
		if err != nil {
			// Fall back to reading whatever remains if a full chunk would
			// overrun the source.
			remaining := c.Len() - offset
			if remaining <= 0 {
				return nil, errs.Wrap(errs.OffsetOutOfBounds, err, "unterminated string at offset %#x", from)
			}
			buf, err = c.ReadAt(offset, int(remaining))
			if err != nil {
				return nil, errs.Wrap(errs.OffsetOutOfBounds, err, "unterminated string at offset %#x", from)
			}
		}
		if idx := indexZero(buf); idx >= 0 {
			out = append(out, buf[:idx]...)
			return out, nil
		}
		out = append(out, buf...)
		offset += int64(len(buf))
		if len(buf) < chunk {
			return nil, errs.New(errs.OffsetOutOfBounds, "unterminated string at offset %#x", from)
		}
	}
}

func indexZero(b []byte) int {
	for i, v := range b {
		if v == 0 {
			return i
		}
	}
	return -1
}
