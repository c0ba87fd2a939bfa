package cursor

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBytesAdvancesPosition(t *testing.T) {
	c := NewMemory([]byte{0x01, 0x02, 0x03, 0x04})
	b, err := c.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, b)
	require.Equal(t, int64(2), c.Pos())

	b, err = c.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x03, 0x04}, b)
}

func TestReadBytesOutOfBounds(t *testing.T) {
	c := NewMemory([]byte{0x01})
	_, err := c.ReadBytes(4)
	require.Error(t, err)
}

func TestSeekThenRead(t *testing.T) {
	c := NewMemory([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	c.Seek(2)
	b, err := c.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xCC, 0xDD}, b)
}

func TestIntegerReadsBigAndLittleEndian(t *testing.T) {
	c := NewMemory([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})

	c.Seek(0)
	u16be, err := c.ReadU16BE()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0001), u16be)

	c.Seek(0)
	u16le, err := c.ReadU16LE()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0100), u16le)

	c.Seek(0)
	u32be, err := c.ReadU32BE()
	require.NoError(t, err)
	require.Equal(t, uint32(0x00010203), u32be)

	c.Seek(0)
	u32le, err := c.ReadU32LE()
	require.NoError(t, err)
	require.Equal(t, uint32(0x03020100), u32le)

	c.Seek(0)
	u64be, err := c.ReadU64BE()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0001020304050607), u64be)
}

func TestSignedReads(t *testing.T) {
	c := NewMemory([]byte{0xFF, 0xFF, 0xFF})
	s8, err := c.ReadS8()
	require.NoError(t, err)
	require.Equal(t, int8(-1), s8)

	c.Seek(0)
	s16, err := c.ReadS16BE()
	require.NoError(t, err)
	require.Equal(t, int16(-1), s16)
}

func TestFloatReads(t *testing.T) {
	buf := make([]byte, 12)
	bits32 := math.Float32bits(3.5)
	buf[0] = byte(bits32 >> 24)
	buf[1] = byte(bits32 >> 16)
	buf[2] = byte(bits32 >> 8)
	buf[3] = byte(bits32)

	bits64 := math.Float64bits(-2.25)
	for i := 0; i < 8; i++ {
		buf[4+i] = byte(bits64 >> (56 - 8*i))
	}

	c := NewMemory(buf)
	f32, err := c.ReadF32BE()
	require.NoError(t, err)
	require.Equal(t, float32(3.5), f32)

	f64, err := c.ReadF64BE()
	require.NoError(t, err)
	require.Equal(t, -2.25, f64)
}

func TestReadCString(t *testing.T) {
	buf := append([]byte("hello"), 0x00)
	buf = append(buf, []byte("world")...)
	buf = append(buf, 0x00)

	c := NewMemory(buf)
	s, err := c.ReadCString(0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(s))

	s, err = c.ReadCString(6)
	require.NoError(t, err)
	require.Equal(t, "world", string(s))
}

func TestReadCStringUnterminated(t *testing.T) {
	c := NewMemory([]byte("noterm"))
	_, err := c.ReadCString(0)
	require.Error(t, err)
}

func TestReadCStringLongerThanChunk(t *testing.T) {
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = 'x'
	}
	buf := append(payload, 0x00)
	c := NewMemory(buf)
	s, err := c.ReadCString(0)
	require.NoError(t, err)
	require.Equal(t, string(payload), string(s))
}

func TestLenAndReadAtDoesNotMovePosition(t *testing.T) {
	c := NewMemory([]byte{0x01, 0x02, 0x03})
	require.Equal(t, int64(3), c.Len())

	c.Seek(1)
	b, err := c.ReadAt(0, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, b)
	require.Equal(t, int64(1), c.Pos())
}

func TestFileCursorMapsAndCloses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x10, 0x20, 0x30, 0x40}, 0o644))

	c, err := NewFile(path)
	require.NoError(t, err)
	require.Equal(t, int64(4), c.Len())

	b, err := c.ReadBytes(4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x20, 0x30, 0x40}, b)

	require.NoError(t, c.Close())
}
