package afs2

import (
	"encoding/binary"
	"math"

	"github.com/hatsuho/criutf/errs"
)

// Build serializes an Archive back to its binary AFS2 form: header,
// identifier table, zero-filled offset table, then every entry's payload
// padded to the configured alignment, with the offset table backfilled
// once every entry's real position is known. Entry identifiers are always
// written as the entry's sequential index; custom per-entry identifiers
// are not supported on write.
func Build(archive *Archive, opts ...BuildOption) ([]byte, error) {
	o := defaultBuildOptions()
	for _, opt := range opts {
		opt(o)
	}

	audioIDWidth, err := widthOf(o.AudioIDSize)
	if err != nil {
		return nil, err
	}
	offsetWidth, err := widthOf(o.OffsetSize)
	if err != nil {
		return nil, err
	}

	count := len(archive.Entries)
	if err := checkBounds(count, audioIDWidth, o.Alignment); err != nil {
		return nil, err
	}

	header := buildHeader(o, count)

	lastEnd := make([]int64, count+1)
	start := make([]int64, count+1)

	offset := int64(len(header))
	lastEnd[0] = offset
	alignedStart := roundUp(offset, int64(o.Alignment))
	start[0] = alignedStart

	out := make([]byte, 0, len(header)+int(alignedStart-offset))
	out = append(out, header...)
	out = append(out, make([]byte, alignedStart-offset)...)

	for i, entry := range archive.Entries {
		entryLog := o.Logger.WithValues("entry", i, "audioID", entry.AudioID)

		out = append(out, entry.Data...)
		offset = alignedStart + int64(len(entry.Data))
		alignedStart = roundUp(offset, int64(o.Alignment))
		lastEnd[i+1] = offset
		start[i+1] = alignedStart
		entryLog.Trace("assembled offset table entry", "start", start[i], "end", offset, "alignedNext", alignedStart)

		isLast := i == count-1
		if !isLast || o.OffsetMode == OffsetModeStart {
			out = append(out, make([]byte, alignedStart-offset)...)
		}
	}

	maxOffset := maxTableWidth(o.OffsetSize)
	offsetTable := lastEnd
	if o.OffsetMode == OffsetModeStart {
		offsetTable = start
	}
	for _, v := range offsetTable {
		if v > maxOffset {
			return nil, errs.New(errs.ArchiveTooLarge, "offset %d exceeds max for %d-byte offset table", v, o.OffsetSize)
		}
	}

	tableOffset := 0x10 + audioIDWidth*count
	for i, v := range offsetTable {
		pos := tableOffset + i*offsetWidth
		writeWidth(out[pos:pos+offsetWidth], uint32(v), offsetWidth)
	}

	o.Logger.Trace("built afs2 archive", "subfilesCount", count, "alignment", o.Alignment)
	return out, nil
}

// checkBounds enforces the build-time limits that can't be caught by
// widthOf or the offset-table overflow check: alignment must be a positive
// 16-bit value (alignment == 0 would silently build a contiguous,
// unaligned archive via roundUp's no-op passthrough instead of failing),
// and entries_count must fit both the sequential identifier width and
// 2^32.
func checkBounds(count int, audioIDWidth int, alignment uint16) error {
	if alignment == 0 {
		return errs.New(errs.ArchiveTooLarge, "alignment must be in [1, 0xFFFF], got 0")
	}
	idCapacity := int64(1) << uint(8*audioIDWidth)
	if int64(count) > idCapacity {
		return errs.New(errs.ArchiveTooLarge, "entries_count %d exceeds capacity %d for %d-byte identifiers", count, idCapacity, audioIDWidth)
	}
	if int64(count) > math.MaxUint32 {
		return errs.New(errs.ArchiveTooLarge, "entries_count %d exceeds 2^32", count)
	}
	return nil
}

func maxTableWidth(size uint8) int64 {
	if size == 2 {
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

func buildHeader(o *BuildOptions, count int) []byte {
	audioIDWidth, _ := widthOf(o.AudioIDSize)
	offsetWidth, _ := widthOf(o.OffsetSize)

	header := make([]byte, 0, 0x10+audioIDWidth*count+offsetWidth*(count+1))
	header = append(header, headerMagic...)
	header = append(header, o.Version)
	header = append(header, o.OffsetSize)
	header = append(header, u16le(uint16(o.AudioIDSize))...)
	header = append(header, u32le(uint32(count))...)
	header = append(header, u16le(o.Alignment)...)
	header = append(header, u16le(o.Subkey)...)

	for i := 0; i < count; i++ {
		buf := make([]byte, audioIDWidth)
		writeWidth(buf, uint32(i), audioIDWidth)
		header = append(header, buf...)
	}

	// Offset table is zero-filled here; Build backfills it once every
	// entry's real position is known.
	header = append(header, make([]byte, offsetWidth*(count+1))...)
	return header
}

func writeWidth(buf []byte, v uint32, width int) {
	if width == 2 {
		binary.LittleEndian.PutUint16(buf, uint16(v))
	} else {
		binary.LittleEndian.PutUint32(buf, v)
	}
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
