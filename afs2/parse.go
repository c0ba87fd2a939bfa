package afs2

import (
	"github.com/hatsuho/criutf/cursor"
	"github.com/hatsuho/criutf/errs"
)

const headerMagic = "AFS2"

// Parse reads a complete AFS2 archive (header, identifier table, offset
// table, and every subfile's raw bytes) from data.
func Parse(data []byte, opts ...ParseOption) (*Archive, error) {
	return parse(cursor.NewMemory(data), applyParseOptions(opts))
}

// ParseFile memory-maps path and parses it as an AFS2 archive.
func ParseFile(path string, opts ...ParseOption) (*Archive, error) {
	c, err := cursor.NewFile(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return parse(c, applyParseOptions(opts))
}

func applyParseOptions(opts []ParseOption) *ParseOptions {
	o := defaultParseOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func parse(c *cursor.ByteCursor, opts *ParseOptions) (*Archive, error) {
	magic, err := c.ReadAt(0, 4)
	if err != nil {
		return nil, errs.Wrap(errs.BadMagic, err, "read archive magic")
	}
	if string(magic) != headerMagic {
		return nil, errs.New(errs.BadMagic, "unrecognized archive magic %x", magic)
	}

	c.Seek(4)
	version, err := c.ReadU8()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read version")
	}
	offsetSize, err := c.ReadU8()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read offset_size")
	}
	audioIDSize16, err := c.ReadU16LE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read audioid_size")
	}
	subfilesCount, err := c.ReadU32LE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read subfiles_count")
	}
	alignment, err := c.ReadU16LE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read offset_alignment")
	}
	subkey, err := c.ReadU16LE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read subkey")
	}

	audioIDSize := uint8(audioIDSize16)
	audioIDWidth, err := widthOf(audioIDSize)
	if err != nil {
		return nil, err
	}
	offsetWidth, err := widthOf(offsetSize)
	if err != nil {
		return nil, err
	}

	headerConsumed := int64(0x10)

	audioIDs := make([]uint32, subfilesCount)
	for i := 0; i < int(subfilesCount); i++ {
		var v uint32
		if audioIDWidth == 2 {
			u, err := c.ReadU16LE()
			if err != nil {
				return nil, errs.Wrap(errs.HeaderMalformed, err, "read audio ID %d", i)
			}
			v = uint32(u)
		} else {
			v, err = c.ReadU32LE()
			if err != nil {
				return nil, errs.Wrap(errs.HeaderMalformed, err, "read audio ID %d", i)
			}
		}
		audioIDs[i] = v
		headerConsumed += int64(audioIDWidth)
	}

	rawOffsets := make([]int64, subfilesCount+1)
	for i := 0; i < int(subfilesCount)+1; i++ {
		var v uint32
		if offsetWidth == 2 {
			u, err := c.ReadU16LE()
			if err != nil {
				return nil, errs.Wrap(errs.HeaderMalformed, err, "read offset table entry %d", i)
			}
			v = uint32(u)
		} else {
			v, err = c.ReadU32LE()
			if err != nil {
				return nil, errs.Wrap(errs.HeaderMalformed, err, "read offset table entry %d", i)
			}
		}
		rawOffsets[i] = int64(v)
		headerConsumed += int64(offsetWidth)
	}

	if headerConsumed > rawOffsets[0] {
		return nil, errs.New(errs.HeaderMalformed, "header size %d exceeds first subfile offset %d", headerConsumed, rawOffsets[0])
	}
	if c.Len() < rawOffsets[len(rawOffsets)-1] {
		return nil, errs.New(errs.HeaderMalformed, "archive length %d is less than final offset %d", c.Len(), rawOffsets[len(rawOffsets)-1])
	}

	archive := &Archive{
		Version:     version,
		OffsetSize:  offsetSize,
		AudioIDSize: audioIDSize,
		Alignment:   alignment,
		Subkey:      subkey,
		Entries:     make([]Entry, subfilesCount),
	}

	for i := 0; i < int(subfilesCount); i++ {
		start := roundUp(rawOffsets[i], int64(alignment))
		end := rawOffsets[i+1]
		if end < start {
			return nil, errs.New(errs.HeaderMalformed, "subfile %d has negative length (start %d, end %d)", i, start, end)
		}
		payload, err := c.ReadAt(start, int(end-start))
		if err != nil {
			return nil, errs.Wrap(errs.OffsetOutOfBounds, err, "read subfile %d payload", i)
		}
		archive.Entries[i] = Entry{AudioID: audioIDs[i], Data: payload}
	}

	opts.Logger.Trace("parsed afs2 archive", "subfilesCount", subfilesCount, "alignment", alignment)
	return archive, nil
}
