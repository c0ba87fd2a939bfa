package utf

import (
	"bytes"

	"github.com/hatsuho/criutf/cursor"
	"github.com/hatsuho/criutf/errs"
)

const headerMagic = "@UTF"
const encryptedMagic = "\x1f\x9e\xf3\xf5"

// header holds the raw, already-offset-adjusted fields read from the first
// 0x20 bytes of an @UTF table.
type header struct {
	tableSize      int64
	version        uint16
	rowsOffset     int64
	stringsOffset  int64
	dataOffset     int64
	nameOffsetRtst uint32
	columnsCount   uint16
	rowWidth       uint16
	rowsCount      uint32

	schemaSize  int64
	rowsSize    int64
	stringsSize int64
	dataSize    int64
}

func readHeader(c *cursor.ByteCursor) (*header, error) {
	magic, err := c.ReadAt(0, 4)
	if err != nil {
		return nil, errs.Wrap(errs.BadMagic, err, "read table magic")
	}
	switch string(magic) {
	case headerMagic:
	case encryptedMagic:
		return nil, errs.New(errs.EncryptedTable, "table is encrypted (obfuscated @UTF header)")
	default:
		return nil, errs.New(errs.BadMagic, "unrecognized table magic %x", magic)
	}

	c.Seek(4)
	rawTableSize, err := c.ReadU32BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read table_size")
	}
	version, err := c.ReadU16BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read version")
	}
	rawRowsOffset, err := c.ReadU16BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read rows_offset")
	}
	rawStringsOffset, err := c.ReadU32BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read strings_offset")
	}
	rawDataOffset, err := c.ReadU32BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read data_offset")
	}
	nameOffsetRtst, err := c.ReadU32BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read name_offset_rtst")
	}
	columnsCount, err := c.ReadU16BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read columns_count")
	}
	rowWidth, err := c.ReadU16BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read row_width")
	}
	rowsCount, err := c.ReadU32BE()
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read rows_count")
	}

	h := &header{
		tableSize:      int64(rawTableSize) + 0x08,
		version:        version,
		rowsOffset:     int64(rawRowsOffset) + 0x08,
		stringsOffset:  int64(rawStringsOffset) + 0x08,
		dataOffset:     int64(rawDataOffset) + 0x08,
		nameOffsetRtst: nameOffsetRtst,
		columnsCount:   columnsCount,
		rowWidth:       rowWidth,
		rowsCount:      rowsCount,
	}

	h.schemaSize = h.rowsOffset - 0x20
	h.rowsSize = h.stringsOffset - h.rowsOffset
	h.stringsSize = h.dataOffset - h.stringsOffset
	h.dataSize = h.tableSize - h.dataOffset

	if h.schemaSize < 0 {
		return nil, errs.New(errs.HeaderMalformed, "invalid schema size %d", h.schemaSize)
	}
	if h.rowsSize < 0 || h.rowsSize < int64(h.rowsCount)*int64(h.rowWidth) {
		return nil, errs.New(errs.HeaderMalformed, "invalid rows size %d", h.rowsSize)
	}
	if h.stringsSize < 0 || h.stringsSize < int64(h.nameOffsetRtst) {
		return nil, errs.New(errs.HeaderMalformed, "invalid strings size %d", h.stringsSize)
	}
	if h.dataSize < 0 {
		return nil, errs.New(errs.HeaderMalformed, "invalid data size %d", h.dataSize)
	}
	return h, nil
}

// Parse reads a complete @UTF table (header, schema, rows, and the string
// and blob pools) from data. Blob columns whose payload starts with the
// @UTF magic are recursively parsed into nested *Table values, up to
// opts.MaxDepth.
func Parse(data []byte, opts ...ParseOption) (*Table, error) {
	return parse(cursor.NewMemory(data), 0, applyParseOptions(opts))
}

// ParseFile memory-maps path and parses it as a single @UTF table.
func ParseFile(path string, opts ...ParseOption) (*Table, error) {
	c, err := cursor.NewFile(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return parse(c, 0, applyParseOptions(opts))
}

func applyParseOptions(opts []ParseOption) *ParseOptions {
	o := defaultParseOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func parse(c *cursor.ByteCursor, depth int, opts *ParseOptions) (*Table, error) {
	if depth > opts.MaxDepth {
		return nil, errs.New(errs.RecursionDepthExceeded, "nested table depth %d exceeds max %d", depth, opts.MaxDepth)
	}

	h, err := readHeader(c)
	if err != nil {
		return nil, err
	}

	p := &tableParser{c: c, h: h, opts: opts, depth: depth}

	name, err := p.stringAt(h.nameOffsetRtst)
	if err != nil {
		return nil, errs.Wrap(errs.HeaderMalformed, err, "read table name")
	}

	opts.Logger.Trace("parsing utf table", "name", name, "rowsCount", h.rowsCount, "columnsCount", h.columnsCount)

	t := &Table{
		Name:      name,
		Version:   h.version,
		RowsCount: h.rowsCount,
		encoding:  opts.Encoding,
	}

	columns, err := p.parseSchema()
	if err != nil {
		return nil, err
	}
	t.Columns = columns
	t.parsed = true
	return t, nil
}

// tableParser holds the mutable cursor state threaded through a single
// table's schema walk.
type tableParser struct {
	c     *cursor.ByteCursor
	h     *header
	opts  *ParseOptions
	depth int
}

func (p *tableParser) stringAt(offset uint32) (string, error) {
	if int64(offset) >= p.h.stringsSize {
		return "", errs.New(errs.OffsetOutOfBounds, "strings offset %#x out of bounds", offset)
	}
	raw, err := p.c.ReadCString(p.h.stringsOffset + int64(offset))
	if err != nil {
		return "", err
	}
	return decodeString(raw, p.opts.Encoding)
}

func (p *tableParser) blobAt(offset, size uint32) ([]byte, error) {
	if int64(offset)+int64(size) > p.h.dataSize {
		return nil, errs.New(errs.OffsetOutOfBounds, "blob range [%#x,+%#x) out of bounds", offset, size)
	}
	return p.c.ReadAt(p.h.dataOffset+int64(offset), int(size))
}

func (p *tableParser) parseSchema() ([]Column, error) {
	columns := make([]Column, 0, p.h.columnsCount)
	offset := int64(0x20)
	offsetInRow := 0

	for i := 0; i < int(p.h.columnsCount); i++ {
		if offset+5-0x20 > p.h.schemaSize {
			return nil, errs.New(errs.HeaderMalformed, "schema offset %#x out of bounds", offset+5-0x20)
		}
		p.c.Seek(offset)
		infoByte, err := p.c.ReadU8()
		if err != nil {
			return nil, err
		}
		nameOffset, err := p.c.ReadU32BE()
		if err != nil {
			return nil, err
		}
		offset += 5

		storage := Storage(infoByte >> 4)
		valType := ValueType(infoByte & 0x0F)
		width, err := valType.width()
		if err != nil {
			return nil, err
		}

		col := Column{Storage: storage, Type: valType}

		switch storage {
		case StorageNameOnly:
		case StorageConstant:
		case StoragePerRow:
		default:
			return nil, errs.New(errs.UnsupportedStorage, "unsupported data flag %#x", infoByte>>4)
		}

		name, err := p.stringAt(nameOffset)
		if err != nil {
			return nil, err
		}
		col.Name = name

		colLog := p.opts.Logger.WithValues("column", i, "name", name, "storage", storage, "type", valType)
		colLog.Trace("parsed column schema")

		if storage == StorageConstant {
			if offset+int64(width)-0x20 > p.h.schemaSize {
				return nil, errs.New(errs.HeaderMalformed, "schema offset %#x out of bounds", offset+int64(width)-0x20)
			}
			p.c.Seek(offset)
			value, err := p.readScalar(valType)
			if err != nil {
				return nil, err
			}
			offset += int64(width)
			resolved, err := p.resolvePoolValue(valType, value)
			if err != nil {
				return nil, err
			}
			col.Constant = resolved
		}

		if storage == StoragePerRow {
			if offsetInRow+width > int(p.h.rowWidth) {
				return nil, errs.New(errs.HeaderMalformed, "row offset %#x out of bounds", offsetInRow+width)
			}
			columnOffsetInRow := offsetInRow
			offsetInRow += width

			rows := make([]any, p.h.rowsCount)
			for row := 0; row < int(p.h.rowsCount); row++ {
				p.c.Seek(p.h.rowsOffset + int64(row)*int64(p.h.rowWidth) + int64(columnOffsetInRow))
				value, err := p.readScalar(valType)
				if err != nil {
					return nil, err
				}
				resolved, err := p.resolvePoolValue(valType, value)
				if err != nil {
					return nil, err
				}
				rows[row] = resolved
			}
			col.Rows = rows
			colLog.Trace("read per-row column data", "rowsCount", p.h.rowsCount, "rowOffset", columnOffsetInRow)
		}

		columns = append(columns, col)
	}
	return columns, nil
}

// readScalar reads one fixed-width value in schema-region encoding: the raw
// scalar for numeric types, a strings-pool offset for String, or an
// (offset, size) pair for Blob.
func (p *tableParser) readScalar(t ValueType) (any, error) {
	switch t {
	case TypeU8:
		return p.c.ReadU8()
	case TypeS8:
		return p.c.ReadS8()
	case TypeU16:
		return p.c.ReadU16BE()
	case TypeS16:
		return p.c.ReadS16BE()
	case TypeU32:
		return p.c.ReadU32BE()
	case TypeS32:
		return p.c.ReadS32BE()
	case TypeU64:
		return p.c.ReadU64BE()
	case TypeS64:
		return p.c.ReadS64BE()
	case TypeF32:
		return p.c.ReadF32BE()
	case TypeF64:
		return p.c.ReadF64BE()
	case TypeString:
		return p.c.ReadU32BE()
	case TypeBlob:
		off, err := p.c.ReadU32BE()
		if err != nil {
			return nil, err
		}
		size, err := p.c.ReadU32BE()
		if err != nil {
			return nil, err
		}
		return [2]uint32{off, size}, nil
	case TypeU128:
		raw, err := p.c.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		var u U128
		copy(u[:], raw)
		return u, nil
	default:
		return nil, errs.New(errs.UnsupportedValueType, "unsupported value type tag %#x", uint8(t))
	}
}

// resolvePoolValue resolves a raw schema-region value into its final form:
// String offsets become Go strings, Blob (offset, size) pairs become []byte
// (or a recursively-parsed *Table when they sniff as one), everything else
// passes through unchanged.
func (p *tableParser) resolvePoolValue(t ValueType, raw any) (any, error) {
	switch t {
	case TypeString:
		return p.stringAt(raw.(uint32))
	case TypeBlob:
		pair := raw.([2]uint32)
		blob, err := p.blobAt(pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		if p.opts.SniffBlob && p.depth < p.opts.MaxDepth && bytes.HasPrefix(blob, []byte(headerMagic)) {
			nested, err := parse(cursor.NewMemory(blob), p.depth+1, p.opts)
			if err != nil {
				return nil, err
			}
			return nested, nil
		}
		return blob, nil
	default:
		return raw, nil
	}
}
