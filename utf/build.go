package utf

import (
	"encoding/binary"
	"math"

	"github.com/hatsuho/criutf/errs"
)

// Build serializes a Table back to its binary @UTF form: five regions
// (header, schema, rows, strings, blobs) assembled in order, with string
// interning across column names, constant strings, and row strings, and no
// deduplication of blob data.
func Build(t *Table, opts ...BuildOption) ([]byte, error) {
	o := defaultBuildOptions()
	for _, opt := range opts {
		opt(o)
	}

	if len(t.Columns) > 0xFFFF {
		return nil, errs.New(errs.HeaderMalformed, "too many columns: %d", len(t.Columns))
	}

	b := &tableBuilder{opts: o, strOffsets: make(map[string]uint32)}

	tableNameOffset, err := b.internString(t.Name)
	if err != nil {
		return nil, err
	}

	rowsData := make([][]byte, t.RowsCount)

	var schema []byte
	for i, col := range t.Columns {
		colLog := o.Logger.WithValues("column", i, "name", col.Name, "storage", col.Storage, "type", col.Type)

		if col.Type == TypeU128 {
			return nil, errs.New(errs.UnsupportedValueType, "building COLUMN_TYPE_UINT128 columns is not supported")
		}
		if _, err := col.Type.width(); err != nil {
			return nil, err
		}

		info := byte(col.Storage)<<4 | byte(col.Type)
		schema = append(schema, info)

		nameOffset, err := b.internString(col.Name)
		if err != nil {
			return nil, err
		}
		schema = append(schema, u32be(nameOffset)...)
		colLog.Trace("wrote column schema entry", "nameOffset", nameOffset)

		switch col.Storage {
		case StorageNameOnly:
		case StorageConstant:
			enc, err := b.encodeValue(col.Type, col.Constant)
			if err != nil {
				return nil, err
			}
			schema = append(schema, enc...)
		case StoragePerRow:
			if len(col.Rows) != int(t.RowsCount) {
				return nil, errs.New(errs.RowWidthMismatch, "column %q has %d rows, expected %d", col.Name, len(col.Rows), t.RowsCount)
			}
			for i := 0; i < int(t.RowsCount); i++ {
				enc, err := b.encodeValue(col.Type, col.Rows[i])
				if err != nil {
					return nil, err
				}
				rowsData[i] = append(rowsData[i], enc...)
			}
		default:
			return nil, errs.New(errs.UnsupportedStorage, "unsupported storage %v on column %q", col.Storage, col.Name)
		}
	}

	rowWidth := 0
	var rows []byte
	if t.RowsCount > 0 {
		rowWidth = len(rowsData[0])
		for _, row := range rowsData {
			if len(row) != rowWidth {
				return nil, errs.New(errs.RowWidthMismatch, "row widths are not consistent")
			}
			rows = append(rows, row...)
		}
	}

	schemaSize := len(schema)
	rowsSize := len(rows)
	stringsSize := len(b.strings)
	blobSize := len(b.blobs)

	rowsOffset := 0x20 + schemaSize
	stringsOffset := rowsOffset + rowsSize
	dataOffset := stringsOffset + stringsSize
	tableSize := dataOffset + blobSize

	if o.Alignment > 0 {
		remainder := dataOffset % o.Alignment
		if remainder > 0 {
			pad := o.Alignment - remainder
			b.strings = append(b.strings, make([]byte, pad)...)
			stringsSize = len(b.strings)
			dataOffset = stringsOffset + stringsSize
			tableSize = dataOffset + blobSize
		}
	}

	header := make([]byte, 0, 0x20)
	header = append(header, headerMagic...)
	header = append(header, u32be(uint32(tableSize-0x08))...)
	header = append(header, u16be(t.Version)...)
	header = append(header, u16be(uint16(rowsOffset-0x08))...)
	header = append(header, u32be(uint32(stringsOffset-0x08))...)
	header = append(header, u32be(uint32(dataOffset-0x08))...)
	header = append(header, u32be(tableNameOffset)...)
	header = append(header, u16be(uint16(len(t.Columns)))...)
	header = append(header, u16be(uint16(rowWidth))...)
	header = append(header, u32be(t.RowsCount)...)

	out := make([]byte, 0, tableSize)
	out = append(out, header...)
	out = append(out, schema...)
	out = append(out, rows...)
	out = append(out, b.strings...)
	out = append(out, b.blobs...)
	return out, nil
}

// tableBuilder holds the accumulating strings and blobs pools and the
// string-pool dedup map threaded through a single Build call; the header,
// schema and rows regions are assembled by Build itself.
type tableBuilder struct {
	opts       *BuildOptions
	strings    []byte
	blobs      []byte
	strOffsets map[string]uint32
}

// internString appends s to the strings pool if not already present,
// returning its pool offset either way.
func (b *tableBuilder) internString(s string) (uint32, error) {
	if off, ok := b.strOffsets[s]; ok {
		return off, nil
	}
	off := uint32(len(b.strings))
	enc, err := encodeString(s, b.opts.Encoding)
	if err != nil {
		return 0, err
	}
	b.strings = append(b.strings, enc...)
	b.strings = append(b.strings, 0)
	b.strOffsets[s] = off
	return off, nil
}

// appendBlob appends raw to the blob pool, padding it to the configured
// alignment first, and returns its (offset, size) pair. Blobs are never
// deduplicated.
func (b *tableBuilder) appendBlob(raw []byte) (offset, size uint32) {
	if b.opts.Alignment > 0 {
		if remainder := len(raw) % b.opts.Alignment; remainder > 0 {
			padded := make([]byte, len(raw), len(raw)+b.opts.Alignment-remainder)
			copy(padded, raw)
			padded = append(padded, make([]byte, b.opts.Alignment-remainder)...)
			raw = padded
		}
	}
	offset = uint32(len(b.blobs))
	size = uint32(len(raw))
	b.blobs = append(b.blobs, raw...)
	return offset, size
}

// encodeValue encodes a single value (constant or one row's worth) in
// schema/row-region form for the given type.
func (b *tableBuilder) encodeValue(t ValueType, v any) ([]byte, error) {
	switch t {
	case TypeU8:
		return []byte{v.(uint8)}, nil
	case TypeS8:
		return []byte{byte(v.(int8))}, nil
	case TypeU16:
		return u16be(v.(uint16)), nil
	case TypeS16:
		return u16be(uint16(v.(int16))), nil
	case TypeU32:
		return u32be(v.(uint32)), nil
	case TypeS32:
		return u32be(uint32(v.(int32))), nil
	case TypeU64:
		return u64be(v.(uint64)), nil
	case TypeS64:
		return u64be(uint64(v.(int64))), nil
	case TypeF32:
		f, ok := v.(float32)
		if !ok {
			return nil, errs.New(errs.UnsupportedValueType, "expected float32, got %T", v)
		}
		return u32be(math.Float32bits(f)), nil
	case TypeF64:
		f, ok := v.(float64)
		if !ok {
			return nil, errs.New(errs.UnsupportedValueType, "expected float64, got %T", v)
		}
		return u64be(math.Float64bits(f)), nil
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, errs.New(errs.UnsupportedValueType, "expected string, got %T", v)
		}
		off, err := b.internString(s)
		if err != nil {
			return nil, err
		}
		return u32be(off), nil
	case TypeBlob:
		raw, err := blobBytes(v, b.opts)
		if err != nil {
			return nil, err
		}
		off, size := b.appendBlob(raw)
		out := make([]byte, 0, 8)
		out = append(out, u32be(off)...)
		out = append(out, u32be(size)...)
		return out, nil
	default:
		return nil, errs.New(errs.UnsupportedValueType, "unsupported value type tag %#x", uint8(t))
	}
}

// blobBytes resolves a Blob column's value to its raw on-disk bytes: a
// nested *Table is built recursively (inheriting the parent's encoding and
// alignment), a []byte passes through unchanged.
func blobBytes(v any, opts *BuildOptions) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case *Table:
		return Build(val, WithBuildEncoding(opts.Encoding), WithAlignment(opts.Alignment))
	default:
		return nil, errs.New(errs.UnsupportedValueType, "expected []byte or *Table for blob column, got %T", v)
	}
}

func u16be(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
