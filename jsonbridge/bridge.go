package jsonbridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/hatsuho/criutf/errs"
	"github.com/hatsuho/criutf/utf"
)

// ToTree converts a parsed or in-memory utf.Table into its canonical JSON
// tree. Blob columns recognized as nested tables (utf.Table.Value would
// return a *utf.Table) recurse rather than flatten to base64.
func ToTree(table *utf.Table) (*Table, error) {
	columns := make([]Column, 0, len(table.Columns))
	for _, col := range table.Columns {
		tag, isTable, err := bridgeTag(col.Type, col.Storage, col.Constant, col.Rows)
		if err != nil {
			return nil, err
		}

		out := Column{
			DataFlag:   uint8(col.Storage),
			ValueType:  tag,
			ColumnName: col.Name,
		}

		switch col.Storage {
		case utf.StorageConstant:
			v, err := bridgeValue(col.Constant, isTable)
			if err != nil {
				return nil, err
			}
			out.Constant = v
		case utf.StoragePerRow:
			rows := make([]any, len(col.Rows))
			for i, rv := range col.Rows {
				v, err := bridgeValue(rv, isTable)
				if err != nil {
					return nil, err
				}
				rows[i] = v
			}
			out.Rows = rows
		}

		columns = append(columns, out)
	}

	return &Table{
		TableName:    table.Name,
		Version:      table.Version,
		RowsCount:    table.RowsCount,
		ColumnsCount: uint16(table.ColumnsCount()),
		Columns:      columns,
	}, nil
}

// bridgeTag picks a column's JSON valueType string, distinguishing an
// opaque blob from one recognized as a nested table. A NameOnly column
// carries no value to inspect, so it falls back to the plain on-disk tag.
func bridgeTag(t utf.ValueType, storage utf.Storage, constant any, rows []any) (tag string, isTable bool, err error) {
	if t == utf.TypeBlob {
		switch storage {
		case utf.StorageConstant:
			if _, ok := constant.(*utf.Table); ok {
				return vldataUTFTableTag, true, nil
			}
		case utf.StoragePerRow:
			for _, v := range rows {
				if _, ok := v.(*utf.Table); ok {
					return vldataUTFTableTag, true, nil
				}
			}
		}
	}
	name, ok := utf.TypeTagName(t)
	if !ok {
		return "", false, errs.New(errs.UnsupportedValueType, "unsupported value type tag %#x", uint8(t))
	}
	return name, false, nil
}

// bridgeValue converts one cell's Go-typed value to its JSON-ready form.
// []byte and scalar numeric/string types already marshal correctly via
// encoding/json (including []byte's automatic base64 encoding); U128 and
// nested tables need an explicit conversion.
func bridgeValue(v any, isTable bool) (any, error) {
	if v == nil {
		return nil, nil
	}
	if isTable {
		nested, ok := v.(*utf.Table)
		if !ok {
			return nil, errs.New(errs.UnsupportedValueType, "expected nested table value, got %T", v)
		}
		return ToTree(nested)
	}
	if u, ok := v.(utf.U128); ok {
		b := make([]byte, len(u))
		copy(b, u[:])
		return b, nil
	}
	return v, nil
}

// FromTree rebuilds an in-memory utf.Table from a canonical JSON tree,
// ready to hand to utf.Build.
func FromTree(tree *Table) (*utf.Table, error) {
	columns := make([]utf.Column, 0, len(tree.Columns))
	for _, col := range tree.Columns {
		storage := utf.Storage(col.DataFlag)
		valType, err := resolveValueType(col.ValueType)
		if err != nil {
			return nil, err
		}

		out := utf.Column{Name: col.ColumnName, Storage: storage, Type: valType}
		switch storage {
		case utf.StorageConstant:
			v, err := resolveValue(col.ValueType, col.Constant)
			if err != nil {
				return nil, err
			}
			out.Constant = v
		case utf.StoragePerRow:
			rows := make([]any, len(col.Rows))
			for i, rv := range col.Rows {
				v, err := resolveValue(col.ValueType, rv)
				if err != nil {
					return nil, err
				}
				rows[i] = v
			}
			out.Rows = rows
		}
		columns = append(columns, out)
	}

	return &utf.Table{
		Name:      tree.TableName,
		Version:   tree.Version,
		RowsCount: tree.RowsCount,
		Columns:   columns,
	}, nil
}

func resolveValueType(tag string) (utf.ValueType, error) {
	if tag == vldataUTFTableTag {
		return utf.TypeBlob, nil
	}
	t, ok := utf.TypeTagFromName(tag)
	if !ok {
		return 0, errs.New(errs.UnsupportedValueType, "unrecognized valueType tag %q", tag)
	}
	return t, nil
}

// resolveValue converts a cell's JSON-decoded form back to the Go type
// utf.Build expects. v may be a json.RawMessage (when tree came from
// json.Unmarshal) or an already-typed Go value (when tree was built by
// hand or by a prior ToTree call).
func resolveValue(tag string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return decodeRaw(tag, raw)
	}
	switch tag {
	case vldataUTFTableTag:
		nested, ok := v.(*Table)
		if !ok {
			return nil, errs.New(errs.UnsupportedValueType, "expected nested table value, got %T", v)
		}
		return FromTree(nested)
	case "COLUMN_TYPE_VLDATA":
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case "COLUMN_TYPE_UINT128":
		if b, ok := v.([]byte); ok {
			var u utf.U128
			copy(u[:], b)
			return u, nil
		}
	}
	return v, nil
}

func decodeRaw(tag string, raw json.RawMessage) (any, error) {
	if tag == vldataUTFTableTag {
		var nested Table
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, errs.Wrap(errs.UnsupportedValueType, err, "decode nested table value")
		}
		return FromTree(&nested)
	}

	valType, err := resolveValueType(tag)
	if err != nil {
		return nil, err
	}

	switch valType {
	case utf.TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode string value")
		}
		return s, nil
	case utf.TypeBlob, utf.TypeU128:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode base64 value")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode base64 value")
		}
		if valType == utf.TypeU128 {
			var u utf.U128
			copy(u[:], b)
			return u, nil
		}
		return b, nil
	case utf.TypeF32:
		f, err := decodeNumber(raw)
		if err != nil {
			return nil, err
		}
		v, err := f.Float64()
		if err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode float32 value")
		}
		return float32(v), nil
	case utf.TypeF64:
		f, err := decodeNumber(raw)
		if err != nil {
			return nil, err
		}
		v, err := f.Float64()
		if err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode float64 value")
		}
		return v, nil
	case utf.TypeU8, utf.TypeU16, utf.TypeU32, utf.TypeU64:
		f, err := decodeNumber(raw)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(f.String(), 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode unsigned integer value")
		}
		return castUnsigned(valType, v), nil
	case utf.TypeS8, utf.TypeS16, utf.TypeS32, utf.TypeS64:
		f, err := decodeNumber(raw)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(f.String(), 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "decode signed integer value")
		}
		return castSigned(valType, v), nil
	default:
		return nil, errs.New(errs.UnsupportedValueType, "unsupported value type tag %q", tag)
	}
}

func decodeNumber(raw json.RawMessage) (json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", errs.Wrap(errs.EncodingError, err, "decode numeric value")
	}
	return n, nil
}

func castUnsigned(t utf.ValueType, v uint64) any {
	switch t {
	case utf.TypeU8:
		return uint8(v)
	case utf.TypeU16:
		return uint16(v)
	case utf.TypeU32:
		return uint32(v)
	default:
		return v
	}
}

func castSigned(t utf.ValueType, v int64) any {
	switch t {
	case utf.TypeS8:
		return int8(v)
	case utf.TypeS16:
		return int16(v)
	case utf.TypeS32:
		return int32(v)
	default:
		return v
	}
}
