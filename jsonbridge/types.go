// Package jsonbridge maps a parsed or in-memory @UTF table to and from a
// canonical JSON tree: one stable text representation that round-trips
// through utf.Parse/utf.Build independent of the binary format's own
// versioning.
package jsonbridge

import "encoding/json"

// vldataUTFTableTag is the pseudo type tag used for a COLUMN_TYPE_VLDATA
// column whose blob payload was recognized as a nested @UTF table. It has
// no on-disk representation; it exists only to tell the JSON tree apart
// from an opaque blob without a second field.
const vldataUTFTableTag = "COLUMN_TYPE_VLDATA_UTFTABLE"

// Table is the canonical JSON shape of a @UTF table.
type Table struct {
	TableName    string   `json:"tableName"`
	Version      uint16   `json:"version"`
	RowsCount    uint32   `json:"rowsCount"`
	ColumnsCount uint16   `json:"columnsCount"`
	Columns      []Column `json:"columns"`
}

// Column is the canonical JSON shape of one @UTF column. DataFlag carries
// the raw storage byte (0x1/0x3/0x5); ValueType is the on-disk type tag's
// canonical string name, or the pseudo-tag COLUMN_TYPE_VLDATA_UTFTABLE for
// a blob recognized as a nested table. Constant is populated for a Constant
// column and Rows for a PerRow column, matching DataFlag; a NameOnly column
// has neither.
type Column struct {
	DataFlag   uint8  `json:"dataFlag"`
	ValueType  string `json:"valueType"`
	ColumnName string `json:"columnName"`
	Constant   any    `json:"columnDataConstant,omitempty"`
	Rows       []any  `json:"columnDataRows,omitempty"`
}

// rawColumn mirrors Column but keeps the value-bearing fields as raw JSON,
// deferring their interpretation until ValueType is known.
type rawColumn struct {
	DataFlag   uint8             `json:"dataFlag"`
	ValueType  string            `json:"valueType"`
	ColumnName string            `json:"columnName"`
	Constant   json.RawMessage   `json:"columnDataConstant,omitempty"`
	Rows       []json.RawMessage `json:"columnDataRows,omitempty"`
}

// UnmarshalJSON defers decoding columnDataConstant/columnDataRows into raw
// JSON messages, since their Go shape depends on ValueType, which isn't
// known until the rest of the column has been read. FromTree resolves
// them against a *utf.Table's expected types.
func (c *Column) UnmarshalJSON(data []byte) error {
	var raw rawColumn
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.DataFlag = raw.DataFlag
	c.ValueType = raw.ValueType
	c.ColumnName = raw.ColumnName
	if raw.Constant != nil {
		c.Constant = raw.Constant
	}
	if raw.Rows != nil {
		rows := make([]any, len(raw.Rows))
		for i, r := range raw.Rows {
			rows[i] = r
		}
		c.Rows = rows
	}
	return nil
}
