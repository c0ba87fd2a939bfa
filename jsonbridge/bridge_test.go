package jsonbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hatsuho/criutf/utf"
)

func TestToTreeMinimumTable(t *testing.T) {
	table := &utf.Table{Name: "Minimum", Version: 1, RowsCount: 0}
	tree, err := ToTree(table)
	require.NoError(t, err)
	require.Equal(t, "Minimum", tree.TableName)
	require.Equal(t, uint16(0), tree.ColumnsCount)

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	require.Contains(t, string(data), `"tableName":"Minimum"`)
}

func TestToTreeConstantScalarColumn(t *testing.T) {
	table := &utf.Table{
		Name:    "Scores",
		Version: 1,
		Columns: []utf.Column{
			{Name: "Max", Storage: utf.StorageConstant, Type: utf.TypeU32, Constant: uint32(100)},
		},
	}
	tree, err := ToTree(table)
	require.NoError(t, err)
	require.Equal(t, "COLUMN_TYPE_UINT32", tree.Columns[0].ValueType)
	require.Equal(t, uint8(utf.StorageConstant), tree.Columns[0].DataFlag)
	require.Equal(t, uint32(100), tree.Columns[0].Constant)
}

func TestRoundTripThroughJSONPerRowStringColumn(t *testing.T) {
	table := &utf.Table{
		Name:      "Names",
		Version:   1,
		RowsCount: 2,
		Columns: []utf.Column{
			{Name: "Label", Storage: utf.StoragePerRow, Type: utf.TypeString, Rows: []any{"alpha", "beta"}},
		},
	}

	tree, err := ToTree(table)
	require.NoError(t, err)

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))

	rebuilt, err := FromTree(&decoded)
	require.NoError(t, err)
	require.Equal(t, "Names", rebuilt.Name)
	require.Equal(t, []any{"alpha", "beta"}, rebuilt.Columns[0].Rows)
}

func TestRoundTripThroughJSONOpaqueBlobColumn(t *testing.T) {
	table := &utf.Table{
		Name:    "Blobs",
		Version: 1,
		Columns: []utf.Column{
			{Name: "Payload", Storage: utf.StorageConstant, Type: utf.TypeBlob, Constant: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		},
	}

	tree, err := ToTree(table)
	require.NoError(t, err)
	require.Equal(t, "COLUMN_TYPE_VLDATA", tree.Columns[0].ValueType)

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	require.Contains(t, string(data), `"columnDataConstant":"`)

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))

	rebuilt, err := FromTree(&decoded)
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, rebuilt.Columns[0].Constant)
}

func TestRoundTripThroughJSONNestedTableColumn(t *testing.T) {
	inner := &utf.Table{Name: "Inner", Version: 1, Columns: []utf.Column{
		{Name: "X", Storage: utf.StorageConstant, Type: utf.TypeU8, Constant: uint8(7)},
	}}
	outer := &utf.Table{
		Name:    "Outer",
		Version: 1,
		Columns: []utf.Column{
			{Name: "Nested", Storage: utf.StorageConstant, Type: utf.TypeBlob, Constant: inner},
		},
	}

	tree, err := ToTree(outer)
	require.NoError(t, err)
	require.Equal(t, vldataUTFTableTag, tree.Columns[0].ValueType)

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))

	rebuilt, err := FromTree(&decoded)
	require.NoError(t, err)
	nested, ok := rebuilt.Columns[0].Constant.(*utf.Table)
	require.True(t, ok)
	require.Equal(t, "Inner", nested.Name)
	require.Equal(t, uint8(7), nested.Columns[0].Constant)
}

func TestFromTreeRejectsUnrecognizedValueType(t *testing.T) {
	tree := &Table{
		Columns: []Column{{DataFlag: uint8(utf.StorageConstant), ValueType: "COLUMN_TYPE_NONSENSE", ColumnName: "X"}},
	}
	_, err := FromTree(tree)
	require.Error(t, err)
}

func TestToTreePreservesU128AsBase64(t *testing.T) {
	var guid utf.U128
	copy(guid[:], []byte("0123456789abcdef"))
	table := &utf.Table{
		Name:    "Guids",
		Version: 1,
		Columns: []utf.Column{
			{Name: "ID", Storage: utf.StorageConstant, Type: utf.TypeU128, Constant: guid},
		},
	}

	tree, err := ToTree(table)
	require.NoError(t, err)

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))

	rebuilt, err := FromTree(&decoded)
	require.NoError(t, err)
	require.Equal(t, guid, rebuilt.Columns[0].Constant)
}
