package utf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hatsuho/criutf/cursor"
)

// minimumTable is the smallest legal @UTF table: zero columns, zero rows.
func minimumTable() *Table {
	return &Table{Name: "MinimumTable", Version: 1, RowsCount: 0}
}

func TestBuildParseRoundTripMinimumTable(t *testing.T) {
	built, err := Build(minimumTable())
	require.NoError(t, err)

	parsed, err := Parse(built)
	require.NoError(t, err)
	require.Equal(t, "MinimumTable", parsed.Name)
	require.Equal(t, uint16(1), parsed.Version)
	require.Equal(t, uint32(0), parsed.RowsCount)
	require.Empty(t, parsed.Columns)
	require.True(t, parsed.Parsed())
}

func TestBuildParseRoundTripConstantColumn(t *testing.T) {
	table := &Table{
		Name:      "Settings",
		Version:   7,
		RowsCount: 0,
		Columns: []Column{
			{Name: "MagicNumber", Storage: StorageConstant, Type: TypeU32, Constant: uint32(0xDEADBEEF)},
		},
	}

	built, err := Build(table)
	require.NoError(t, err)

	parsed, err := Parse(built)
	require.NoError(t, err)
	require.Len(t, parsed.Columns, 1)
	require.Equal(t, "MagicNumber", parsed.Columns[0].Name)
	require.Equal(t, StorageConstant, parsed.Columns[0].Storage)
	require.Equal(t, uint32(0xDEADBEEF), parsed.Columns[0].Constant)
}

func TestBuildDedupesConstantStringEqualToTableName(t *testing.T) {
	table := &Table{
		Name:      "Shared",
		Version:   1,
		RowsCount: 0,
		Columns: []Column{
			{Name: "Ref", Storage: StorageConstant, Type: TypeString, Constant: "Shared"},
		},
	}

	built, err := Build(table)
	require.NoError(t, err)

	// Strings pool should hold exactly "Shared\x00Ref\x00" (11 bytes): the
	// table name interned once and reused by the constant column's value,
	// not duplicated.
	h, err := readHeader(cursor.NewMemory(built))
	require.NoError(t, err)
	require.Equal(t, int64(len("Shared\x00Ref\x00")), h.stringsSize)

	parsed, err := Parse(built)
	require.NoError(t, err)
	require.Equal(t, "Shared", parsed.Name)
	require.Equal(t, "Shared", parsed.Columns[0].Constant)
}

func TestBuildParseRoundTripPerRowStringColumnDedupesPool(t *testing.T) {
	table := &Table{
		Name:      "CueNames",
		Version:   1,
		RowsCount: 3,
		Columns: []Column{
			{
				Name:    "Name",
				Storage: StoragePerRow,
				Type:    TypeString,
				Rows:    []any{"bgm01", "bgm02", "bgm01"},
			},
		},
	}

	built, err := Build(table)
	require.NoError(t, err)

	// Strings pool holds "bgm01" once: "CueNames\x00Name\x00bgm01\x00bgm02\x00".
	h, err := readHeader(cursor.NewMemory(built))
	require.NoError(t, err)
	require.Equal(t, int64(len("CueNames\x00Name\x00bgm01\x00bgm02\x00")), h.stringsSize)

	parsed, err := Parse(built)
	require.NoError(t, err)
	col := parsed.Columns[0]
	require.Equal(t, []any{"bgm01", "bgm02", "bgm01"}, col.Rows)

	v, err := parsed.Value("Name", 2)
	require.NoError(t, err)
	require.Equal(t, "bgm01", v)
}

func TestBuildParseRoundTripNestedBlobTable(t *testing.T) {
	inner := &Table{
		Name:      "Inner",
		Version:   1,
		RowsCount: 1,
		Columns: []Column{
			{Name: "Value", Storage: StoragePerRow, Type: TypeU16, Rows: []any{uint16(42)}},
		},
	}
	outer := &Table{
		Name:      "Outer",
		Version:   1,
		RowsCount: 0,
		Columns: []Column{
			{Name: "Nested", Storage: StorageConstant, Type: TypeBlob, Constant: inner},
		},
	}

	built, err := Build(outer)
	require.NoError(t, err)

	parsed, err := Parse(built)
	require.NoError(t, err)
	nested, ok := parsed.Columns[0].Constant.(*Table)
	require.True(t, ok, "expected nested blob to sniff as a *Table")
	require.Equal(t, "Inner", nested.Name)
	require.Equal(t, uint16(42), nested.Columns[0].Rows[0])
}

func TestBuildParseRoundTripRawBlobNotSniffedWithoutMagic(t *testing.T) {
	table := &Table{
		Name:      "Payload",
		Version:   1,
		RowsCount: 0,
		Columns: []Column{
			{Name: "Data", Storage: StorageConstant, Type: TypeBlob, Constant: []byte{0x01, 0x02, 0x03}},
		},
	}

	built, err := Build(table)
	require.NoError(t, err)

	parsed, err := Parse(built)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, parsed.Columns[0].Constant)
}

func TestBuildBlobAlignmentPadsToBoundary(t *testing.T) {
	raw := make([]byte, 17)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	table := &Table{
		Name:      "Aligned",
		Version:   1,
		RowsCount: 0,
		Columns: []Column{
			{Name: "Blob", Storage: StorageConstant, Type: TypeBlob, Constant: raw},
		},
	}

	built, err := Build(table, WithAlignment(0x20))
	require.NoError(t, err)

	parsed, err := Parse(built)
	require.NoError(t, err)
	got := parsed.Columns[0].Constant.([]byte)
	require.Len(t, got, 0x20, "the stored blob size includes the alignment padding")
}

func TestBuildRejectsMismatchedRowCount(t *testing.T) {
	table := &Table{
		Name:      "Bad",
		Version:   1,
		RowsCount: 2,
		Columns: []Column{
			{Name: "A", Storage: StoragePerRow, Type: TypeU8, Rows: []any{uint8(1)}},
		},
	}
	_, err := Build(table)
	require.Error(t, err)
}

func TestBuildRejectsU128(t *testing.T) {
	table := &Table{
		Name:      "Bad",
		Version:   1,
		RowsCount: 0,
		Columns: []Column{
			{Name: "Guid", Storage: StorageConstant, Type: TypeU128, Constant: U128{}},
		},
	}
	_, err := Build(table)
	require.Error(t, err)
}

func TestParseReadsU128AsOpaqueBytes(t *testing.T) {
	// U128 can be parsed even though Build rejects it, so this one
	// column/zero row table is hand-assembled rather than round-tripped.
	// Strings pool: "T\x00G\x00" (table name "T", column name "G").
	// Schema: info=0x3C (Constant<<4 | type 0x0C) + name_offset=2 + 16 zero
	// bytes of constant U128 data.
	data := []byte{}
	data = append(data, "@UTF"...)
	data = append(data, u32be(49)...) // table_size - 8 = 57 - 8
	data = append(data, u16be(1)...)  // version
	data = append(data, u16be(45)...) // rows_offset - 8 = 53 - 8
	data = append(data, u32be(45)...) // strings_offset - 8 = 53 - 8
	data = append(data, u32be(49)...) // data_offset - 8 = 57 - 8
	data = append(data, u32be(0)...)  // name_offset_rtst (table name is first string)
	data = append(data, u16be(1)...)  // columns_count
	data = append(data, u16be(0)...)  // row_width
	data = append(data, u32be(0)...)  // rows_count

	data = append(data, 0x3C)                // info: Constant, TypeU128
	data = append(data, u32be(2)...)         // column name offset ("G" at pool offset 2)
	data = append(data, make([]byte, 16)...) // constant U128 value

	data = append(data, 'T', 0x00, 'G', 0x00) // strings pool

	require.Len(t, data, 57)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "T", parsed.Name)
	require.Len(t, parsed.Columns, 1)
	require.Equal(t, TypeU128, parsed.Columns[0].Type)
	require.Equal(t, U128{}, parsed.Columns[0].Constant)
}
