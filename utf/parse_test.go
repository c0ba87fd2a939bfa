package utf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hatsuho/criutf/errs"
)

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("NOPE0000000000000000000000000000"))
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.BadMagic, kind)
}

func TestParseRejectsEncryptedHeader(t *testing.T) {
	data := append([]byte{0x1f, 0x9e, 0xf3, 0xf5}, make([]byte, 28)...)
	_, err := Parse(data)
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.EncryptedTable, kind)
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	_, err := Parse([]byte("@UTF"))
	require.Error(t, err)
}

func TestColumnNamesToleratesNonSentinel(t *testing.T) {
	table := &Table{
		Name:      "T",
		RowsCount: 0,
		Columns: []Column{
			{Name: "Non", Storage: StorageNameOnly, Type: TypeU8},
			{Name: "Non", Storage: StorageNameOnly, Type: TypeU8},
			{Name: "Real", Storage: StorageNameOnly, Type: TypeU8},
		},
	}
	index, err := table.ColumnNames()
	require.NoError(t, err)
	require.Equal(t, 2, index["Real"])
}

func TestColumnNamesRejectsOtherDuplicates(t *testing.T) {
	table := &Table{
		Name:      "T",
		RowsCount: 0,
		Columns: []Column{
			{Name: "Dup", Storage: StorageNameOnly, Type: TypeU8},
			{Name: "Dup", Storage: StorageNameOnly, Type: TypeU8},
		},
	}
	_, err := table.ColumnNames()
	require.Error(t, err)
}

func TestValueOnNameOnlyColumnIsNil(t *testing.T) {
	table := &Table{
		Name:      "T",
		RowsCount: 1,
		Columns: []Column{
			{Name: "Empty", Storage: StorageNameOnly, Type: TypeU8},
		},
	}
	v, err := table.Value("Empty", 0)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestValueRowIndexOutOfRange(t *testing.T) {
	table := &Table{
		Name:      "T",
		RowsCount: 1,
		Columns: []Column{
			{Name: "Col", Storage: StoragePerRow, Type: TypeU8, Rows: []any{uint8(1)}},
		},
	}
	_, err := table.Value("Col", 5)
	require.Error(t, err)
}
