// Package utf implements the @UTF table codec: CRI's nested, self-describing
// tabular metadata format used throughout ACB/AWB/USM containers.
package utf

import "github.com/hatsuho/criutf/errs"

// Storage is a column's data-flag (the high nibble of its schema info byte).
type Storage uint8

const (
	// StorageNameOnly columns carry a name but no value; every row reads as
	// logical null.
	StorageNameOnly Storage = 0x1
	// StorageConstant columns carry a single value shared by every row,
	// stored inline in the schema region.
	StorageConstant Storage = 0x3
	// StoragePerRow columns carry one value per row, stored in the rows
	// region.
	StoragePerRow Storage = 0x5
)

func (s Storage) String() string {
	switch s {
	case StorageNameOnly:
		return "NameOnly"
	case StorageConstant:
		return "Constant"
	case StoragePerRow:
		return "PerRow"
	default:
		return "Unknown"
	}
}

// ValueType is a column's type tag (the low nibble of its schema info byte).
type ValueType uint8

const (
	TypeU8     ValueType = 0x00
	TypeS8     ValueType = 0x01
	TypeU16    ValueType = 0x02
	TypeS16    ValueType = 0x03
	TypeU32    ValueType = 0x04
	TypeS32    ValueType = 0x05
	TypeU64    ValueType = 0x06
	TypeS64    ValueType = 0x07
	TypeF32    ValueType = 0x08
	TypeF64    ValueType = 0x09
	TypeString ValueType = 0x0A
	TypeBlob   ValueType = 0x0B
	TypeU128   ValueType = 0x0C
)

// typeTagNames mirrors the valueType strings used by the JSON bridge
// representation, kept here (rather than only in jsonbridge) since error
// messages and the schema walk both want the on-disk tag's canonical name.
var typeTagNames = map[ValueType]string{
	TypeU8:     "COLUMN_TYPE_UINT8",
	TypeS8:     "COLUMN_TYPE_SINT8",
	TypeU16:    "COLUMN_TYPE_UINT16",
	TypeS16:    "COLUMN_TYPE_SINT16",
	TypeU32:    "COLUMN_TYPE_UINT32",
	TypeS32:    "COLUMN_TYPE_SINT32",
	TypeU64:    "COLUMN_TYPE_UINT64",
	TypeS64:    "COLUMN_TYPE_SINT64",
	TypeF32:    "COLUMN_TYPE_FLOAT",
	TypeF64:    "COLUMN_TYPE_DOUBLE",
	TypeString: "COLUMN_TYPE_STRING",
	TypeBlob:   "COLUMN_TYPE_VLDATA",
	TypeU128:   "COLUMN_TYPE_UINT128",
}

// nameToTypeTag is the inverse of typeTagNames, used by jsonbridge.FromTree.
var nameToTypeTag = func() map[string]ValueType {
	m := make(map[string]ValueType, len(typeTagNames))
	for tag, name := range typeTagNames {
		m[name] = tag
	}
	return m
}()

// TypeTagName returns the canonical JsonBridge string for a type tag.
func TypeTagName(t ValueType) (string, bool) {
	name, ok := typeTagNames[t]
	return name, ok
}

// TypeTagFromName is the inverse of TypeTagName.
func TypeTagFromName(name string) (ValueType, bool) {
	t, ok := nameToTypeTag[name]
	return t, ok
}

func (t ValueType) String() string {
	if name, ok := typeTagNames[t]; ok {
		return name
	}
	return "COLUMN_TYPE_UNDEFINED"
}

// width returns the encoded width, in bytes, of one value of type t as it
// sits in the schema region (for a Constant column) or in a row slot (for a
// PerRow column). String and Blob store fixed-width pool references here,
// not their variable-length payload.
func (t ValueType) width() (int, error) {
	switch t {
	case TypeU8, TypeS8:
		return 1, nil
	case TypeU16, TypeS16:
		return 2, nil
	case TypeU32, TypeS32, TypeF32:
		return 4, nil
	case TypeU64, TypeS64, TypeF64:
		return 8, nil
	case TypeString:
		return 4, nil // strings-pool offset
	case TypeBlob:
		return 8, nil // blobs-pool (offset, size) pair
	case TypeU128:
		return 16, nil
	default:
		return 0, errs.New(errs.UnsupportedValueType, "unsupported value type tag %#x", uint8(t))
	}
}

// U128 is an opaque 16-byte value for the COLUMN_TYPE_UINT128 tag, observed
// in the wild for GUID-like columns but never in a form this package has
// been asked to build; Parse accepts it, Build rejects it.
type U128 [16]byte

// Column is a single schema entry plus its constant or per-row data.
type Column struct {
	Name    string
	Storage Storage
	Type    ValueType

	// Constant holds the column's single shared value when Storage ==
	// StorageConstant. Its concrete type depends on Type: the unsigned/
	// signed/float Go types for scalars, string for TypeString, []byte or
	// *Table for TypeBlob (the latter when sniffed as a nested @UTF table),
	// and U128 for TypeU128.
	Constant any

	// Rows holds one value per row when Storage == StoragePerRow, with the
	// same per-type representation as Constant. len(Rows) == the owning
	// Table's RowsCount.
	Rows []any
}

// Table is a parsed or in-memory-built @UTF table.
type Table struct {
	Name      string
	Version   uint16
	RowsCount uint32
	Columns   []Column

	encoding  string
	nameIndex map[string]int
	parsed    bool
}

// Parsed reports whether this Table was produced by Parse/ParseFile, as
// opposed to being constructed in memory for Build.
func (t *Table) Parsed() bool {
	return t.parsed
}

// RowWidth returns the sum of the encoded widths of all per-row columns,
// recomputed rather than cached so it always reflects the current Columns
// slice.
func (t *Table) RowWidth() (int, error) {
	width := 0
	for _, col := range t.Columns {
		if col.Storage != StoragePerRow {
			continue
		}
		w, err := col.Type.width()
		if err != nil {
			return 0, err
		}
		width += w
	}
	return width, nil
}

// ColumnsCount returns len(Columns).
func (t *Table) ColumnsCount() int {
	return len(t.Columns)
}

// ColumnNames builds (and caches) the name→index map used to detect
// duplicate column names, tolerating the sentinel name "Non" (observed in
// the wild as a placeholder for an otherwise-unused column slot). It fails
// with errs.DuplicateColumnName on any other repeated name.
func (t *Table) ColumnNames() (map[string]int, error) {
	if t.nameIndex != nil {
		return t.nameIndex, nil
	}
	index := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		if _, exists := index[col.Name]; exists {
			if col.Name == "Non" {
				continue
			}
			return nil, errs.New(errs.DuplicateColumnName, "duplicate column name %q", col.Name)
		}
		index[col.Name] = i
	}
	t.nameIndex = index
	return index, nil
}

// Value looks up a single cell by column name and row index: nil for a
// NameOnly column, the shared value for a Constant column (row is ignored),
// or rows[row] for a PerRow column.
func (t *Table) Value(columnName string, row int) (any, error) {
	index, err := t.ColumnNames()
	if err != nil {
		return nil, err
	}
	i, ok := index[columnName]
	if !ok {
		return nil, errs.New(errs.ColumnNotFound, "column %q not found", columnName)
	}
	col := t.Columns[i]
	switch col.Storage {
	case StorageNameOnly:
		return nil, nil
	case StorageConstant:
		return col.Constant, nil
	case StoragePerRow:
		if row < 0 || row >= int(t.RowsCount) {
			return nil, errs.New(errs.RowIndexOutOfRange, "row index %d out of range [0,%d)", row, t.RowsCount)
		}
		return col.Rows[row], nil
	default:
		return nil, errs.New(errs.UnsupportedStorage, "unsupported storage %v", col.Storage)
	}
}
