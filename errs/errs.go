// Package errs defines the error taxonomy shared by the utf and afs2 codecs.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a codec error, independent of the message
// text wrapped around it. Callers should match on Kind via errors.As, not by
// inspecting Error() strings.
type Kind int

const (
	// BadMagic means the byte source does not start with the expected magic
	// for the format being parsed.
	BadMagic Kind = iota
	// EncryptedTable means an @UTF header was recognized as the obfuscated
	// variant (magic 1F 9E F3 F5), which this module does not decrypt.
	EncryptedTable
	// HeaderMalformed means a header field or derived region size violates
	// one of the format's structural invariants.
	HeaderMalformed
	// UnsupportedStorage means a column's storage (data) flag is not one of
	// the three recognized values.
	UnsupportedStorage
	// UnsupportedValueType means a column's type tag is not recognized, or
	// is recognized but not supported for the attempted operation (e.g.
	// building a U128 column).
	UnsupportedValueType
	// UnsupportedWidth means an AFS2 id_width/offset_width is not 2 or 4.
	UnsupportedWidth
	// OffsetOutOfBounds means a pool or payload read would fall outside the
	// bytes available to it.
	OffsetOutOfBounds
	// RowWidthMismatch means per-row column data did not serialize to a
	// consistent width across all rows.
	RowWidthMismatch
	// ArchiveTooLarge means a built AFS2 archive would not fit in the
	// configured offset width, or breaks another build bound: a zero
	// alignment, or more entries than the identifier width (or 2^32) allows.
	ArchiveTooLarge
	// RecursionDepthExceeded means nested @UTF blob detection hit its depth
	// limit.
	RecursionDepthExceeded
	// DuplicateColumnName means two columns share a name other than the
	// tolerated sentinel "Non".
	DuplicateColumnName
	// ColumnNotFound means a lookup referenced a column name absent from the
	// table.
	ColumnNotFound
	// RowIndexOutOfRange means a lookup referenced a row index outside
	// [0, rows_count).
	RowIndexOutOfRange
	// EncodingError means a string could not be encoded or decoded with the
	// table's configured encoding.
	EncodingError
)

func (k Kind) String() string {
	switch k {
	case BadMagic:
		return "BadMagic"
	case EncryptedTable:
		return "EncryptedTable"
	case HeaderMalformed:
		return "HeaderMalformed"
	case UnsupportedStorage:
		return "UnsupportedStorage"
	case UnsupportedValueType:
		return "UnsupportedValueType"
	case UnsupportedWidth:
		return "UnsupportedWidth"
	case OffsetOutOfBounds:
		return "OffsetOutOfBounds"
	case RowWidthMismatch:
		return "RowWidthMismatch"
	case ArchiveTooLarge:
		return "ArchiveTooLarge"
	case RecursionDepthExceeded:
		return "RecursionDepthExceeded"
	case DuplicateColumnName:
		return "DuplicateColumnName"
	case ColumnNotFound:
		return "ColumnNotFound"
	case RowIndexOutOfRange:
		return "RowIndexOutOfRange"
	case EncodingError:
		return "EncodingError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by this module's codecs. It
// carries a Kind so callers can branch on error category with errors.As,
// and wraps an optional cause for context.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, letting
// errors.Is(err, errs.New(errs.BadMagic, "")) work as a Kind-only matcher.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error carrying cause as its wrapped error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Of reports the Kind of err if it is (or wraps) an *Error, and whether one
// was found.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
