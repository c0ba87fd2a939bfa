package utf

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	"github.com/hatsuho/criutf/errs"
)

// resolveEncoding maps the table's configured encoding name to an
// x/text Encoding. UTF-8 is the default (see options.go); "shift_jis" is
// accepted for tables produced by CRI's own (Japanese-origin) tooling.
func resolveEncoding(name string) (encoding.Encoding, bool) {
	switch strings.ToLower(name) {
	case "shift_jis", "shiftjis", "sjis":
		return japanese.ShiftJIS, true
	case "utf8", "utf-8", "":
		return nil, true
	default:
		return nil, false
	}
}

func decodeString(raw []byte, enc string) (string, error) {
	e, ok := resolveEncoding(enc)
	if !ok {
		return "", errs.New(errs.EncodingError, "unsupported encoding %q", enc)
	}
	if e == nil {
		return string(raw), nil
	}
	out, err := e.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errs.Wrap(errs.EncodingError, err, "decode string with %q", enc)
	}
	return string(out), nil
}

func encodeString(s string, enc string) ([]byte, error) {
	e, ok := resolveEncoding(enc)
	if !ok {
		return nil, errs.New(errs.EncodingError, "unsupported encoding %q", enc)
	}
	if e == nil {
		return []byte(s), nil
	}
	out, err := e.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errs.Wrap(errs.EncodingError, err, "encode string with %q", enc)
	}
	return out, nil
}
