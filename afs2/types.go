// Package afs2 implements the AFS2 archive codec: CRI's little-endian
// container for packing numbered audio subfiles (most commonly HCA streams)
// into a single AWB file, with an identifier table and an offset table
// aligned to a configurable boundary.
package afs2

import "github.com/hatsuho/criutf/errs"

// PayloadKind identifies an entry's payload by magic-sniffing its first
// bytes, the way vgmstream-derived tooling distinguishes plain HCA from the
// obfuscated EHCA variant without needing a sidecar table.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadHCA
	PayloadEHCA
)

var (
	hcaMagic  = []byte("HCA\x00")
	ehcaMagic = []byte{0xC8, 0xC3, 0xC1, 0x00}
)

// Extension returns the file suffix tooling conventionally gives an entry
// of this kind. Both HCA and its obfuscated EHCA variant use ".hca"; this
// module doesn't decrypt the obfuscated form, it only recognizes it.
func (k PayloadKind) Extension() string {
	switch k {
	case PayloadHCA, PayloadEHCA:
		return "hca"
	default:
		return "bin"
	}
}

func (k PayloadKind) String() string {
	switch k {
	case PayloadHCA:
		return "HCA"
	case PayloadEHCA:
		return "EHCA"
	default:
		return "Unknown"
	}
}

// Entry is one packed subfile: its numeric identifier and raw payload.
type Entry struct {
	AudioID uint32
	Data    []byte
}

// SniffKind magic-sniffs Data's first bytes to classify its payload.
func (e Entry) SniffKind() PayloadKind {
	switch {
	case hasPrefix(e.Data, hcaMagic):
		return PayloadHCA
	case hasPrefix(e.Data, ehcaMagic):
		return PayloadEHCA
	default:
		return PayloadUnknown
	}
}

func hasPrefix(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}

// Archive is a parsed or in-memory-built AFS2 container.
type Archive struct {
	Version     uint8
	OffsetSize  uint8 // 2 or 4
	AudioIDSize uint8 // 2 or 4
	Alignment   uint16
	Subkey      uint16
	Entries     []Entry
}

// widthOf validates a table entry width is one of the two supported sizes.
func widthOf(size uint8) (int, error) {
	switch size {
	case 2:
		return 2, nil
	case 4:
		return 4, nil
	default:
		return 0, errs.New(errs.UnsupportedWidth, "unsupported table entry width %d", size)
	}
}

// roundUp rounds offset up to the next multiple of alignment, or returns it
// unchanged if it already is one (including when alignment is 0, treated as
// "no alignment").
func roundUp(offset int64, alignment int64) int64 {
	if alignment <= 0 {
		return offset
	}
	remainder := offset % alignment
	if remainder == 0 {
		return offset
	}
	return offset - remainder + alignment
}
