package afs2

import "github.com/hatsuho/criutf/logging"

// ParseOptions configures Parse.
type ParseOptions struct {
	Logger *logging.Logger
}

type ParseOption func(*ParseOptions)

func defaultParseOptions() *ParseOptions {
	return &ParseOptions{Logger: logging.Default()}
}

// WithParseLogger attaches a logr-backed Logger for parse tracing.
func WithParseLogger(log *logging.Logger) ParseOption {
	return func(o *ParseOptions) { o.Logger = log }
}

// OffsetMode selects which of the two offset vectors a build writes into
// the archive's offset table.
type OffsetMode int

const (
	// OffsetModeLastEnd writes, for each table slot, the byte offset just
	// past the previous entry (or the header, for slot 0) — unaligned, so a
	// reader must round it up before using it as a read position. Most
	// archives observed in the wild use this mode.
	OffsetModeLastEnd OffsetMode = iota
	// OffsetModeStart writes the aligned start offset of the entry that
	// begins at that slot directly.
	OffsetModeStart
)

// BuildOptions configures Build.
type BuildOptions struct {
	Version     uint8
	OffsetSize  uint8
	AudioIDSize uint8
	Alignment   uint16
	Subkey      uint16
	OffsetMode  OffsetMode
	Logger      *logging.Logger
}

type BuildOption func(*BuildOptions)

func defaultBuildOptions() *BuildOptions {
	return &BuildOptions{
		Version:     2,
		OffsetSize:  4,
		AudioIDSize: 4,
		Alignment:   0x20,
		Subkey:      0,
		OffsetMode:  OffsetModeLastEnd,
		Logger:      logging.Default(),
	}
}

func WithVersion(version uint8) BuildOption {
	return func(o *BuildOptions) { o.Version = version }
}

// WithOffsetSize sets the byte width (2 or 4) of each offset table entry.
func WithOffsetSize(size uint8) BuildOption {
	return func(o *BuildOptions) { o.OffsetSize = size }
}

// WithAudioIDSize sets the byte width (2 or 4) of each identifier table
// entry.
func WithAudioIDSize(size uint8) BuildOption {
	return func(o *BuildOptions) { o.AudioIDSize = size }
}

// WithArchiveAlignment sets the byte boundary each subfile is padded to.
// Real-world archives commonly use 0x20. Must be nonzero; Build rejects 0
// with errs.ArchiveTooLarge rather than silently producing a contiguous,
// unaligned archive.
func WithArchiveAlignment(alignment uint16) BuildOption {
	return func(o *BuildOptions) { o.Alignment = alignment }
}

// WithSubkey sets the header's EHCA-decryption subkey field. This module
// never decrypts EHCA payloads; the field is carried through unexamined.
func WithSubkey(subkey uint16) BuildOption {
	return func(o *BuildOptions) { o.Subkey = subkey }
}

// WithOffsetMode selects which offset vector is written to the offset
// table.
func WithOffsetMode(mode OffsetMode) BuildOption {
	return func(o *BuildOptions) { o.OffsetMode = mode }
}

// WithBuildLogger attaches a logr-backed Logger for build tracing.
func WithBuildLogger(log *logging.Logger) BuildOption {
	return func(o *BuildOptions) { o.Logger = log }
}
