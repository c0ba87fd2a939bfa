package utf

import "github.com/hatsuho/criutf/logging"

// ParseOptions configures Parse and its recursive nested-table sniffing.
type ParseOptions struct {
	Encoding  string
	MaxDepth  int
	Logger    *logging.Logger
	SniffBlob bool
}

// ParseOption follows the functional-options pattern used throughout this
// module's configuration surfaces.
type ParseOption func(*ParseOptions)

func defaultParseOptions() *ParseOptions {
	return &ParseOptions{
		Encoding:  "utf8",
		MaxDepth:  5,
		Logger:    logging.Default(),
		SniffBlob: true,
	}
}

// WithEncoding sets the text encoding used to decode String columns and
// table/column names. UTF-8 is the default; pass "shift_jis" for tables
// produced by CRI's own (Japanese-origin) tooling.
func WithEncoding(encoding string) ParseOption {
	return func(o *ParseOptions) { o.Encoding = encoding }
}

// WithMaxDepth bounds @UTF-in-blob recursion. Five levels deep is the
// default observed across real ACB/AWB containers.
func WithMaxDepth(depth int) ParseOption {
	return func(o *ParseOptions) { o.MaxDepth = depth }
}

// WithParseLogger attaches a logr-backed Logger for parse tracing.
func WithParseLogger(log *logging.Logger) ParseOption {
	return func(o *ParseOptions) { o.Logger = log }
}

// WithoutBlobSniffing disables magic-sniffing Blob columns for nested @UTF
// tables, leaving every Blob as a raw []byte. Useful when a caller wants the
// exact bytes of a blob it knows is not itself a table.
func WithoutBlobSniffing() ParseOption {
	return func(o *ParseOptions) { o.SniffBlob = false }
}

// BuildOptions configures Build.
type BuildOptions struct {
	Encoding  string
	Logger    *logging.Logger
	Alignment int
}

type BuildOption func(*BuildOptions)

func defaultBuildOptions() *BuildOptions {
	return &BuildOptions{
		Encoding:  "utf8",
		Logger:    logging.Default(),
		Alignment: 0,
	}
}

// WithBuildEncoding sets the text encoding used to encode String columns and
// table/column names. UTF-8 is the default; pass "shift_jis" to match
// tables produced by CRI's own tooling.
func WithBuildEncoding(encoding string) BuildOption {
	return func(o *BuildOptions) { o.Encoding = encoding }
}

// WithBuildLogger attaches a logr-backed Logger for build tracing.
func WithBuildLogger(log *logging.Logger) BuildOption {
	return func(o *BuildOptions) { o.Logger = log }
}

// WithAlignment pads blob pool entries (and, if needed, the string pool
// that precedes the blob region) up to a multiple of alignment bytes.
// Disabled by default; ACB containers commonly use 0x20.
func WithAlignment(alignment int) BuildOption {
	return func(o *BuildOptions) { o.Alignment = alignment }
}
