package cursor

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/hatsuho/criutf/errs"
)

// fileSource is a Source backed by a memory-mapped, read-only file. Large
// AFS2 archives and their nested @UTF blobs are read far more often than
// they're scanned linearly, so mapping avoids a read syscall per access.
type fileSource struct {
	f    *os.File
	data mmap.MMap
}

// NewFile memory-maps path read-only and returns a ByteCursor over it. The
// caller must Close the cursor to release the mapping and file handle.
func NewFile(path string) (*ByteCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.OffsetOutOfBounds, err, "open %s", path)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.OffsetOutOfBounds, err, "mmap %s", path)
	}
	return New(&fileSource{f: f, data: data}), nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (s *fileSource) Len() int64 {
	return int64(len(s.data))
}

func (s *fileSource) Close() error {
	unmapErr := s.data.Unmap()
	closeErr := s.f.Close()
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}
