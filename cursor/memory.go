package cursor

import "io"

// memorySource is a Source over an in-memory byte slice.
type memorySource []byte

func (m memorySource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m)) {
		return 0, io.EOF
	}
	n := copy(p, m[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (m memorySource) Len() int64 {
	return int64(len(m))
}

func (m memorySource) Close() error {
	return nil
}
