package flac

import (
	"os"

	"github.com/coreflac/flac/internal/ferr"
)

// FileSource is a file-backed bits.ByteSource. Reads go through ReadAt
// rather than tracking an OS file cursor, so the same *os.File could be
// shared by more than one FileSource without interference.
type FileSource struct {
	f      *os.File
	length uint64
	pos    uint64
}

// OpenFile opens path and wraps it as a ByteSource.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferr.Wrap(ferr.IOError, "open file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ferr.Wrap(ferr.IOError, "stat file", err)
	}
	return &FileSource{f: f, length: uint64(info.Size())}, nil
}

// Length reports the file's total size in bytes.
func (s *FileSource) Length() uint64 { return s.length }

// Position reports the next absolute offset a Read will start from.
func (s *FileSource) Position() uint64 { return s.pos }

// Seek repositions the next Read. Seeking past the end is allowed.
func (s *FileSource) Seek(pos uint64) { s.pos = pos }

// Read implements bits.ByteSource.
func (s *FileSource) Read(buf []byte) (int, bool) {
	if s.pos >= s.length {
		return 0, false
	}
	n, _ := s.f.ReadAt(buf, int64(s.pos))
	if n == 0 {
		return 0, false
	}
	s.pos += uint64(n)
	return n, true
}

// Close releases the underlying file descriptor.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// MemorySource is an in-memory bits.ByteSource, for decoding a FLAC
// stream already held in a []byte.
type MemorySource struct {
	data []byte
	pos  uint64
}

// NewMemorySource wraps data. The slice must not be mutated while any
// Decoder built over it is in use.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// Length reports len(data).
func (s *MemorySource) Length() uint64 { return uint64(len(s.data)) }

// Position reports the next absolute offset a Read will start from.
func (s *MemorySource) Position() uint64 { return s.pos }

// Seek repositions the next Read. Seeking past the end is allowed.
func (s *MemorySource) Seek(pos uint64) { s.pos = pos }

// Read implements bits.ByteSource.
func (s *MemorySource) Read(buf []byte) (int, bool) {
	if s.pos >= uint64(len(s.data)) {
		return 0, false
	}
	n := copy(buf, s.data[s.pos:])
	s.pos += uint64(n)
	return n, true
}
