package partsource

import (
	"bytes"
	"context"
	"io"

	arcfs "github.com/retropack/arcengine/fs"
)

// MemoryBacked wraps an in-memory byte buffer: used for empty data forks
// and for prebuilt bytes such as MacZip sidecar headers. (GeneratedADF
// builds its own bytes and streams them itself rather than through a
// MemoryBacked.)
type MemoryBacked struct {
	Data []byte

	r *bytes.Reader
}

// Open implements PartSource.
func (s *MemoryBacked) Open(ctx context.Context) error {
	s.r = bytes.NewReader(s.Data)
	return nil
}

// Read implements PartSource.
func (s *MemoryBacked) Read(buf []byte) (int, error) {
	if s.r == nil {
		return 0, io.EOF
	}
	return s.r.Read(buf)
}

// Rewind implements PartSource.
func (s *MemoryBacked) Rewind(ctx context.Context) error {
	if s.r == nil {
		return s.Open(ctx)
	}
	_, err := s.r.Seek(0, io.SeekStart)
	return err
}

// Close implements PartSource.
func (s *MemoryBacked) Close() error {
	s.r = nil
	return nil
}

// Dispose implements PartSource.
func (s *MemoryBacked) Dispose() {
	s.r = nil
}

// String implements fmt.Stringer for log output.
func (s *MemoryBacked) String() string { return "MemoryBacked" }

var _ arcfs.PartSource = (*MemoryBacked)(nil)
