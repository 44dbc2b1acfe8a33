package partsource

import (
	"context"
	"io"
	"os"

	arcfs "github.com/retropack/arcengine/fs"
)

// ImportConverter interposes on a FileBacked source's bytes before they
// reach the archive, implementing spec.md §4.2's "Import (needs converter)"
// data_source_kind.
type ImportConverter interface {
	// Convert wraps r, transforming its bytes on the fly (e.g. a text
	// encoding conversion or a host-format-specific import filter).
	Convert(r io.Reader) (io.Reader, error)
}

// FileBacked wraps a host file, optionally passing its bytes through an
// ImportConverter on read. It supports open/read/rewind/read again, which
// some archive codecs need for a two-pass CRC-then-compress write.
type FileBacked struct {
	Path      string
	Converter ImportConverter

	f   *os.File
	r   io.Reader
}

// Open implements PartSource.
func (s *FileBacked) Open(ctx context.Context) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	s.f = f
	s.r = f
	if s.Converter != nil {
		conv, err := s.Converter.Convert(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		s.r = conv
	}
	return nil
}

// Read implements PartSource.
func (s *FileBacked) Read(buf []byte) (int, error) {
	return s.r.Read(buf)
}

// Rewind implements PartSource. Import-converted sources re-run the
// converter over a freshly seeked file, since most converters are not
// themselves seekable.
func (s *FileBacked) Rewind(ctx context.Context) error {
	if s.f == nil {
		return s.Open(ctx)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.r = s.f
	if s.Converter != nil {
		conv, err := s.Converter.Convert(s.f)
		if err != nil {
			return err
		}
		s.r = conv
	}
	return nil
}

// Close implements PartSource.
func (s *FileBacked) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.r = nil
	return err
}

// Dispose implements PartSource.
func (s *FileBacked) Dispose() {
	if s.f != nil {
		if err := s.f.Close(); err != nil {
			arcfs.Errorf(s, "error closing file-backed source on dispose: %v", err)
		}
		s.f = nil
		s.r = nil
	}
}

// String implements fmt.Stringer for log output.
func (s *FileBacked) String() string { return "FileBacked(" + s.Path + ")" }

var _ arcfs.PartSource = (*FileBacked)(nil)
