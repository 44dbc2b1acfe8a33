package partsource

import (
	"bytes"
	"context"
	"io"

	"github.com/retropack/arcengine/appledouble"
	arcfs "github.com/retropack/arcengine/fs"
)

// GeneratedADF builds an AppleSingle or AppleDouble header in memory from a
// FileAttribs plus an optional resource fork, and streams the encoded
// bytes. It is the third PartSource variant named in spec.md §4.2, used
// when a worker needs to synthesize a "._name" sidecar (or a combined ADF
// file) rather than stream one that already exists on disk.
type GeneratedADF struct {
	Attribs  arcfs.FileAttribs
	RsrcFork []byte
	Double   bool // true: AppleDouble header only; false: AppleSingle combined file

	buf *bytes.Reader
}

// Open implements PartSource: encodes the container now, so Rewind can
// reuse the same bytes without re-deriving them.
func (s *GeneratedADF) Open(ctx context.Context) error {
	c := appledouble.FromAttribs(s.Attribs, s.RsrcFork, s.Double)
	var out bytes.Buffer
	if err := appledouble.Encode(&out, c); err != nil {
		return err
	}
	s.buf = bytes.NewReader(out.Bytes())
	return nil
}

// Read implements PartSource.
func (s *GeneratedADF) Read(buf []byte) (int, error) {
	if s.buf == nil {
		return 0, io.EOF
	}
	return s.buf.Read(buf)
}

// Rewind implements PartSource.
func (s *GeneratedADF) Rewind(ctx context.Context) error {
	if s.buf == nil {
		return s.Open(ctx)
	}
	_, err := s.buf.Seek(0, io.SeekStart)
	return err
}

// Close implements PartSource.
func (s *GeneratedADF) Close() error {
	s.buf = nil
	return nil
}

// Dispose implements PartSource.
func (s *GeneratedADF) Dispose() {
	s.buf = nil
}

// String implements fmt.Stringer for log output.
func (s *GeneratedADF) String() string { return "GeneratedADF(" + s.Attribs.FilenameOnly + ")" }

var _ arcfs.PartSource = (*GeneratedADF)(nil)
