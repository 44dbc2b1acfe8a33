package clip

import (
	"bytes"
	"context"
	"io"

	"github.com/retropack/arcengine/appledouble"

	arcfs "github.com/retropack/arcengine/fs"
)

// StreamGenerator is the non-serializable side channel a ClipFileEntry's
// hash maps to: a reference to the origin container and entry, invoked on
// demand by the receiver to materialize fork bytes (spec.md §3).
type StreamGenerator interface {
	Generate(ctx context.Context) (io.ReadCloser, error)
}

// GeneratorFunc adapts a plain function to StreamGenerator.
type GeneratorFunc func(ctx context.Context) (io.ReadCloser, error)

// Generate implements StreamGenerator.
func (f GeneratorFunc) Generate(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }

// ClipFileSource wraps a lazy StreamGenerator as a PartSource, for paste
// into another instance of this same application (the xfer_entries path).
type ClipFileSource struct {
	Gen StreamGenerator

	r io.ReadCloser
}

// Open implements arcfs.PartSource.
func (s *ClipFileSource) Open(ctx context.Context) error {
	r, err := s.Gen.Generate(ctx)
	if err != nil {
		return err
	}
	s.r = r
	return nil
}

// Read implements arcfs.PartSource.
func (s *ClipFileSource) Read(buf []byte) (int, error) { return s.r.Read(buf) }

// Rewind implements arcfs.PartSource by re-invoking the generator.
func (s *ClipFileSource) Rewind(ctx context.Context) error {
	if s.r != nil {
		_ = s.r.Close()
	}
	return s.Open(ctx)
}

// Close implements arcfs.PartSource.
func (s *ClipFileSource) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil
	return err
}

// Dispose implements arcfs.PartSource.
func (s *ClipFileSource) Dispose() { _ = s.Close() }

var _ arcfs.PartSource = (*ClipFileSource)(nil)

// ClipFileSourceMZ wraps a lazy StreamGenerator and synthesizes an
// AppleDouble header on Open, for the foreign_entries (host
// clipboard/drag-drop) path in MacZip-aware form — the same logic as C2's
// GeneratedADF, but driven by a ClipFileEntry's metadata and an
// on-demand-fetched resource fork rather than a static byte slice.
type ClipFileSourceMZ struct {
	Attribs arcfs.FileAttribs
	RsrcGen StreamGenerator // nil if the entry has no resource fork

	buf *bytes.Reader
}

// Open implements arcfs.PartSource: fetches the resource fork (if any)
// now and encodes the AppleDouble header immediately, so Rewind can reuse
// the same bytes.
func (s *ClipFileSourceMZ) Open(ctx context.Context) error {
	var rsrc []byte
	if s.RsrcGen != nil {
		r, err := s.RsrcGen.Generate(ctx)
		if err != nil {
			return err
		}
		rsrc, err = io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			return err
		}
	}
	c := appledouble.FromAttribs(s.Attribs, rsrc, true)
	var out bytes.Buffer
	if err := appledouble.Encode(&out, c); err != nil {
		return err
	}
	s.buf = bytes.NewReader(out.Bytes())
	return nil
}

// Read implements arcfs.PartSource.
func (s *ClipFileSourceMZ) Read(buf []byte) (int, error) {
	if s.buf == nil {
		return 0, io.EOF
	}
	return s.buf.Read(buf)
}

// Rewind implements arcfs.PartSource.
func (s *ClipFileSourceMZ) Rewind(ctx context.Context) error {
	if s.buf == nil {
		return s.Open(ctx)
	}
	_, err := s.buf.Seek(0, io.SeekStart)
	return err
}

// Close implements arcfs.PartSource.
func (s *ClipFileSourceMZ) Close() error { s.buf = nil; return nil }

// Dispose implements arcfs.PartSource.
func (s *ClipFileSourceMZ) Dispose() { s.buf = nil }

var _ arcfs.PartSource = (*ClipFileSourceMZ)(nil)
