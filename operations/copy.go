package operations

import (
	"context"
	"io"
	"path"

	"github.com/retropack/arcengine/maczip"
	"github.com/retropack/arcengine/partsource"

	arcfs "github.com/retropack/arcengine/fs"
)

// CopyEntry is one item in a Copy pass: source fork openers plus enough
// attribute/filesystem-class information to drive DOS text conversion and
// MacZip sidecar detection (spec.md §4.8).
type CopyEntry struct {
	Attribs arcfs.FileAttribs

	OpenData func(ctx context.Context) (io.ReadCloser, error)
	OpenRsrc func(ctx context.Context) (io.ReadCloser, error)

	SourceIsDOS bool
	DestIsDOS   bool

	StorageDir    string
	StorageDirSep arcfs.PathSeparator
	StorageName   string

	// SidecarBytes, when non-nil, is a MacZip sidecar already located and
	// read by the caller (spec.md §4.8's "MacZip source handling");
	// ExtractMacZipAttribs has already been folded into Attribs by the
	// time the entry reaches here.
	SidecarBytes []byte
}

// CopyOptions configures a Copy pass.
type CopyOptions struct {
	MacZip bool
	DryRun bool
}

// CopyFileSource is the archive-to-archive pull-style source spec.md
// §4.8 names: it defers the actual read until the destination archive's
// commit pipeline asks for bytes, rather than copying eagerly.
type CopyFileSource struct {
	Open_ func(ctx context.Context) (io.ReadCloser, error)

	r io.ReadCloser
}

// Open implements arcfs.PartSource.
func (s *CopyFileSource) Open(ctx context.Context) error {
	r, err := s.Open_(ctx)
	if err != nil {
		return err
	}
	s.r = r
	return nil
}

// Read implements arcfs.PartSource.
func (s *CopyFileSource) Read(buf []byte) (int, error) { return s.r.Read(buf) }

// Rewind implements arcfs.PartSource: re-invokes the opener, since the
// source archive entry stream is generally not seekable.
func (s *CopyFileSource) Rewind(ctx context.Context) error {
	if s.r != nil {
		_ = s.r.Close()
	}
	return s.Open(ctx)
}

// Close implements arcfs.PartSource.
func (s *CopyFileSource) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil
	return err
}

// Dispose implements arcfs.PartSource.
func (s *CopyFileSource) Dispose() { _ = s.Close() }

var _ arcfs.PartSource = (*CopyFileSource)(nil)

// CopyToArchive implements the C8 Copy worker's archive destination path
// (spec.md §4.8): it attaches a pull-style CopyFileSource per entry and
// lets the destination archive's own commit pipeline perform the I/O.
func CopyToArchive(ctx context.Context, dst arcfs.Archive, entries []CopyEntry, cb arcfs.Func, opts CopyOptions) (arcfs.WorkerResult, error) {
	var result arcfs.WorkerResult
	if cb == nil {
		cb = arcfs.NopFunc
	}
	if len(entries) == 0 {
		return result, nil
	}
	if !opts.DryRun {
		if err := dst.StartTransaction(ctx); err != nil {
			return result, err
		}
	}

	for _, e := range entries {
		if cb(arcfs.Facts{Reason: arcfs.ReasonQueryCancel}) == arcfs.ResultCancel {
			result.WasCancelled = true
			if !opts.DryRun {
				_ = dst.CancelTransaction(ctx)
			}
			return result, nil
		}
		if opts.DryRun {
			result.Added++
			continue
		}

		attribs := e.Attribs
		attribs.FilenameOnly = dst.AdjustFileName(e.StorageName)

		var dataSrc arcfs.PartSource
		if e.OpenData != nil {
			dataSrc = &CopyFileSource{Open_: wrapDOSText(e.OpenData, e.SourceIsDOS, e.DestIsDOS, attribs.ProDOSType == prodosTextType)}
		}
		var rsrcSrc arcfs.PartSource
		if e.OpenRsrc != nil && !opts.MacZip && dst.Characteristics().HasResourceForks {
			rsrcSrc = &CopyFileSource{Open_: e.OpenRsrc}
		}

		if _, err := dst.AddEntry(ctx, attribs, dataSrc, rsrcSrc); err != nil {
			_ = dst.CancelTransaction(ctx)
			return result, err
		}

		if opts.MacZip && e.OpenRsrc != nil {
			rsrcBytes, err := readAllClose(ctx, e.OpenRsrc)
			if err != nil {
				_ = dst.CancelTransaction(ctx)
				return result, err
			}
			sidecar, err := maczip.BuildMacZipSidecar(attribs, rsrcBytes)
			if err != nil {
				_ = dst.CancelTransaction(ctx)
				return result, err
			}
			if sidecarPath, ok := maczip.GenerateMacZipName(attribs.FullPath); ok {
				sidecarAttribs := arcfs.FileAttribs{FullPath: sidecarPath, FilenameOnly: path.Base(sidecarPath), RsrcLength: -1}
				if _, err := dst.AddEntry(ctx, sidecarAttribs, &partsource.MemoryBacked{Data: sidecar}, nil); err != nil {
					_ = dst.CancelTransaction(ctx)
					return result, err
				}
			}
		}

		result.Added++
	}
	return result, nil
}

// CopyToFileSystem implements the C8 Copy worker's filesystem destination
// path: archive->filesystem and filesystem->filesystem both stream
// through here, applying DOS text conversion at the byte level when
// exactly one side is a DOS 3.x filesystem and the entry's ProDOS type is
// TXT.
func CopyToFileSystem(ctx context.Context, dst arcfs.FileSystem, entries []CopyEntry, cb arcfs.Func, opts CopyOptions) (arcfs.WorkerResult, error) {
	var result arcfs.WorkerResult
	if cb == nil {
		cb = arcfs.NopFunc
	}
	if len(entries) == 0 {
		return result, nil
	}

	root := dst.VolumeDir()
	chars := dst.Characteristics()

	for _, e := range entries {
		if cb(arcfs.Facts{Reason: arcfs.ReasonQueryCancel}) == arcfs.ResultCancel {
			result.WasCancelled = true
			return result, nil
		}
		if opts.DryRun {
			result.Added++
			continue
		}

		dir, err := mkdirChain(ctx, dst, root, e.StorageDir)
		if err != nil {
			return result, err
		}

		adjustedName := dst.AdjustFileName(e.StorageName)
		attribs := e.Attribs
		attribs.FilenameOnly = adjustedName

		isText := attribs.ProDOSType == prodosTextType
		extended := e.OpenRsrc != nil && chars.HasResourceForks

		newEntry, writer, err := dst.CreateFile(ctx, dir, adjustedName, attribs, extended)
		if err != nil {
			return result, err
		}

		if e.OpenData != nil {
			r, err := wrapDOSText(e.OpenData, e.SourceIsDOS, e.DestIsDOS, isText)(ctx)
			if err != nil {
				_ = writer.Close()
				_ = dst.DeleteFile(ctx, newEntry)
				return result, err
			}
			_, err = io.Copy(writer, r)
			_ = r.Close()
			if err != nil {
				_ = writer.Close()
				_ = dst.DeleteFile(ctx, newEntry)
				return result, err
			}
		}
		if err := writer.Close(); err != nil {
			_ = dst.DeleteFile(ctx, newEntry)
			return result, err
		}

		if extended {
			rw, err := dst.CreateRsrcWriter(ctx, newEntry)
			if err != nil {
				_ = dst.DeleteFile(ctx, newEntry)
				return result, err
			}
			r, err := e.OpenRsrc(ctx)
			if err != nil {
				_ = rw.Close()
				_ = dst.DeleteFile(ctx, newEntry)
				return result, err
			}
			_, err = io.Copy(rw, r)
			_ = r.Close()
			if err != nil {
				_ = rw.Close()
				_ = dst.DeleteFile(ctx, newEntry)
				return result, err
			}
			if err := rw.Close(); err != nil {
				_ = dst.DeleteFile(ctx, newEntry)
				return result, err
			}
		}

		if err := dst.SetAttribs(ctx, newEntry, attribs); err != nil {
			arcfs.Normalize(arcfs.ReasonAttrFailure, cb(arcfs.Facts{Reason: arcfs.ReasonAttrFailure, OrigPath: e.Attribs.FullPath, FailureMessage: err.Error()}))
		}
		result.Added++
	}
	return result, nil
}

// prodosTextType is the ProDOS TXT file-type code; DOS text conversion
// applies only to entries carrying it (spec.md §4.8).
const prodosTextType = 0x04

// wrapDOSText wraps open so its returned stream's bytes have their high
// bit set or cleared as DOS text conversion requires, when exactly one of
// sourceIsDOS/destIsDOS is true and isText is true. NUL bytes are left
// untouched in both directions (spec.md §8 scenario 3).
func wrapDOSText(open func(context.Context) (io.ReadCloser, error), sourceIsDOS, destIsDOS, isText bool) func(context.Context) (io.ReadCloser, error) {
	if !isText || sourceIsDOS == destIsDOS {
		return open
	}
	setHighBit := destIsDOS // copying into DOS: set high bit; copying out of DOS: clear it
	return func(ctx context.Context) (io.ReadCloser, error) {
		r, err := open(ctx)
		if err != nil {
			return nil, err
		}
		return &dosTextReader{r: r, setHighBit: setHighBit}, nil
	}
}

type dosTextReader struct {
	r          io.ReadCloser
	setHighBit bool
}

func (d *dosTextReader) Read(buf []byte) (int, error) {
	n, err := d.r.Read(buf)
	for i := 0; i < n; i++ {
		if buf[i] == 0x00 {
			continue
		}
		if d.setHighBit {
			buf[i] |= 0x80
		} else {
			buf[i] &^= 0x80
		}
	}
	return n, err
}

func (d *dosTextReader) Close() error { return d.r.Close() }
