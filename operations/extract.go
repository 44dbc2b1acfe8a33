package operations

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retropack/arcengine/appledouble"
	"github.com/retropack/arcengine/partsource"

	arcfs "github.com/retropack/arcengine/fs"
)

// PreserveMode selects how the Extract worker encodes fork and type
// metadata on the host filesystem, per spec.md §4.7.
type PreserveMode int

// Recognized preserve modes.
const (
	PreserveNone PreserveMode = iota
	PreserveADF
	PreserveAS
	PreserveHost
	PreserveNAPS
)

// illegalHostChars are characters the host filesystem cannot store in a
// filename component; AdjustHostFileName substitutes hostReplacementChar
// for each.
const illegalHostChars = `/\:*?"<>|`
const hostReplacementChar = '_'

// AdjustHostFileName substitutes illegal host filename characters with a
// single default replacement character (spec.md §4.7).
func AdjustHostFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalHostChars, r) {
			return hostReplacementChar
		}
		return r
	}, name)
}

// NAPSSuffix computes the "#TTAAAA" (or HFS-type-derived) suffix NAPS
// mode encodes into a host filename, per spec.md §4.7.
func NAPSSuffix(a arcfs.FileAttribs, resourceFork bool) string {
	var s string
	if a.ProDOSType != 0 || a.AuxType != 0 {
		s = fmt.Sprintf("#%02X%04X", a.ProDOSType, a.AuxType)
	} else {
		s = fmt.Sprintf("#%08X", uint64(a.HFSType)<<32|uint64(a.HFSCreator))
	}
	if resourceFork {
		s += "r"
	}
	return s
}

// ExtractEntry is one item in an Extract pass: the source entry's
// attributes plus openers for its data and (optional) resource fork
// streams.
type ExtractEntry struct {
	Attribs arcfs.FileAttribs

	OpenData func(ctx context.Context) (io.ReadCloser, error)
	OpenRsrc func(ctx context.Context) (io.ReadCloser, error) // nil if no resource fork
}

// ExtractOptions configures an Extract pass.
type ExtractOptions struct {
	Mode     PreserveMode
	DestDir  string
	DryRun   bool
	ReadOnly bool // apply the source's read-only access flag on the host, except in AS mode (spec.md §4.7)
}

// ExtractFiles implements the C7 Extract worker (spec.md §4.7): it
// creates missing host directories, detects collisions via the callback,
// writes outputs CreateNew, and finally sets host attributes.
func ExtractFiles(ctx context.Context, entries []ExtractEntry, cb arcfs.Func, opts ExtractOptions) (arcfs.WorkerResult, error) {
	var result arcfs.WorkerResult
	if cb == nil {
		cb = arcfs.NopFunc
	}
	if len(entries) == 0 {
		return result, nil
	}

	for _, e := range entries {
		if cb(arcfs.Facts{Reason: arcfs.ReasonQueryCancel}) == arcfs.ResultCancel {
			result.WasCancelled = true
			return result, nil
		}

		paths, err := extractPaths(e.Attribs, opts)
		if err != nil {
			arcfs.Normalize(arcfs.ReasonFailure, cb(arcfs.Facts{Reason: arcfs.ReasonFailure, OrigPath: e.Attribs.FullPath, FailureMessage: err.Error()}))
			result.Failed++
			continue
		}

		if opts.DryRun {
			result.Added++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(paths.dataPath), 0o755); err != nil {
			result.Failed++
			continue
		}

		if collision(paths.dataPath) {
			res := arcfs.Normalize(arcfs.ReasonFileNameExists, cb(arcfs.Facts{Reason: arcfs.ReasonFileNameExists, OrigPath: e.Attribs.FullPath, NewPath: paths.dataPath}))
			switch res {
			case arcfs.ResultCancel:
				result.WasCancelled = true
				return result, nil
			case arcfs.ResultSkip:
				result.Skipped++
				continue
			}
		}

		if opts.Mode == PreserveNone && e.OpenRsrc != nil {
			switch arcfs.Normalize(arcfs.ReasonResourceForkIgnored, cb(arcfs.Facts{Reason: arcfs.ReasonResourceForkIgnored, OrigPath: e.Attribs.FullPath})) {
			case arcfs.ResultCancel:
				result.WasCancelled = true
				return result, nil
			case arcfs.ResultSkip:
				result.Skipped++
				continue
			}
		}

		created, err := writeExtractedEntry(ctx, e, paths, opts)
		if err != nil {
			for _, c := range created {
				_ = os.Remove(c)
			}
			arcfs.Normalize(arcfs.ReasonFailure, cb(arcfs.Facts{Reason: arcfs.ReasonFailure, OrigPath: e.Attribs.FullPath, FailureMessage: err.Error()}))
			result.Failed++
			continue
		}

		result.Added++
	}

	return result, nil
}

func collision(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type extractedPaths struct {
	dataPath string
	rsrcPath string // sidecar ._name, combined .as file, or "" when not applicable
}

func extractPaths(a arcfs.FileAttribs, opts ExtractOptions) (extractedPaths, error) {
	var name string
	switch opts.Mode {
	case PreserveNAPS:
		name = AdjustHostFileName(a.FilenameOnly) + NAPSSuffix(a, false)
	default:
		name = AdjustHostFileName(a.FilenameOnly)
	}

	base := filepath.Join(opts.DestDir, name)
	p := extractedPaths{dataPath: base}

	switch opts.Mode {
	case PreserveADF:
		dir, file := filepath.Split(base)
		p.rsrcPath = filepath.Join(dir, "._"+file)
	case PreserveAS:
		p.dataPath = base + ".as"
		p.rsrcPath = p.dataPath
	case PreserveNAPS:
		p.rsrcPath = base + "r"
	case PreserveHost, PreserveNone:
		// no sidecar path; PreserveHost's resource fork lives in an
		// OS-level named fork this worker writes via writeExtractedEntry.
	}
	return p, nil
}

func writeExtractedEntry(ctx context.Context, e ExtractEntry, paths extractedPaths, opts ExtractOptions) ([]string, error) {
	var created []string

	if opts.Mode == PreserveAS {
		var rsrc []byte
		if e.OpenRsrc != nil {
			var err error
			rsrc, err = readAllClose(ctx, e.OpenRsrc)
			if err != nil {
				return created, err
			}
		}
		f, err := os.OpenFile(paths.dataPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return created, err
		}
		created = append(created, paths.dataPath)
		c := appledouble.FromAttribs(e.Attribs, rsrc, false)
		if err := appledouble.Encode(f, c); err != nil {
			_ = f.Close()
			return created, err
		}
		if err := f.Close(); err != nil {
			return created, err
		}
		applyHostAttribs(paths.dataPath, e.Attribs, opts)
		return created, nil
	}

	if e.OpenData != nil {
		if err := copyToNewFile(ctx, paths.dataPath, e.OpenData); err != nil {
			return created, err
		}
		created = append(created, paths.dataPath)
	}

	switch opts.Mode {
	case PreserveADF:
		var rsrc []byte
		if e.OpenRsrc != nil {
			var err error
			rsrc, err = readAllClose(ctx, e.OpenRsrc)
			if err != nil {
				return created, err
			}
		}
		f, err := os.OpenFile(paths.rsrcPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return created, err
		}
		created = append(created, paths.rsrcPath)
		c := appledouble.FromAttribs(e.Attribs, rsrc, true)
		if err := appledouble.Encode(f, c); err != nil {
			_ = f.Close()
			return created, err
		}
		if err := f.Close(); err != nil {
			return created, err
		}

	case PreserveNAPS:
		if e.OpenRsrc != nil {
			if err := copyToNewFile(ctx, paths.rsrcPath, e.OpenRsrc); err != nil {
				return created, err
			}
			created = append(created, paths.rsrcPath)
		}

	case PreserveNone:
		// resource fork (if any) is discarded; ExtractFiles has already
		// raised ResourceForkIgnored for it before calling here.

	case PreserveHost:
		if e.OpenRsrc != nil {
			if err := writeHostNamedFork(ctx, paths.dataPath, e.OpenRsrc); err != nil {
				return created, err
			}
		}
	}

	applyHostAttribs(paths.dataPath, e.Attribs, opts)
	return created, nil
}

func copyToNewFile(ctx context.Context, path string, open func(context.Context) (io.ReadCloser, error)) error {
	r, err := open(ctx)
	if err != nil {
		return err
	}
	guarded, err := partsource.Open(ctx, readCloserSource{r}, path)
	if err != nil {
		_ = r.Close()
		return err
	}
	defer guarded.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, readerFunc(guarded.Read))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func readAllClose(ctx context.Context, open func(context.Context) (io.ReadCloser, error)) ([]byte, error) {
	r, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// writeHostNamedFork writes a resource fork to the macOS "..namedfork/rsrc"
// path; on platforms without named-fork support this simply fails, which
// the worker surfaces as a Failure for that entry rather than aborting the
// whole pass.
func writeHostNamedFork(ctx context.Context, dataPath string, open func(context.Context) (io.ReadCloser, error)) error {
	return copyToNewFile(ctx, dataPath+"/..namedfork/rsrc", open)
}

func applyHostAttribs(path string, a arcfs.FileAttribs, opts ExtractOptions) {
	if !a.ModWhen.IsZero() && a.ModWhen != arcfs.NoDate {
		_ = os.Chtimes(path, a.ModWhen, a.ModWhen)
	}
	if opts.ReadOnly && opts.Mode != PreserveAS && a.Access&arcfs.AccessLocked != 0 {
		_ = os.Chmod(path, 0o444)
	}
}

// readCloserSource adapts a plain io.ReadCloser (as OpenPart returns) to
// the PartSource interface, for reuse of partsource's leak-tracking Open.
type readCloserSource struct {
	r io.ReadCloser
}

func (s readCloserSource) Open(ctx context.Context) error          { return nil }
func (s readCloserSource) Read(buf []byte) (int, error)            { return s.r.Read(buf) }
func (s readCloserSource) Rewind(ctx context.Context) error        { return fmt.Errorf("operations: source stream is not rewindable") }
func (s readCloserSource) Close() error                            { return s.r.Close() }
func (s readCloserSource) Dispose()                                { _ = s.r.Close() }

var _ arcfs.PartSource = readCloserSource{}
