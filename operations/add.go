// Package operations implements the Add (C6), Extract (C7), and Copy (C8)
// workers: the family of cooperating pipelines that move forked files
// between archives and filesystems, normalizing paths, attributes, and
// the data/resource/metadata triple along the way.
package operations

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/retropack/arcengine/appledouble"
	"github.com/retropack/arcengine/maczip"
	"github.com/retropack/arcengine/partsource"
	"github.com/retropack/arcengine/typemap"

	arcfs "github.com/retropack/arcengine/fs"
)

// DataSourceKind tags how an AddFileEntry's bytes should be interpreted
// before they reach the destination, per spec.md §3.
type DataSourceKind int

// Recognized source kinds.
const (
	SourcePlain DataSourceKind = iota
	SourceAppleSingle
	SourceAppleDouble
	SourceImport
)

// AddFileEntry is a pending add (spec.md §3's AddFileEntry). Invariant:
// at least one of HasData, HasRsrc must be true.
type AddFileEntry struct {
	HasData        bool
	DataSource     arcfs.PartSource
	DataSourceKind DataSourceKind

	HasRsrc        bool
	RsrcSource     arcfs.PartSource
	RsrcSourceKind DataSourceKind

	HasADFAttribs bool

	StorageDir    string
	StorageDirSep arcfs.PathSeparator
	StorageName   string

	ModWhen, CreateWhen time.Time

	FileType            byte
	AuxType             uint16
	HFSType, HFSCreator uint32
	Access              arcfs.AccessFlags

	// RawMode is carried on the entry but no worker reads it: DOS 3.x to
	// DOS 3.x transfers go through the same fork-stream copy as any
	// other, and no DOS-sector raw-copy path exists.
	RawMode bool

	// SourcePathHint orders entries for the stable user-facing sort
	// spec.md §4.6 step 2 requires; conventionally the host path the
	// entry's data (or, if data-less, resource) fork came from.
	SourcePathHint string
}

// attribs derives a FileAttribs from e, synthesizing HFS<->ProDOS type
// fields when one side is all-zero, per spec.md §4.6's "Type
// translation" rule.
func (e AddFileEntry) attribs(targetWantsHFS bool) arcfs.FileAttribs {
	fileType, auxType, hfsType, hfsCreator := e.FileType, e.AuxType, e.HFSType, e.HFSCreator
	if targetWantsHFS && hfsType == 0 && hfsCreator == 0 && (fileType != 0 || auxType != 0) {
		hfsType, hfsCreator = typemap.ProDOSToHFS(fileType, auxType)
	}
	if !targetWantsHFS && fileType == 0 && auxType == 0 && (hfsType != 0 || hfsCreator != 0) {
		fileType, auxType = typemap.HFSToProDOS(hfsType, hfsCreator)
	}
	a := arcfs.FileAttribs{
		FullPath:      path.Join(e.StorageDir, e.StorageName),
		PathSeparator: e.StorageDirSep,
		FilenameOnly:  e.StorageName,
		ProDOSType:    fileType,
		AuxType:       auxType,
		HFSType:       hfsType,
		HFSCreator:    hfsCreator,
		Access:        e.Access,
		CreateWhen:    e.CreateWhen,
		ModWhen:       e.ModWhen,
		RsrcLength:    -1,
	}
	if e.HasRsrc {
		a.RsrcLength = 0 // refined by the caller once the fork is known-length; 0 here only marks "present"
	}
	return a
}

// AddOptions configures an AddFiles pass.
type AddOptions struct {
	MacZip bool
	DryRun bool
}

// AddFiles implements the C6 Add worker's algorithm (spec.md §4.6) against
// an Archive target. It starts (but, on success, deliberately does not
// commit) a transaction: committing is diskarc's job once every staged
// change across a batch is ready.
func AddFiles(ctx context.Context, target arcfs.Archive, entries []AddFileEntry, cb arcfs.Func, opts AddOptions) (arcfs.WorkerResult, error) {
	var result arcfs.WorkerResult
	if cb == nil {
		cb = arcfs.NopFunc
	}
	if len(entries) == 0 {
		return result, nil
	}

	existing, err := target.Entries(ctx)
	if err != nil {
		return result, err
	}
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[strings.ToUpper(e.Attribs().FilenameOnly)] = true
	}

	sorted := make([]AddFileEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SourcePathHint < sorted[j].SourcePathHint })

	chars := target.Characteristics()

	if !opts.DryRun {
		if err := target.StartTransaction(ctx); err != nil {
			return result, err
		}
	}

	for _, e := range sorted {
		if cb(arcfs.Facts{Reason: arcfs.ReasonQueryCancel}) == arcfs.ResultCancel {
			result.WasCancelled = true
			if !opts.DryRun {
				_ = target.CancelTransaction(ctx)
			}
			return result, nil
		}

		if !chars.HasResourceForks && !e.HasData && e.HasRsrc {
			if arcfs.Normalize(arcfs.ReasonResourceForkIgnored, cb(arcfs.Facts{Reason: arcfs.ReasonResourceForkIgnored, OrigPath: e.SourcePathHint})) == arcfs.ResultCancel {
				result.WasCancelled = true
				if !opts.DryRun {
					_ = target.CancelTransaction(ctx)
				}
				return result, nil
			}
			result.Skipped++
			continue
		}

		adjustedName := target.AdjustFileName(e.StorageName)
		adjustedDir := target.AdjustFileName(e.StorageDir)
		sep := chars.DefaultSeparator
		fullName := adjustedName
		if adjustedDir != "" {
			fullName = adjustedDir + string(sep) + adjustedName
		}
		if err := target.CheckStorageName(fullName); err != nil {
			if arcfs.Normalize(arcfs.ReasonPathTooLong, cb(arcfs.Facts{Reason: arcfs.ReasonPathTooLong, OrigPath: e.SourcePathHint, NewPath: fullName})) == arcfs.ResultCancel {
				result.WasCancelled = true
				if !opts.DryRun {
					_ = target.CancelTransaction(ctx)
				}
				return result, nil
			}
			result.Skipped++
			continue
		}

		overwrite := false
		if taken[strings.ToUpper(fullName)] {
			res := arcfs.Normalize(arcfs.ReasonFileNameExists, cb(arcfs.Facts{Reason: arcfs.ReasonFileNameExists, OrigPath: e.SourcePathHint, NewPath: fullName}))
			switch res {
			case arcfs.ResultCancel:
				result.WasCancelled = true
				if !opts.DryRun {
					_ = target.CancelTransaction(ctx)
				}
				return result, nil
			case arcfs.ResultSkip:
				result.Skipped++
				continue
			case arcfs.ResultOverwrite:
				overwrite = true
			}
		}

		if opts.DryRun {
			if overwrite {
				result.Overwritten++
			} else {
				result.Added++
			}
			continue
		}

		attribs := e.attribs(false)
		attribs.FullPath = fullName
		attribs.FilenameOnly = adjustedName

		dataSrc, rsrcSrc := e.DataSource, e.RsrcSource
		hasData, hasRsrc := e.HasData, e.HasRsrc

		// SourceAppleSingle/SourceAppleDouble entries carry their data and/or
		// resource fork packed inside an AppleSingle/AppleDouble container
		// rather than as a bare fork; unpack it before it reaches the
		// destination, mirroring writeExtractedEntry's PreserveAS branch
		// (operations/extract.go) in reverse.
		if e.DataSourceKind == SourceAppleSingle {
			container, derr := decodeAppleContainer(ctx, e.DataSource, "add-worker-as-decode")
			if derr != nil {
				_ = target.CancelTransaction(ctx)
				return result, derr
			}
			attribs = mergeDecodedAttribs(attribs, appledouble.ToAttribs(container, adjustedName))
			attribs.FullPath, attribs.FilenameOnly = fullName, adjustedName
			dataSrc = &partsource.MemoryBacked{Data: container.DataFork}
			hasData = true
			hasRsrc = len(container.RsrcFork) > 0
			if hasRsrc {
				rsrcSrc = &partsource.MemoryBacked{Data: container.RsrcFork}
			}
		}
		if e.RsrcSourceKind == SourceAppleDouble {
			container, derr := decodeAppleContainer(ctx, e.RsrcSource, "add-worker-ad-decode")
			if derr != nil {
				_ = target.CancelTransaction(ctx)
				return result, derr
			}
			attribs = mergeDecodedAttribs(attribs, appledouble.ToAttribs(container, adjustedName))
			attribs.FullPath, attribs.FilenameOnly = fullName, adjustedName
			hasRsrc = len(container.RsrcFork) > 0
			if hasRsrc {
				rsrcSrc = &partsource.MemoryBacked{Data: container.RsrcFork}
			}
		}

		if hasRsrc {
			if attribs.RsrcLength < 0 {
				attribs.RsrcLength = 0
			}
		} else {
			attribs.RsrcLength = -1
		}

		if !hasData && opts.MacZip && hasRsrc {
			dataSrc = &partsource.MemoryBacked{Data: nil}
		}

		if _, err := target.AddEntry(ctx, attribs, dataSrc, nil); err != nil {
			_ = target.CancelTransaction(ctx)
			return result, err
		}

		if opts.MacZip && hasRsrc {
			rsrcBytes, err := drainPartSource(ctx, rsrcSrc, "add-worker-sidecar-rsrc")
			if err != nil {
				_ = target.CancelTransaction(ctx)
				return result, err
			}
			sidecar, err := maczip.BuildMacZipSidecar(attribs, rsrcBytes)
			if err != nil {
				_ = target.CancelTransaction(ctx)
				return result, err
			}
			if sidecarName, ok := maczip.GenerateMacZipName(fullName); ok {
				sidecarAttribs := arcfs.FileAttribs{FullPath: sidecarName, FilenameOnly: path.Base(sidecarName), RsrcLength: -1}
				if _, err := target.AddEntry(ctx, sidecarAttribs, &partsource.MemoryBacked{Data: sidecar}, nil); err != nil {
					_ = target.CancelTransaction(ctx)
					return result, err
				}
			}
		} else if hasRsrc && chars.HasResourceForks {
			if _, err := target.AddEntry(ctx, attribs, nil, rsrcSrc); err != nil {
				_ = target.CancelTransaction(ctx)
				return result, err
			}
		}

		taken[strings.ToUpper(fullName)] = true
		if overwrite {
			result.Overwritten++
		} else {
			result.Added++
		}
	}

	return result, nil
}

// AddFilesToFileSystem implements the C6 Add worker's algorithm against a
// FileSystem target (spec.md §4.6 step 7): directories are created
// recursively, the file created (Extended mode when a resource fork is
// present and supported), each fork stream-copied, and attributes applied
// last.
func AddFilesToFileSystem(ctx context.Context, target arcfs.FileSystem, entries []AddFileEntry, cb arcfs.Func, opts AddOptions) (arcfs.WorkerResult, error) {
	var result arcfs.WorkerResult
	if cb == nil {
		cb = arcfs.NopFunc
	}
	if len(entries) == 0 {
		return result, nil
	}

	root := target.VolumeDir()
	chars := target.Characteristics()

	existing, err := target.ReadDir(ctx, root)
	if err != nil {
		return result, err
	}
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[strings.ToUpper(e.Attribs().FilenameOnly)] = true
	}

	sorted := make([]AddFileEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SourcePathHint < sorted[j].SourcePathHint })

	for _, e := range sorted {
		if cb(arcfs.Facts{Reason: arcfs.ReasonQueryCancel}) == arcfs.ResultCancel {
			result.WasCancelled = true
			return result, nil
		}

		if !chars.HasResourceForks && !e.HasData && e.HasRsrc {
			if arcfs.Normalize(arcfs.ReasonResourceForkIgnored, cb(arcfs.Facts{Reason: arcfs.ReasonResourceForkIgnored, OrigPath: e.SourcePathHint})) == arcfs.ResultCancel {
				result.WasCancelled = true
				return result, nil
			}
			result.Skipped++
			continue
		}

		adjustedName := target.AdjustFileName(e.StorageName)
		if taken[strings.ToUpper(adjustedName)] {
			res := arcfs.Normalize(arcfs.ReasonFileNameExists, cb(arcfs.Facts{Reason: arcfs.ReasonFileNameExists, OrigPath: e.SourcePathHint, NewPath: adjustedName}))
			switch res {
			case arcfs.ResultCancel:
				result.WasCancelled = true
				return result, nil
			case arcfs.ResultSkip:
				result.Skipped++
				continue
			}
		}

		if opts.DryRun {
			result.Added++
			continue
		}

		dir, err := mkdirChain(ctx, target, root, e.StorageDir)
		if err != nil {
			return result, err
		}

		extended := e.HasRsrc && chars.HasResourceForks
		attribs := e.attribs(false)
		attribs.FilenameOnly = adjustedName

		newEntry, writer, err := target.CreateFile(ctx, dir, adjustedName, attribs, extended)
		if err != nil {
			return result, err
		}

		if e.HasData {
			if err := copyFork(ctx, writer, e.DataSource); err != nil {
				_ = writer.Close()
				_ = target.DeleteFile(ctx, newEntry)
				return result, err
			}
		}
		if err := writer.Close(); err != nil {
			_ = target.DeleteFile(ctx, newEntry)
			return result, err
		}

		if extended {
			rsrcWriter, err := target.CreateRsrcWriter(ctx, newEntry)
			if err != nil {
				_ = target.DeleteFile(ctx, newEntry)
				return result, err
			}
			if err := copyFork(ctx, rsrcWriter, e.RsrcSource); err != nil {
				_ = rsrcWriter.Close()
				_ = target.DeleteFile(ctx, newEntry)
				return result, err
			}
			if err := rsrcWriter.Close(); err != nil {
				_ = target.DeleteFile(ctx, newEntry)
				return result, err
			}
		}

		if err := target.SetAttribs(ctx, newEntry, attribs); err != nil {
			arcfs.Normalize(arcfs.ReasonAttrFailure, cb(arcfs.Facts{Reason: arcfs.ReasonAttrFailure, OrigPath: e.SourcePathHint, FailureMessage: err.Error()}))
		}

		taken[strings.ToUpper(adjustedName)] = true
		result.Added++
	}

	return result, nil
}

func mkdirChain(ctx context.Context, target arcfs.FileSystem, root arcfs.DirEntry, dir string) (arcfs.DirEntry, error) {
	if dir == "" {
		return root, nil
	}
	cur := root
	for _, comp := range strings.Split(dir, "/") {
		if comp == "" {
			continue
		}
		adjusted := target.AdjustFileName(comp)
		d, err := target.Mkdir(ctx, cur, adjusted)
		if err != nil {
			return nil, err
		}
		cur = d
	}
	return cur, nil
}

func copyFork(ctx context.Context, w io.Writer, src arcfs.PartSource) error {
	guarded, err := partsource.Open(ctx, src, "add-worker-fork")
	if err != nil {
		return err
	}
	defer guarded.Close()
	_, err = io.Copy(w, readerFunc(guarded.Read))
	return err
}

func drainPartSource(ctx context.Context, src arcfs.PartSource, label string) ([]byte, error) {
	guarded, err := partsource.Open(ctx, src, label)
	if err != nil {
		return nil, err
	}
	defer guarded.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, readerFunc(guarded.Read)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeAppleContainer drains src and decodes it as an AppleSingle/
// AppleDouble container, for SourceAppleSingle/SourceAppleDouble entries.
func decodeAppleContainer(ctx context.Context, src arcfs.PartSource, label string) (appledouble.Container, error) {
	buf, err := drainPartSource(ctx, src, label)
	if err != nil {
		return appledouble.Container{}, err
	}
	return appledouble.Decode(bytes.NewReader(buf), int64(len(buf)))
}

// mergeDecodedAttribs fills in base's zero-valued fields from decoded, the
// attributes an AppleSingle/AppleDouble container carried alongside the
// forks it was storing, leaving any attribute the entry already specified
// untouched (the same "synthesize when zero" rule AddFileEntry.attribs
// applies to HFS<->ProDOS type translation).
func mergeDecodedAttribs(base, decoded arcfs.FileAttribs) arcfs.FileAttribs {
	if base.ProDOSType == 0 && base.AuxType == 0 {
		base.ProDOSType = decoded.ProDOSType
		base.AuxType = decoded.AuxType
	}
	if base.HFSType == 0 && base.HFSCreator == 0 {
		base.HFSType = decoded.HFSType
		base.HFSCreator = decoded.HFSCreator
	}
	if base.Access == 0 {
		base.Access = decoded.Access
	}
	if base.CreateWhen.IsZero() {
		base.CreateWhen = decoded.CreateWhen
	}
	if base.ModWhen.IsZero() {
		base.ModWhen = decoded.ModWhen
	}
	if base.Comment == "" {
		base.Comment = decoded.Comment
	}
	if decoded.RsrcLength >= 0 {
		base.RsrcLength = decoded.RsrcLength
	}
	return base
}

// readerFunc adapts a bare Read method to io.Reader.
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(buf []byte) (int, error) { return f(buf) }
