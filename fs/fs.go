package fs

import (
	"context"
	"io"
)

// Fork names the logical stream within a forked file that an operation
// targets, matching spec.md §4.1's CallbackFacts "affected fork" field.
type Fork string

// Recognized forks.
const (
	ForkData      Fork = "data"
	ForkRsrc      Fork = "rsrc"
	ForkDiskImage Fork = "disk-image"
	ForkRaw       Fork = "raw"
	ForkUnknown   Fork = "unknown"
)

// EntryRef identifies one entry inside an Archive or FileSystem, opaque to
// the engine beyond what Characteristics/Entries expose.
type EntryRef interface {
	Attribs() FileAttribs
}

// PartKind distinguishes which physical part of an entry is being opened.
type PartKind int

// Parts an entry may expose.
const (
	PartDataFork PartKind = iota
	PartRsrcFork
	PartDiskImage
)

// Characteristics describes format-level capabilities that the engine's
// workers branch on (name-adjustment rules, whether forks exist at all).
type Characteristics struct {
	DefaultSeparator  PathSeparator
	HasSingleEntry    bool
	HasResourceForks  bool
	Hierarchical      bool
	ReadOnly          bool
}

// Archive is the abstract capability for a container format (ZIP, NuFX,
// AppleSingle, gzip, ...). Concrete codecs live outside CORE (spec.md §1);
// this interface is what the engine's workers and tree code depend on.
type Archive interface {
	// Entries returns every entry currently in the archive, in archive
	// order (not necessarily sorted).
	Entries(ctx context.Context) ([]EntryRef, error)

	// OpenPart returns a readable stream for one part of entry. The
	// stream is not guaranteed to be seekable.
	OpenPart(ctx context.Context, entry EntryRef, part PartKind) (io.ReadCloser, error)

	Characteristics() Characteristics

	// AdjustFileName maps an arbitrary name to one this archive format
	// can store, idempotently (Testable Property 5).
	AdjustFileName(name string) string

	// CheckStorageName validates a name already adjusted by
	// AdjustFileName, returning ErrNameTooLong if it cannot be stored.
	CheckStorageName(name string) error

	// StartTransaction/CommitTransaction/CancelTransaction implement
	// the single-writer transaction discipline of spec.md §5.
	StartTransaction(ctx context.Context) error
	// AddEntry stages a new or replacement entry sourced from src; the
	// bytes are not necessarily read until CommitTransaction.
	AddEntry(ctx context.Context, attribs FileAttribs, dataSrc, rsrcSrc PartSource) (EntryRef, error)
	DeleteEntry(ctx context.Context, entry EntryRef) error
	// CommitTransaction flushes all staged changes to out and ends the
	// transaction; it returns only an error (keeping EntryRefs
	// identity-stable per spec.md §4.4's reopen_stream invariant is the
	// caller's job, not this interface's).
	CommitTransaction(ctx context.Context, out io.Writer) error
	CancelTransaction(ctx context.Context) error

	// ReopenStream gives the archive a fresh underlying stream after
	// its DiskArcNode has rotated it (spec.md §4.4).
	ReopenStream(ctx context.Context, r io.ReadSeeker) error
}

// PartSource is the C2 pull-style byte source abstraction. Defined here,
// not in package partsource, to avoid an import cycle between fs and
// partsource (Archive.AddEntry needs it).
type PartSource interface {
	Open(ctx context.Context) error
	Read(buf []byte) (int, error)
	Rewind(ctx context.Context) error
	Close() error
	// Dispose releases resources even if Close was never called; see
	// spec.md §4.2's finalization invariant.
	Dispose()
}

// DirEntry identifies a directory inside a FileSystem.
type DirEntry interface {
	Name() string
}

// FileSystem is the abstract capability for a disk filesystem (DOS 3.3,
// ProDOS, HFS, or the host OS's own filesystem when used as a copy
// endpoint).
type FileSystem interface {
	VolumeDir() DirEntry
	ReadDir(ctx context.Context, dir DirEntry) ([]EntryRef, error)

	OpenFile(ctx context.Context, entry EntryRef, part PartKind) (io.ReadCloser, error)
	CreateFile(ctx context.Context, parent DirEntry, name string, attribs FileAttribs, extended bool) (EntryRef, io.WriteCloser, error)
	// CreateRsrcWriter opens the resource-fork write stream of an entry
	// already created with extended=true.
	CreateRsrcWriter(ctx context.Context, entry EntryRef) (io.WriteCloser, error)
	DeleteFile(ctx context.Context, entry EntryRef) error
	MoveFile(ctx context.Context, entry EntryRef, newParent DirEntry, newName string) error
	SetAttribs(ctx context.Context, entry EntryRef, attribs FileAttribs) error

	Mkdir(ctx context.Context, parent DirEntry, name string) (DirEntry, error)
	FindEmbeddedVolumes(ctx context.Context) ([]DiskImage, error)

	Characteristics() Characteristics
	AdjustFileName(name string) string
	AdjustVolumeName(name string) string
	IsReadOnly() bool
}

// DepthHint tells analysis code how deeply to recurse into nested
// containers, mirroring spec.md §4.5's depth policy child_kind values.
type DepthHint int

// Disk image contents, once analyzed.
type DiskImageContents interface{ isDiskImageContents() }

// FileSystemContents wraps a FileSystem as DiskImageContents.
type FileSystemContents struct{ FileSystem FileSystem }

func (FileSystemContents) isDiskImageContents() {}

// MultiPartContents wraps a MultiPart as DiskImageContents.
type MultiPartContents struct{ MultiPart MultiPart }

func (MultiPartContents) isDiskImageContents() {}

// DiskImage is the abstract capability for a sector/block-addressable disk
// image (.po, .dsk, .woz, .2mg, ...).
type DiskImage interface {
	AnalyzeDisk(ctx context.Context, orderHint string, depth DepthHint) (DiskImageContents, error)
	Contents() DiskImageContents
	TestBlock(n int) bool
	TestSector(track, sector int) bool
	Flush(ctx context.Context) error
	IsModified() bool
	IsReadOnly() bool
}

// MultiPart is the abstract capability for a container of partitions
// (e.g. a hard-disk image with multiple ProDOS/HFS volumes).
type MultiPart interface {
	Partitions(ctx context.Context) ([]DiskImage, error)
}

// ConverterResult tags which concrete shape a Converter produced.
type ConverterResult int

// Converter output shapes.
const (
	ConvSimpleText ConverterResult = iota
	ConvFancyText
	ConvCellGrid
	ConvBitmap
	ConvHostConv
	ConvErrorText
)

// ConvertOptions carries converter-specific knobs; the engine treats it as
// opaque.
type ConvertOptions map[string]any

// Converter is the abstract, registry-dispatched capability for
// import/export file-type translators (spec.md §6, §9 "Dynamic dispatch for
// converters").
type Converter interface {
	Tag() string
	Applicability(attribs FileAttribs, sample []byte) int
	ConvertFile(ctx context.Context, r io.Reader, attribs FileAttribs, opts ConvertOptions) (ConverterResult, io.ReadCloser, error)
	// Extension returns the canonical host extension this converter's
	// output should carry (".txt", ".rtf", ".csv", ".png", or "" for
	// host passthrough).
	Extension() string
}

// ConverterRegistry is an open-ended, string-keyed registry of Converters,
// matching spec.md §9's "no compile-time knowledge of the converter set".
type ConverterRegistry struct {
	byTag map[string]Converter
}

// NewConverterRegistry returns an empty registry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{byTag: make(map[string]Converter)}
}

// Register adds c to the registry, keyed by c.Tag().
func (r *ConverterRegistry) Register(c Converter) {
	r.byTag[c.Tag()] = c
}

// Lookup returns the converter registered under tag, if any.
func (r *ConverterRegistry) Lookup(tag string) (Converter, bool) {
	c, ok := r.byTag[tag]
	return c, ok
}

// Best returns the highest-applicability converter for attribs/sample, or
// nil if none claims applicability > 0.
func (r *ConverterRegistry) Best(attribs FileAttribs, sample []byte) Converter {
	var best Converter
	bestScore := 0
	for _, c := range r.byTag {
		if score := c.Applicability(attribs, sample); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// AppHook is the logging/feature-flag sink threaded explicitly through
// workers instead of living behind a process global (spec.md §9).
type AppHook interface {
	Log(level Level, format string, args ...any)
	FeatureEnabled(name string) bool
}

// NopAppHook is an AppHook that logs through the package-level Debugf/Infof
// helpers and has all features disabled; a convenient default for callers
// that don't need custom behavior.
type NopAppHook struct{}

// Log implements AppHook.
func (NopAppHook) Log(level Level, format string, args ...any) {
	switch level {
	case LevelError:
		Errorf(nil, format, args...)
	case LevelDebug:
		Debugf(nil, format, args...)
	default:
		Infof(nil, format, args...)
	}
}

// FeatureEnabled implements AppHook.
func (NopAppHook) FeatureEnabled(string) bool { return false }
