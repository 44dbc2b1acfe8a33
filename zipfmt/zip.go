// Package zipfmt implements the Archive capability (spec.md §6) over a
// plain ZIP container: the concrete codec the engine's workers and
// DiskArcNode commit pipeline exercise end to end, grounded on
// backend/zip/zip.go's read/write split but built around archive/zip's
// own Reader/Writer rather than a wrapped vfs.VFS.
//
// ZIP has no native resource-fork concept, so Characteristics reports
// HasResourceForks false; the MacZip __MACOSX/._name sidecar convention
// (package maczip) is how the engine's Add/Extract/Copy workers layer
// resource-fork preservation on top of an ordinary ZIP entry, not
// something this package has to know about.
package zipfmt

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	arcfs "github.com/retropack/arcengine/fs"
)

func init() {
	// Wire klauspost/compress's flate in place of the standard library's,
	// the way backend/zip's sibling backends reach for it for speed.
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// storeThreshold mirrors backend/zip's Put heuristic: very small entries
// are stored rather than deflated.
const storeThreshold = 10

// Entry is zipfmt's EntryRef: either backed by a *zip.File read from the
// currently-open source, or carrying attribs+bytes staged by AddEntry
// within the open transaction.
type Entry struct {
	attribs arcfs.FileAttribs
	file    *zip.File // non-nil once read from a committed source
	staged  *stagedPart
	deleted bool
}

// Attribs implements arcfs.EntryRef.
func (e *Entry) Attribs() arcfs.FileAttribs { return e.attribs }

type stagedPart struct {
	dataSrc arcfs.PartSource
}

// Archive is a zipfmt.Archive: a live in-memory index of one ZIP file's
// entries, plus (while a transaction is open) the staged adds/deletes a
// worker has not yet asked to be committed.
type Archive struct {
	mu      sync.Mutex
	entries []*Entry
	byPath  map[string]*Entry

	txnOpen  bool
	preTxn   []*Entry // snapshot for CancelTransaction
	preIndex map[string]*Entry
}

// NewEmpty returns a zipfmt.Archive with no entries, for building a fresh
// ZIP from scratch (the C4 disk->archive / archive creation path).
func NewEmpty() *Archive {
	return &Archive{byPath: make(map[string]*Entry)}
}

// Open decodes an existing ZIP from r (size bytes), populating the
// archive's entry index the way backend/zip's readZip does.
func Open(r io.ReaderAt, size int64) (*Archive, error) {
	a := &Archive{byPath: make(map[string]*Entry)}
	if err := a.load(r, size); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) load(r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return errors.Wrap(err, "zipfmt: failed to read zip file")
	}
	entries := make([]*Entry, 0, len(zr.File))
	byPath := make(map[string]*Entry, len(zr.File))
	for _, file := range zr.File {
		name := strings.Trim(path.Clean(file.Name), "/")
		if name == "" || strings.HasSuffix(file.Name, "/") {
			continue // directory entries carry no attributes the engine needs
		}
		e := &Entry{
			file: file,
			attribs: arcfs.FileAttribs{
				FullPath:      name,
				PathSeparator: '/',
				FilenameOnly:  path.Base(name),
				DataLength:    int64(file.UncompressedSize64),
				RsrcLength:    -1,
				ModWhen:       file.Modified,
			},
		}
		entries = append(entries, e)
		byPath[name] = e
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].attribs.FullPath < entries[j].attribs.FullPath })
	a.entries = entries
	a.byPath = byPath
	return nil
}

// ReopenStream implements arcfs.Archive: after a DiskArcNode commit
// rotates this archive's backing stream, re-index from the fresh bytes.
func (a *Archive) ReopenStream(ctx context.Context, r io.ReadSeeker) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, "zipfmt: reopen: seek")
	}
	ra, ok := r.(io.ReaderAt)
	if !ok {
		return errors.New("zipfmt: reopen: stream does not support ReadAt")
	}
	return a.load(ra, size)
}

// Entries implements arcfs.Archive.
func (a *Archive) Entries(ctx context.Context) ([]arcfs.EntryRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]arcfs.EntryRef, 0, len(a.entries))
	for _, e := range a.entries {
		if e.deleted {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// OpenPart implements arcfs.Archive. ZIP carries only a data fork.
func (a *Archive) OpenPart(ctx context.Context, entry arcfs.EntryRef, part arcfs.PartKind) (io.ReadCloser, error) {
	if part != arcfs.PartDataFork {
		return nil, arcfs.ErrNoResourceForks
	}
	e, ok := entry.(*Entry)
	if !ok {
		return nil, errors.New("zipfmt: foreign EntryRef")
	}
	if e.file != nil {
		return e.file.Open()
	}
	if e.staged != nil {
		if err := e.staged.dataSrc.Open(ctx); err != nil {
			return nil, err
		}
		return io.NopCloser(readerFunc(e.staged.dataSrc.Read)), nil
	}
	return nil, errors.New("zipfmt: entry has no readable data")
}

// Characteristics implements arcfs.Archive.
func (a *Archive) Characteristics() arcfs.Characteristics {
	return arcfs.Characteristics{
		DefaultSeparator: '/',
		HasSingleEntry:   false,
		HasResourceForks: false,
		Hierarchical:     true,
		ReadOnly:         false,
	}
}

// illegalZipChars mirrors the host-filesystem substitution rule (spec.md
// §4.7's AdjustHostFileName) since most ZIP-consuming tools are hosted on
// the same filesystems; backslash is folded to keep '/' meaningful as the
// archive's own hierarchy separator.
const illegalZipChars = `\:*?"<>|`

// AdjustFileName implements arcfs.Archive (Testable Property 5: idempotent).
func (a *Archive) AdjustFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalZipChars, r) {
			return '_'
		}
		return r
	}, name)
}

// maxZipNameLen is the practical limit archive/zip's local/central headers
// can encode a name field in (a uint16-length byte string).
const maxZipNameLen = 65535

// CheckStorageName implements arcfs.Archive.
func (a *Archive) CheckStorageName(name string) error {
	if len(name) > maxZipNameLen {
		return arcfs.ErrNameTooLong
	}
	return nil
}

// StartTransaction implements arcfs.Archive.
func (a *Archive) StartTransaction(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.txnOpen {
		return arcfs.ErrTransactionOpen
	}
	a.txnOpen = true
	a.preTxn = append([]*Entry(nil), a.entries...)
	a.preIndex = make(map[string]*Entry, len(a.byPath))
	for k, v := range a.byPath {
		a.preIndex[k] = v
	}
	return nil
}

// AddEntry implements arcfs.Archive.
//
// Because Characteristics reports HasResourceForks false, the Add worker
// (operations.AddFiles) never issues the "second call, same path, rsrc
// fork only" leg of its dual-fork dance against this archive type — that
// leg is gated on chars.HasResourceForks in the caller. A non-nil rsrcSrc
// reaching here regardless (a caller ignoring Characteristics) is treated
// as a caller error, not silently dropped.
func (a *Archive) AddEntry(ctx context.Context, attribs arcfs.FileAttribs, dataSrc, rsrcSrc arcfs.PartSource) (arcfs.EntryRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.txnOpen {
		return nil, arcfs.ErrNoTransaction
	}
	if rsrcSrc != nil {
		return nil, arcfs.ErrNoResourceForks
	}
	if dataSrc == nil {
		return nil, errors.New("zipfmt: AddEntry requires a data source")
	}

	name := strings.Trim(attribs.FullPath, "/")
	e := &Entry{attribs: attribs, staged: &stagedPart{dataSrc: dataSrc}}
	e.attribs.FullPath = name

	if existing, ok := a.byPath[name]; ok {
		existing.deleted = true
	}
	a.entries = append(a.entries, e)
	a.byPath[name] = e
	return e, nil
}

// DeleteEntry implements arcfs.Archive.
func (a *Archive) DeleteEntry(ctx context.Context, entry arcfs.EntryRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.txnOpen {
		return arcfs.ErrNoTransaction
	}
	e, ok := entry.(*Entry)
	if !ok {
		return errors.New("zipfmt: foreign EntryRef")
	}
	e.deleted = true
	delete(a.byPath, e.attribs.FullPath)
	return nil
}

// CancelTransaction implements arcfs.Archive.
func (a *Archive) CancelTransaction(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.txnOpen {
		return arcfs.ErrNoTransaction
	}
	a.entries = a.preTxn
	a.byPath = a.preIndex
	for _, e := range a.entries {
		e.deleted = false // undo AddEntry/DeleteEntry marks on pre-existing entries
	}
	a.preTxn = nil
	a.preIndex = nil
	a.txnOpen = false
	return nil
}

// CommitTransaction implements arcfs.Archive: writes every live entry to
// out as a fresh ZIP, copying unchanged entries' raw compressed bytes via
// (*zip.File).OpenRaw/(*zip.Writer).CreateRaw and re-encoding only the
// entries staged this transaction.
func (a *Archive) CommitTransaction(ctx context.Context, out io.Writer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.txnOpen {
		return arcfs.ErrNoTransaction
	}

	zw := zip.NewWriter(out)
	live := make([]*Entry, 0, len(a.entries))
	for _, e := range a.entries {
		if e.deleted {
			continue
		}
		if err := writeEntry(ctx, zw, e); err != nil {
			_ = zw.Close()
			return err
		}
		live = append(live, e)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "zipfmt: commit: close writer")
	}

	a.entries = live
	a.byPath = make(map[string]*Entry, len(live))
	for _, e := range live {
		e.staged = nil
		a.byPath[e.attribs.FullPath] = e
	}
	a.preTxn = nil
	a.preIndex = nil
	a.txnOpen = false
	return nil
}

func writeEntry(ctx context.Context, zw *zip.Writer, e *Entry) error {
	if e.staged != nil {
		return writeStagedEntry(ctx, zw, e)
	}
	if e.file != nil {
		r, err := e.file.OpenRaw()
		if err != nil {
			return errors.Wrapf(err, "zipfmt: commit: open raw %q", e.attribs.FullPath)
		}
		w, err := zw.CreateRaw(&e.file.FileHeader)
		if err != nil {
			return errors.Wrapf(err, "zipfmt: commit: create raw %q", e.attribs.FullPath)
		}
		if _, err := io.Copy(w, r); err != nil {
			return errors.Wrapf(err, "zipfmt: commit: copy raw %q", e.attribs.FullPath)
		}
		return nil
	}
	return fmt.Errorf("zipfmt: entry %q has neither staged data nor a source file", e.attribs.FullPath)
}

func writeStagedEntry(ctx context.Context, zw *zip.Writer, e *Entry) error {
	src := e.staged.dataSrc
	if err := src.Open(ctx); err != nil {
		return errors.Wrapf(err, "zipfmt: commit: open source %q", e.attribs.FullPath)
	}
	defer src.Dispose()

	buf, err := io.ReadAll(readerFunc(src.Read))
	if err != nil {
		return errors.Wrapf(err, "zipfmt: commit: read source %q", e.attribs.FullPath)
	}

	modWhen := e.attribs.ModWhen
	if modWhen.IsZero() || modWhen == arcfs.NoDate {
		modWhen = time.Unix(0, 0).UTC()
	}
	fh := &zip.FileHeader{
		Name:     e.attribs.FullPath,
		Modified: modWhen,
	}
	if len(buf) < storeThreshold {
		fh.Method = zip.Store
	} else {
		fh.Method = zip.Deflate
	}
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return errors.Wrapf(err, "zipfmt: commit: create %q", e.attribs.FullPath)
	}
	_, err = w.Write(buf)
	if err != nil {
		return errors.Wrapf(err, "zipfmt: commit: write %q", e.attribs.FullPath)
	}
	e.attribs.DataLength = int64(len(buf))
	return nil
}

// readerFunc adapts a bare Read method to io.Reader.
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(buf []byte) (int, error) { return f(buf) }

var _ arcfs.Archive = (*Archive)(nil)
