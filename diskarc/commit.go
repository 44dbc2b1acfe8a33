package diskarc

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	arcfs "github.com/retropack/arcengine/fs"
)

// SaveUpdates propagates a commit starting at leaf up through every
// ancestor to the host file, per spec.md §4.4's four commit scenarios.
// compress is handed to commitOneLevel, but no commit scenario reads it and
// the Archive interface has no parameter for it, so it has no effect.
func (leaf *DiskArcNode) SaveUpdates(ctx context.Context, compress bool) (arcfs.CommitStats, error) {
	var total arcfs.CommitStats
	node := leaf
	for node.parent != nil {
		parent := node.parent
		stats, err := commitOneLevel(ctx, parent, node, compress)
		if err != nil {
			return total, errors.Wrapf(err, "diskarc: commit %v into %v", node, parent)
		}
		total.Add(stats)
		node = parent
	}
	if node.kind == KindHostFile && node.hostFile != nil {
		if err := node.hostFile.Sync(); err != nil {
			return total, errors.Wrap(err, "diskarc: sync host file")
		}
	}
	arcfs.Logf(leaf, "save_updates complete: %+v", total)
	return total, nil
}

// commitOneLevel applies one row of spec.md §4.4's scenario table: child
// has just been committed to its own stream; parent absorbs that change
// and is left dirty so the next loop iteration in SaveUpdates propagates
// further.
func commitOneLevel(ctx context.Context, parent, child *DiskArcNode, compress bool) (arcfs.CommitStats, error) {
	if parent.kind == KindHostFile {
		return commitToHostRoot(ctx, parent, child)
	}
	switch {
	case parent.kind == KindDiskImage && child.kind == KindDiskImage:
		return commitDiskToDisk(ctx, parent, child)
	case parent.kind == KindDiskImage && child.kind == KindArchive:
		return commitDiskToArchive(ctx, parent, child)
	case parent.kind == KindArchive && child.kind == KindDiskImage:
		return commitArchiveToDisk(ctx, parent, child)
	case parent.kind == KindArchive && child.kind == KindArchive:
		return commitArchiveToArchive(ctx, parent, child)
	default:
		return arcfs.CommitStats{}, errors.Errorf("diskarc: unhandled commit pair parent=%v child=%v", parent.kind, child.kind)
	}
}

// streamPartSource adapts an already-open io.ReadSeeker into a PartSource
// without taking ownership of it: Close/Dispose are no-ops, matching
// spec.md §4.4's "sourced from the child stream (not closed)" requirement
// for the archive<-disk-image scenario, and the explicit-close-by-caller
// discipline used for the archive<-archive temp file.
type streamPartSource struct {
	r io.ReadSeeker
}

func (s *streamPartSource) Open(ctx context.Context) error { return nil }
func (s *streamPartSource) Read(buf []byte) (int, error)   { return s.r.Read(buf) }
func (s *streamPartSource) Rewind(ctx context.Context) error {
	_, err := s.r.Seek(0, io.SeekStart)
	return err
}
func (s *streamPartSource) Close() error { return nil }
func (s *streamPartSource) Dispose()     {}

var _ arcfs.PartSource = (*streamPartSource)(nil)

// commitDiskToDisk: writes pass straight through a disk image's own
// sectors, so the only work is flushing child then parent in order.
func commitDiskToDisk(ctx context.Context, parent, child *DiskArcNode) (arcfs.CommitStats, error) {
	if err := child.diskImage.Flush(ctx); err != nil {
		return arcfs.CommitStats{}, err
	}
	if err := parent.diskImage.Flush(ctx); err != nil {
		return arcfs.CommitStats{}, err
	}
	return arcfs.CommitStats{EntriesChanged: 1}, nil
}

// commitDiskToArchive: child archive lives as a file inside parent's
// filesystem. Commit it into a short-named temp file, delete the
// original, rename the temp over it, and reopen the archive's stream on
// the renamed file so its entry handles survive (reopen_stream).
func commitDiskToArchive(ctx context.Context, parent, child *DiskArcNode) (arcfs.CommitStats, error) {
	contents := parent.diskImage.Contents()
	fsc, ok := contents.(arcfs.FileSystemContents)
	if !ok {
		return arcfs.CommitStats{}, errors.New("diskarc: disk-image parent has no filesystem contents")
	}
	parentFS := fsc.FileSystem
	oldEntry := child.entryInParent
	oldAttribs := oldEntry.Attribs()

	tempName, err := TempNameInFileSystem(ctx, parentFS, parentFS.VolumeDir(), oldAttribs.FilenameOnly)
	if err != nil {
		return arcfs.CommitStats{}, err
	}

	tempEntry, tempWriter, err := parentFS.CreateFile(ctx, parentFS.VolumeDir(), tempName, arcfs.FileAttribs{FilenameOnly: tempName}, false)
	if err != nil {
		return arcfs.CommitStats{}, err
	}
	if err := child.archive.CommitTransaction(ctx, tempWriter); err != nil {
		_ = tempWriter.Close()
		_ = parentFS.DeleteFile(ctx, tempEntry)
		return arcfs.CommitStats{}, err
	}
	if err := tempWriter.Close(); err != nil {
		return arcfs.CommitStats{}, err
	}

	if err := parentFS.DeleteFile(ctx, oldEntry); err != nil {
		return arcfs.CommitStats{}, err
	}
	if err := parentFS.MoveFile(ctx, tempEntry, parentFS.VolumeDir(), oldAttribs.FilenameOnly); err != nil {
		return arcfs.CommitStats{}, err
	}

	newStream, err := parentFS.OpenFile(ctx, tempEntry, arcfs.PartDataFork)
	if err != nil {
		return arcfs.CommitStats{}, err
	}
	rs, ok := newStream.(io.ReadSeeker)
	if !ok {
		return arcfs.CommitStats{}, errors.New("diskarc: reopened archive stream is not seekable")
	}
	if err := child.archive.ReopenStream(ctx, rs); err != nil {
		return arcfs.CommitStats{}, err
	}
	if rws, ok := newStream.(io.ReadWriteSeeker); ok {
		child.stream = rws
	}
	child.entryInParent = tempEntry
	return arcfs.CommitStats{EntriesChanged: 1, TempFilesCreated: 1}, nil
}

// commitArchiveToDisk: parent archive's entry for the embedded disk image
// is replaced with a fresh part read directly from the child's own
// (already-flushed, still-open) stream.
func commitArchiveToDisk(ctx context.Context, parent, child *DiskArcNode) (arcfs.CommitStats, error) {
	if err := child.diskImage.Flush(ctx); err != nil {
		return arcfs.CommitStats{}, err
	}
	if err := parent.archive.StartTransaction(ctx); err != nil {
		return arcfs.CommitStats{}, err
	}
	oldEntry := child.entryInParent
	attribs := oldEntry.Attribs()
	if err := parent.archive.DeleteEntry(ctx, oldEntry); err != nil {
		_ = parent.archive.CancelTransaction(ctx)
		return arcfs.CommitStats{}, err
	}
	if _, err := child.stream.Seek(0, io.SeekStart); err != nil {
		_ = parent.archive.CancelTransaction(ctx)
		return arcfs.CommitStats{}, err
	}
	src := &streamPartSource{r: child.stream}
	newEntry, err := parent.archive.AddEntry(ctx, attribs, src, nil)
	if err != nil {
		_ = parent.archive.CancelTransaction(ctx)
		return arcfs.CommitStats{}, err
	}

	var out bytes.Buffer
	if err := parent.archive.CommitTransaction(ctx, &out); err != nil {
		return arcfs.CommitStats{}, err
	}
	newStream := bytes.NewReader(out.Bytes())
	if err := parent.archive.ReopenStream(ctx, newStream); err != nil {
		return arcfs.CommitStats{}, err
	}
	parent.stream = &readerSeekerBuffer{newStream}
	child.entryInParent = newEntry
	return arcfs.CommitStats{BytesWritten: int64(out.Len()), EntriesChanged: 1}, nil
}

// commitArchiveToArchive: child's commit is materialized into a temporary
// host-file-backed stream first, since two archive transactions cannot
// interleave reads of one another's in-progress output; the parent then
// deletes its old entry and adds a part sourced from that temp file.
func commitArchiveToArchive(ctx context.Context, parent, child *DiskArcNode) (arcfs.CommitStats, error) {
	tmp, err := os.CreateTemp("", "cp2tmp_")
	if err != nil {
		return arcfs.CommitStats{}, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := child.archive.CommitTransaction(ctx, tmp); err != nil {
		_ = tmp.Close()
		return arcfs.CommitStats{}, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		return arcfs.CommitStats{}, err
	}

	if err := parent.archive.StartTransaction(ctx); err != nil {
		_ = tmp.Close()
		return arcfs.CommitStats{}, err
	}
	oldEntry := child.entryInParent
	attribs := oldEntry.Attribs()
	if err := parent.archive.DeleteEntry(ctx, oldEntry); err != nil {
		_ = parent.archive.CancelTransaction(ctx)
		_ = tmp.Close()
		return arcfs.CommitStats{}, err
	}
	src := &streamPartSource{r: tmp}
	newEntry, err := parent.archive.AddEntry(ctx, attribs, src, nil)
	if err != nil {
		_ = parent.archive.CancelTransaction(ctx)
		_ = tmp.Close()
		return arcfs.CommitStats{}, err
	}

	var out bytes.Buffer
	if err := parent.archive.CommitTransaction(ctx, &out); err != nil {
		_ = tmp.Close()
		return arcfs.CommitStats{}, err
	}
	_ = tmp.Close()

	newStream := bytes.NewReader(out.Bytes())
	if err := parent.archive.ReopenStream(ctx, newStream); err != nil {
		return arcfs.CommitStats{}, err
	}
	parent.stream = &readerSeekerBuffer{newStream}
	child.entryInParent = newEntry
	return arcfs.CommitStats{BytesWritten: int64(out.Len()), EntriesChanged: 1, TempFilesCreated: 1}, nil
}

// commitToHostRoot is the top of every commit chain: the host file itself
// is rewritten, atomically, via temp-file-then-rename.
func commitToHostRoot(ctx context.Context, parent, child *DiskArcNode) (arcfs.CommitStats, error) {
	switch child.kind {
	case KindDiskImage:
		if err := child.diskImage.Flush(ctx); err != nil {
			return arcfs.CommitStats{}, err
		}
		return arcfs.CommitStats{EntriesChanged: 1}, nil

	case KindArchive:
		dir := filepath.Dir(parent.hostPath)
		tmpPath, tmpFile, err := createHostTempFile(dir)
		if err != nil {
			return arcfs.CommitStats{}, err
		}
		if err := child.archive.CommitTransaction(ctx, tmpFile); err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
			return arcfs.CommitStats{}, err
		}
		written, _ := tmpFile.Seek(0, io.SeekCurrent)
		if err := tmpFile.Close(); err != nil {
			_ = os.Remove(tmpPath)
			return arcfs.CommitStats{}, err
		}
		if err := parent.hostFile.Close(); err != nil {
			_ = os.Remove(tmpPath)
			return arcfs.CommitStats{}, err
		}
		if err := os.Rename(tmpPath, parent.hostPath); err != nil {
			return arcfs.CommitStats{}, err
		}
		newFile, err := os.OpenFile(parent.hostPath, os.O_RDWR, 0o644)
		if err != nil {
			return arcfs.CommitStats{}, err
		}
		parent.hostFile = newFile
		if err := child.archive.ReopenStream(ctx, newFile); err != nil {
			return arcfs.CommitStats{}, err
		}
		child.stream = newFile
		return arcfs.CommitStats{BytesWritten: written, EntriesChanged: 1, TempFilesCreated: 1}, nil

	default:
		return arcfs.CommitStats{}, errors.Errorf("diskarc: unexpected child kind %v directly under host root", child.kind)
	}
}

// readerSeekerBuffer adapts a *bytes.Reader (read-only) to the
// io.ReadWriteSeeker node_stream field for nodes whose commit output is
// held in memory rather than backed by a real file; writes are rejected,
// since nothing should write to a just-committed snapshot.
type readerSeekerBuffer struct {
	*bytes.Reader
}

func (readerSeekerBuffer) Write([]byte) (int, error) {
	return 0, errors.New("diskarc: in-memory commit snapshot is read-only")
}
