package clip

import (
	"context"

	"github.com/retropack/arcengine/operations"

	arcfs "github.com/retropack/arcengine/fs"
)

// ClipPasteWorker drives a paste of a ClipFileSet's xfer_entries into a
// destination archive.
//
// spec.md §9 leaves AddFilesToArchive's body as a skeleton in the source;
// SPEC_FULL.md resolves it literally as "construct PartSources over the
// generator and call the Add worker" rather than a parallel code path, so
// it shares every name-collision, path-adjustment, and MacZip rule C6
// already implements.
type ClipPasteWorker struct {
	Set *ClipFileSet
}

// AddFilesToArchive pastes every xfer entry in w.Set into dst.
func (w *ClipPasteWorker) AddFilesToArchive(ctx context.Context, dst arcfs.Archive, cb arcfs.Func, opts operations.AddOptions) (arcfs.WorkerResult, error) {
	byPath := make(map[string]*operations.AddFileEntry)
	var order []string

	for _, e := range w.Set.XferEntries {
		dataGen, rsrcGen := w.Set.Generators(e.EntryHash)

		key := e.Attribs.FullPath
		entry, ok := byPath[key]
		if !ok {
			entry = &operations.AddFileEntry{
				StorageDir:     parentDir(e.Attribs),
				StorageDirSep:  e.Attribs.PathSeparator,
				StorageName:    e.Attribs.FilenameOnly,
				ModWhen:        e.Attribs.ModWhen,
				CreateWhen:     e.Attribs.CreateWhen,
				FileType:       e.Attribs.ProDOSType,
				AuxType:        e.Attribs.AuxType,
				HFSType:        e.Attribs.HFSType,
				HFSCreator:     e.Attribs.HFSCreator,
				Access:         e.Attribs.Access,
				SourcePathHint: key,
			}
			byPath[key] = entry
			order = append(order, key)
		}

		switch e.Part {
		case arcfs.PartRsrcFork:
			entry.HasRsrc = true
			if rsrcGen != nil {
				entry.RsrcSource = &ClipFileSource{Gen: rsrcGen}
			}
		default:
			entry.HasData = true
			if dataGen != nil {
				entry.DataSource = &ClipFileSource{Gen: dataGen}
			}
		}
	}

	entries := make([]operations.AddFileEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, *byPath[k])
	}

	return operations.AddFiles(ctx, dst, entries, cb, opts)
}

func parentDir(a arcfs.FileAttribs) string {
	if a.PathSeparator == arcfs.NoSeparator {
		return ""
	}
	sep := string(a.PathSeparator)
	idx := -1
	for i := len(a.FullPath) - 1; i >= 0; i-- {
		if string(a.FullPath[i]) == sep {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	return a.FullPath[:idx]
}
