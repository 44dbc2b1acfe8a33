// Package clip implements the clip set & clip source (C9): building a
// transferable manifest — serialized metadata plus lazy stream generators
// — for clipboard copy/paste and drag-and-drop (spec.md §4.9).
package clip

import (
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/retropack/arcengine/operations"

	arcfs "github.com/retropack/arcengine/fs"
)

// ClipFileEntry is a serializable file descriptor (spec.md §3's
// ClipFileEntry); StreamGenerator is carried out-of-band, keyed by
// EntryHash, since it holds a live reference to the origin container.
type ClipFileEntry struct {
	FSType       string
	Part         arcfs.PartKind
	Attribs      arcfs.FileAttribs
	ExtractPath  string
	OutputLength int64 // -1 when unknown (generated/compressed/indeterminate)
	EntryHash    string
	PreserveMode operations.PreserveMode
}

// SelectedFile is one file chosen by the host application's selection,
// the raw input ClipFileSet synthesizes entries from.
type SelectedFile struct {
	FSType  string
	Attribs arcfs.FileAttribs

	DataGen StreamGenerator
	RsrcGen StreamGenerator // nil if the source has no resource fork

	// SidecarPeek, when non-nil, is a MacZip sidecar's already-read bytes
	// (spec.md §4.9's "For MacZip source, peek the sidecar to populate
	// rsrc length").
	SidecarPeek []byte
}

// ExportSpec selects a converter and its canonical output extension for
// files exported to the host clipboard, delegating the actual
// applicability scoring to the shared ConverterRegistry (spec.md §4.9's
// "C12 collaborator").
type ExportSpec struct {
	Registry *arcfs.ConverterRegistry
}

// ClipSetOptions configures BuildClipFileSet.
type ClipSetOptions struct {
	StripPaths bool
	MacZip     bool
	Export     *ExportSpec // nil disables export conversion
}

// ClipFileSet holds the two parallel lists BuildClipFileSet produces plus
// the generator side-channel, keyed by EntryHash, that ClipFileSource
// instances consult lazily.
type ClipFileSet struct {
	XferEntries    []ClipFileEntry
	ForeignEntries []ClipFileEntry

	generators map[string]generatorPair
}

type generatorPair struct {
	Data StreamGenerator
	Rsrc StreamGenerator
}

// Generators returns the data/resource-fork generators registered for
// hash, for use by ClipFileSource/ClipFileSourceMZ.
func (s *ClipFileSet) Generators(hash string) (data, rsrc StreamGenerator) {
	p := s.generators[hash]
	return p.Data, p.Rsrc
}

// BuildClipFileSet implements spec.md §4.9's synthesis rules over a raw
// selection.
func BuildClipFileSet(selection []SelectedFile, opts ClipSetOptions) (*ClipFileSet, error) {
	set := &ClipFileSet{generators: make(map[string]generatorPair)}

	dirsSeen := make(map[string]bool) // case-sensitive, per spec.md §4.9

	for _, sel := range selection {
		hash := uuid.New().String()
		set.generators[hash] = generatorPair{Data: sel.DataGen, Rsrc: sel.RsrcGen}

		attribs := sel.Attribs
		outputLen := attribs.DataLength
		if sel.SidecarPeek != nil {
			outputLen = int64(len(sel.SidecarPeek))
			attribs.RsrcLength = outputLen
		}

		xfer := ClipFileEntry{
			FSType:       sel.FSType,
			Part:         arcfs.PartDataFork,
			Attribs:      attribs,
			ExtractPath:  attribs.FullPath,
			OutputLength: attribs.DataLength,
			EntryHash:    hash,
		}
		set.XferEntries = append(set.XferEntries, xfer)

		if !opts.StripPaths {
			synthesizeDirEntries(set, attribs.FullPath, string(attribs.PathSeparator), dirsSeen)
		}

		foreign := xfer
		foreign.ExtractPath = adjustForeignPath(attribs)

		if opts.Export != nil && opts.Export.Registry != nil {
			sample := sel.SidecarPeek
			conv := opts.Export.Registry.Best(attribs, sample)
			if conv == nil {
				continue // "entries that no converter can handle are silently dropped"
			}
			if ext := conv.Extension(); ext != "" {
				foreign.ExtractPath = strings.TrimSuffix(foreign.ExtractPath, path.Ext(foreign.ExtractPath)) + ext
			}
		}

		set.ForeignEntries = append(set.ForeignEntries, foreign)
	}

	sort.SliceStable(set.ForeignEntries, func(i, j int) bool {
		return set.ForeignEntries[i].ExtractPath < set.ForeignEntries[j].ExtractPath
	})
	return set, nil
}

// synthesizeDirEntries appends a placeholder ClipFileEntry (IsDirectory
// true, no stream generator) for every intermediate directory component
// of fullPath not already seen, so pastes into shells that don't
// auto-create directories still work.
func synthesizeDirEntries(set *ClipFileSet, fullPath, sep string, seen map[string]bool) {
	if sep == "" {
		return
	}
	comps := strings.Split(fullPath, sep)
	if len(comps) <= 1 {
		return
	}
	var cur string
	for _, c := range comps[:len(comps)-1] {
		if cur == "" {
			cur = c
		} else {
			cur = cur + sep + c
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		set.ForeignEntries = append(set.ForeignEntries, ClipFileEntry{
			Attribs:     arcfs.FileAttribs{FullPath: cur, FilenameOnly: c, IsDirectory: true, RsrcLength: -1},
			ExtractPath: cur,
			OutputLength: -1,
		})
	}
}

func adjustForeignPath(a arcfs.FileAttribs) string {
	return a.FullPath
}
