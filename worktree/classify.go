package worktree

import (
	"path"
	"strings"

	arcfs "github.com/retropack/arcengine/fs"
)

// floppy140KSize is the exact byte length of an unadorned 140K Apple II
// floppy disk image, one of the heuristic signals spec.md §4.5 names.
const floppy140KSize = 143360

// diskImageExtensions is the extension set that identifies a disk-image
// child by filename alone, per spec.md §4.5.
var diskImageExtensions = map[string]bool{
	".po": true, ".dsk": true, ".woz": true, ".2mg": true, ".sdk": true, ".shk": true,
	".d13": true, ".nib": true, ".hdv": true,
}

// archiveExtensions is the extension set that identifies an archive child
// by filename alone, per spec.md §4.5.
var archiveExtensions = map[string]bool{
	".zip": true, ".shk": true, ".sdk": true, ".bny": true, ".bqy": true, ".gz": true, ".bxy": true,
}

// prodosLBRType is the ProDOS file type code ("LBR") some disk-image
// containers (NuFX-wrapped disk images) use.
const prodosLBRType = 0xE0

// lbrDiskImageAuxCodes are the well-known ProDOS aux-type values an LBR
// entry carries when it wraps a disk image rather than an ordinary
// library file.
var lbrDiskImageAuxCodes = map[uint16]bool{0x8002: true, 0x8003: true}

// knownDiskImageHFSSignatures pairs HFS (type, creator) fourCC values
// known to mark disk-image files (DiskCopy and compatible utilities).
var knownDiskImageHFSSignatures = map[[2]uint32]bool{
	{fourCC("dImg"), fourCC("dCpy")}: true,
	{fourCC("rohd"), fourCC("ddsk")}: true,
}

func fourCC(s string) uint32 {
	b := [4]byte{}
	copy(b[:], s)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// IsDiskImage applies spec.md §4.5's child-identification rules for the
// disk-image class. isDiskImageArchiveEntry is true when the entry's
// archive format already tags it explicitly (e.g. a NuFX disk-image
// record); extension should be the entry's effective extension (see
// EffectiveExtension).
func IsDiskImage(attribs arcfs.FileAttribs, extension string, isDiskImageArchiveEntry bool) bool {
	if isDiskImageArchiveEntry {
		return true
	}
	if attribs.ProDOSType == prodosLBRType && lbrDiskImageAuxCodes[attribs.AuxType] {
		return true
	}
	if knownDiskImageHFSSignatures[[2]uint32{attribs.HFSType, attribs.HFSCreator}] {
		return true
	}
	if diskImageExtensions[strings.ToLower(extension)] {
		return true
	}
	if attribs.DataLength == floppy140KSize {
		return true
	}
	return false
}

// IsArchive applies spec.md §4.5's child-identification rules for the
// archive class.
func IsArchive(extension string) bool {
	return archiveExtensions[strings.ToLower(extension)]
}

// EffectiveExtension returns the extension used for classification
// purposes: for an ordinary entry this is just its filename extension;
// gzip's effective extension comes from the outer filename with ".gz"
// stripped, per spec.md §4.5.
func EffectiveExtension(name string, isGZipOuter bool) string {
	if isGZipOuter {
		trimmed := strings.TrimSuffix(name, path.Ext(name))
		return path.Ext(trimmed)
	}
	return path.Ext(name)
}

// NuFXDiskImageExtension is the extension forced for NuFX disk-image
// entries regardless of their stored name, per spec.md §4.5.
const NuFXDiskImageExtension = ".po"
