// Package maczip implements the MacZip pairing convention (spec.md §4.3):
// a ZIP archive entry carrying Mac resource-fork/Finder metadata as a
// second "__MACOSX/<dir>/._<name>" entry holding an AppleDouble header,
// alongside the primary "<dir>/<name>" data-fork entry.
package maczip

import (
	"bytes"
	"path"
	"strings"

	"github.com/retropack/arcengine/appledouble"
	arcfs "github.com/retropack/arcengine/fs"
)

// MacZipDirPrefix is the reserved top-level directory ZIP tools use to
// stash AppleDouble sidecars out of the way of the primary tree.
const MacZipDirPrefix = "__MACOSX"

// sidecarPrefix is the filename prefix AppleDouble uses on its on-disk
// header files, carried over unchanged into the ZIP sidecar entry name.
const sidecarPrefix = "._"

// GenerateMacZipName returns the __MACOSX-relative sidecar path that pairs
// with primaryPath, e.g. "sub/dir/name.bin" -> "__MACOSX/sub/dir/._name.bin".
// It returns ok=false when primaryPath already lives under a MacZipDirPrefix
// directory (at the top level or nested), since sidecars don't get sidecars
// of their own.
func GenerateMacZipName(primaryPath string) (sidecarPath string, ok bool) {
	clean := path.Clean(primaryPath)
	if strings.HasPrefix(clean, MacZipDirPrefix+"/") || strings.Contains(clean, "/"+MacZipDirPrefix+"/") {
		return "", false
	}
	dir, name := path.Split(primaryPath)
	return path.Join(MacZipDirPrefix, dir, sidecarPrefix+name), true
}

// IsMacZipHeader reports whether entryPath names an AppleDouble sidecar
// entry (i.e. lives under MacZipDirPrefix with a "._" basename), and if so
// returns the primary path it pairs with.
func IsMacZipHeader(entryPath string) (primaryPath string, ok bool) {
	rel, found := splitPrefix(entryPath)
	if !found {
		return "", false
	}
	dir, name := path.Split(rel)
	if !strings.HasPrefix(name, sidecarPrefix) {
		return "", false
	}
	return path.Join(dir, strings.TrimPrefix(name, sidecarPrefix)), true
}

func splitPrefix(entryPath string) (string, bool) {
	clean := path.Clean(entryPath)
	prefix := MacZipDirPrefix + "/"
	if !strings.HasPrefix(clean, prefix) {
		return "", false
	}
	return strings.TrimPrefix(clean, prefix), true
}

// SplitMacZipPath splits a ZIP-internal path into its directory and
// sidecar-relative components, mirroring the split GenerateMacZipName
// performs, for callers that need to reconstruct a primary path from a
// sidecar one without re-deriving it from IsMacZipHeader.
func SplitMacZipPath(entryPath string) (dir, base string) {
	return path.Split(entryPath)
}

// ExtractMacZipAttribs decodes an AppleDouble sidecar's bytes and returns
// the FileAttribs it carries (resource fork length, Finder/ProDOS type
// info, dates, comment), with FilenameOnly set from primaryName rather
// than the container's own RealName entry, since the ZIP primary entry's
// own name is authoritative (spec.md §4.3).
func ExtractMacZipAttribs(sidecarBytes []byte, primaryName string) (arcfs.FileAttribs, []byte, error) {
	r := bytes.NewReader(sidecarBytes)
	c, err := appledouble.Decode(r, int64(len(sidecarBytes)))
	if err != nil {
		return arcfs.FileAttribs{}, nil, err
	}
	return appledouble.ToAttribs(c, primaryName), c.RsrcFork, nil
}

// BuildMacZipSidecar encodes attribs and an optional resource fork into the
// AppleDouble bytes a MacZip sidecar entry should hold.
func BuildMacZipSidecar(attribs arcfs.FileAttribs, rsrc []byte) ([]byte, error) {
	c := appledouble.FromAttribs(attribs, rsrc, true)
	var out bytes.Buffer
	if err := appledouble.Encode(&out, c); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
