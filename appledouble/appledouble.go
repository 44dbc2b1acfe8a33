// Package appledouble encodes and decodes the AppleSingle/AppleDouble wire
// format (the "ADF"/"AS" preserve modes of spec.md §4.7, and the sidecar
// format MacZip pairs with a ZIP primary entry, spec.md §4.3).
//
// AppleSingle packs both forks plus metadata into one file; AppleDouble
// splits them into a bare data-fork file and a "._name" header file that
// holds everything else. Both share one entry-based container format; the
// magic number is the only difference between them.
package appledouble

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	arcfs "github.com/retropack/arcengine/fs"
)

// Magic numbers distinguishing AppleSingle from AppleDouble containers.
const (
	MagicSingle uint32 = 0x00051600
	MagicDouble uint32 = 0x00051607
	Version2    uint32 = 0x00020000
)

// Entry IDs used by the entries this package reads/writes. The full format
// defines more (icon, comment, ...); the engine only needs these.
const (
	EntryDataFork    uint32 = 1
	EntryResourceFork uint32 = 2
	EntryRealName    uint32 = 3
	EntryComment     uint32 = 4
	EntryFileDates   uint32 = 8
	EntryFinderInfo  uint32 = 9
	EntryProDOSInfo  uint32 = 11
)

const headerFixedLen = 26 // magic(4) + version(4) + filler(16) + numEntries(2)
const entryDescLen = 12   // id(4) + offset(4) + length(4)

// FinderInfo is the 32-byte Finder info block (EntryFinderInfo); only the
// type/creator fields the engine cares about are exposed, the rest is
// passed through opaquely via Extra.
type FinderInfo struct {
	Type    uint32
	Creator uint32
	Flags   uint16
	Extra   [22]byte // remaining Finder info bytes, preserved round-trip
}

// ProDOSInfo is the ProDOS-specific file-info entry (EntryProDOSInfo): file
// type, aux type, and access flags, each as used on GS/OS-produced ADF
// files.
type ProDOSInfo struct {
	Access  uint16
	FileType uint16
	AuxType uint32
}

// FileDates is the four-timestamp EntryFileDates block: creation,
// modification, backup, access, each seconds-since-2000-01-01 (or the
// format's "no date" sentinel 0x80000000).
type FileDates struct {
	Create, Modify, Backup, Access time.Time
}

var noDateRaw int32 = -0x80000000 // 0x80000000 as signed

const epochOffset = 946684800 // seconds between 1970-01-01 and 2000-01-01 UTC

func timeToADFSeconds(t time.Time) int32 {
	if t.IsZero() || t.Equal(arcfs.NoDate) {
		return noDateRaw
	}
	return int32(t.Unix() - epochOffset)
}

func adfSecondsToTime(v int32) time.Time {
	if v == noDateRaw {
		return arcfs.NoDate
	}
	return time.Unix(int64(v)+epochOffset, 0).UTC()
}

// Container is a decoded or to-be-encoded AppleSingle/AppleDouble record.
type Container struct {
	Magic      uint32
	RealName   string
	Comment    string
	FinderInfo *FinderInfo
	ProDOSInfo *ProDOSInfo
	Dates      *FileDates
	DataFork   []byte // absent (nil) for AppleDouble headers
	RsrcFork   []byte
}

// IsDouble reports whether c is (or will be encoded as) an AppleDouble
// header rather than a combined AppleSingle file.
func (c Container) IsDouble() bool { return c.Magic == MagicDouble }

type rawEntry struct {
	id     uint32
	data   []byte
}

// Encode writes c in AppleSingle/AppleDouble wire format to w.
func Encode(w io.Writer, c Container) error {
	var entries []rawEntry

	if c.RealName != "" {
		entries = append(entries, rawEntry{EntryRealName, []byte(c.RealName)})
	}
	if c.Comment != "" {
		entries = append(entries, rawEntry{EntryComment, []byte(c.Comment)})
	}
	if c.Dates != nil {
		buf := make([]byte, 16)
		binary.BigEndian.PutUint32(buf[0:4], uint32(timeToADFSeconds(c.Dates.Create)))
		binary.BigEndian.PutUint32(buf[4:8], uint32(timeToADFSeconds(c.Dates.Modify)))
		binary.BigEndian.PutUint32(buf[8:12], uint32(timeToADFSeconds(c.Dates.Backup)))
		binary.BigEndian.PutUint32(buf[12:16], uint32(timeToADFSeconds(c.Dates.Access)))
		entries = append(entries, rawEntry{EntryFileDates, buf})
	}
	if c.FinderInfo != nil {
		buf := make([]byte, 32)
		binary.BigEndian.PutUint32(buf[0:4], c.FinderInfo.Type)
		binary.BigEndian.PutUint32(buf[4:8], c.FinderInfo.Creator)
		binary.BigEndian.PutUint16(buf[8:10], c.FinderInfo.Flags)
		copy(buf[10:32], c.FinderInfo.Extra[:])
		entries = append(entries, rawEntry{EntryFinderInfo, buf})
	}
	if c.ProDOSInfo != nil {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint16(buf[0:2], c.ProDOSInfo.Access)
		binary.BigEndian.PutUint16(buf[2:4], c.ProDOSInfo.FileType)
		binary.BigEndian.PutUint32(buf[4:8], c.ProDOSInfo.AuxType)
		entries = append(entries, rawEntry{EntryProDOSInfo, buf})
	}
	if c.Magic == MagicSingle {
		entries = append(entries, rawEntry{EntryDataFork, c.DataFork})
	}
	entries = append(entries, rawEntry{EntryResourceFork, c.RsrcFork})

	var body bytes.Buffer
	header := make([]byte, headerFixedLen)
	binary.BigEndian.PutUint32(header[0:4], c.Magic)
	binary.BigEndian.PutUint32(header[4:8], Version2)
	binary.BigEndian.PutUint16(header[24:26], uint16(len(entries)))
	body.Write(header)

	offset := uint32(headerFixedLen + entryDescLen*len(entries))
	descs := make([]byte, 0, entryDescLen*len(entries))
	var payload bytes.Buffer
	for _, e := range entries {
		d := make([]byte, entryDescLen)
		binary.BigEndian.PutUint32(d[0:4], e.id)
		binary.BigEndian.PutUint32(d[4:8], offset)
		binary.BigEndian.PutUint32(d[8:12], uint32(len(e.data)))
		descs = append(descs, d...)
		payload.Write(e.data)
		offset += uint32(len(e.data))
	}
	body.Write(descs)
	body.Write(payload.Bytes())

	_, err := w.Write(body.Bytes())
	return err
}

// Decode reads an AppleSingle/AppleDouble container from r (which must
// support random access via ReadAt/Size, since entries are offset-addressed).
func Decode(r io.ReaderAt, size int64) (Container, error) {
	var c Container
	hdr := make([]byte, headerFixedLen)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return c, fmt.Errorf("appledouble: short header: %w", err)
	}
	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != MagicSingle && magic != MagicDouble {
		return c, fmt.Errorf("appledouble: bad magic %#x", magic)
	}
	c.Magic = magic
	numEntries := binary.BigEndian.Uint16(hdr[24:26])

	descBuf := make([]byte, entryDescLen*int(numEntries))
	if _, err := r.ReadAt(descBuf, headerFixedLen); err != nil {
		return c, fmt.Errorf("appledouble: short entry table: %w", err)
	}

	for i := 0; i < int(numEntries); i++ {
		d := descBuf[i*entryDescLen : (i+1)*entryDescLen]
		id := binary.BigEndian.Uint32(d[0:4])
		off := binary.BigEndian.Uint32(d[4:8])
		length := binary.BigEndian.Uint32(d[8:12])
		if length == 0 {
			switch id {
			case EntryDataFork:
				c.DataFork = []byte{}
			case EntryResourceFork:
				c.RsrcFork = []byte{}
			}
			continue
		}
		buf := make([]byte, length)
		if _, err := r.ReadAt(buf, int64(off)); err != nil {
			return c, fmt.Errorf("appledouble: entry %d short read: %w", id, err)
		}
		switch id {
		case EntryRealName:
			c.RealName = string(buf)
		case EntryComment:
			c.Comment = string(buf)
		case EntryDataFork:
			c.DataFork = buf
		case EntryResourceFork:
			c.RsrcFork = buf
		case EntryFileDates:
			if len(buf) >= 16 {
				c.Dates = &FileDates{
					Create: adfSecondsToTime(int32(binary.BigEndian.Uint32(buf[0:4]))),
					Modify: adfSecondsToTime(int32(binary.BigEndian.Uint32(buf[4:8]))),
					Backup: adfSecondsToTime(int32(binary.BigEndian.Uint32(buf[8:12]))),
					Access: adfSecondsToTime(int32(binary.BigEndian.Uint32(buf[12:16]))),
				}
			}
		case EntryFinderInfo:
			if len(buf) >= 10 {
				fi := &FinderInfo{
					Type:    binary.BigEndian.Uint32(buf[0:4]),
					Creator: binary.BigEndian.Uint32(buf[4:8]),
					Flags:   binary.BigEndian.Uint16(buf[8:10]),
				}
				if len(buf) >= 32 {
					copy(fi.Extra[:], buf[10:32])
				}
				c.FinderInfo = fi
			}
		case EntryProDOSInfo:
			if len(buf) >= 8 {
				c.ProDOSInfo = &ProDOSInfo{
					Access:   binary.BigEndian.Uint16(buf[0:2]),
					FileType: binary.BigEndian.Uint16(buf[2:4]),
					AuxType:  binary.BigEndian.Uint32(buf[4:8]),
				}
			}
		}
	}
	return c, nil
}

// FromAttribs builds a Container (AppleDouble header by default, no data
// fork) from a FileAttribs plus an optional resource fork. Used by both
// partsource.GeneratedADF (C2) and the MacZip pairing writer (C3).
func FromAttribs(a arcfs.FileAttribs, rsrc []byte, double bool) Container {
	magic := MagicDouble
	if !double {
		magic = MagicSingle
	}
	return Container{
		Magic:    magic,
		RealName: a.FilenameOnly,
		Comment:  a.Comment,
		Dates: &FileDates{
			Create: a.CreateWhen,
			Modify: a.ModWhen,
		},
		FinderInfo: &FinderInfo{
			Type:    a.HFSType,
			Creator: a.HFSCreator,
		},
		ProDOSInfo: &ProDOSInfo{
			Access:   uint16(a.Access),
			FileType: uint16(a.ProDOSType),
			AuxType:  uint32(a.AuxType),
		},
		RsrcFork: rsrc,
	}
}

// ToAttribs extracts the FileAttribs fields a Container carries, preserving
// the caller-supplied primary filename rather than the container's own
// RealName entry (spec.md §4.3's extract_mac_zip_attribs contract).
func ToAttribs(c Container, primaryName string) arcfs.FileAttribs {
	a := arcfs.FileAttribs{
		FilenameOnly: primaryName,
		RsrcLength:   -1,
	}
	if c.RsrcFork != nil {
		a.RsrcLength = int64(len(c.RsrcFork))
	}
	if c.FinderInfo != nil {
		a.HFSType = c.FinderInfo.Type
		a.HFSCreator = c.FinderInfo.Creator
	}
	if c.ProDOSInfo != nil {
		a.ProDOSType = byte(c.ProDOSInfo.FileType)
		a.AuxType = uint16(c.ProDOSInfo.AuxType)
		a.Access = arcfs.AccessFlags(c.ProDOSInfo.Access)
	}
	if c.Dates != nil {
		a.CreateWhen = c.Dates.Create
		a.ModWhen = c.Dates.Modify
	}
	a.Comment = c.Comment
	return a
}
