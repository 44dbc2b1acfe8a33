// Package typemap implements the canonical ProDOS↔HFS file-type mapping
// spec.md §4.6 requires Add/Copy/Extract to consult whenever a transfer
// crosses between a ProDOS-typed source/destination and an HFS-typed one.
package typemap

import (
	"fmt"
	"strconv"
)

type canonicalEntry struct {
	FileType byte
	AuxType  uint16

	HFSType    uint32
	HFSCreator uint32
}

// canonicalTable holds the well-known fixed ProDOS<->HFS type pairs; every
// entry here must satisfy Testable Property 8 (reversibility) exactly.
// Values follow the companion-file-type convention GS/OS and CiderPress-
// family tools use: a handful of fixed, named types map to a recognizable
// HFS type/creator, everything else falls through to the generic
// auxtype-embedding scheme below.
var canonicalTable = []canonicalEntry{
	{FileType: 0x04, AuxType: 0x0000, HFSType: fourCC("TEXT"), HFSCreator: fourCC("pdos")}, // TXT
	{FileType: 0x06, AuxType: 0x0000, HFSType: fourCC("BINA"), HFSCreator: fourCC("pdos")}, // BIN
	{FileType: 0xB0, AuxType: 0x0000, HFSType: fourCC("p\xB0\x00\x00"), HFSCreator: fourCC("pdos")}, // SRC
	{FileType: 0x0F, AuxType: 0x0000, HFSType: fourCC("fold"), HFSCreator: fourCC("MACS")}, // DIR
	{FileType: 0xFF, AuxType: 0x0000, HFSType: fourCC("PSYS"), HFSCreator: fourCC("pdos")}, // SYS
}

func fourCC(s string) uint32 {
	b := [4]byte{}
	copy(b[:], s)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func unFourCC(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// ProDOSToHFS maps a ProDOS (file_type, aux_type) pair to an HFS
// (type, creator) pair. Canonical pairs use the fixed table above;
// anything else uses the generic "p" + hex(file_type) type with the
// aux_type embedded verbatim (as ASCII hex) in the creator, which is
// itself reversible by HFSToProDOS.
func ProDOSToHFS(fileType byte, auxType uint16) (hfsType, hfsCreator uint32) {
	for _, e := range canonicalTable {
		if e.FileType == fileType && e.AuxType == auxType {
			return e.HFSType, e.HFSCreator
		}
	}
	return genericHFSType(fileType), genericHFSCreator(auxType)
}

// HFSToProDOS is ProDOSToHFS's inverse.
func HFSToProDOS(hfsType, hfsCreator uint32) (fileType byte, auxType uint16) {
	for _, e := range canonicalTable {
		if e.HFSType == hfsType && e.HFSCreator == hfsCreator {
			return e.FileType, e.AuxType
		}
	}
	if ft, ok := parseGenericHFSType(hfsType); ok {
		return ft, parseGenericHFSCreator(hfsCreator)
	}
	return 0, 0
}

func genericHFSType(fileType byte) uint32 {
	return fourCC(fmt.Sprintf("p%03X", fileType))
}

func genericHFSCreator(auxType uint16) uint32 {
	return fourCC(fmt.Sprintf("%04X", auxType))
}

func parseGenericHFSType(hfsType uint32) (byte, bool) {
	b := unFourCC(hfsType)
	if b[0] != 'p' {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b[1:]), 16, 16)
	if err != nil || v > 0xFF {
		return 0, false
	}
	return byte(v), true
}

func parseGenericHFSCreator(hfsCreator uint32) uint16 {
	b := unFourCC(hfsCreator)
	v, err := strconv.ParseUint(string(b[:]), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
