package appledouble

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	arcfs "github.com/retropack/arcengine/fs"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	attribs := arcfs.FileAttribs{
		FullPath:     "GAME.SHK",
		FilenameOnly: "GAME.SHK",
		ProDOSType:   0x06,
		AuxType:      0x2000,
		HFSType:      0x42494E41,
		HFSCreator:   0x70646F73,
		ModWhen:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CreateWhen:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rsrc := []byte("resource fork bytes")

	c := FromAttribs(attribs, rsrc, true)
	require.True(t, c.IsDouble())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))

	decoded, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.True(t, decoded.IsDouble())
	require.Equal(t, rsrc, decoded.RsrcFork)

	back := ToAttribs(decoded, "GAME.SHK")
	require.Equal(t, attribs.ProDOSType, back.ProDOSType)
	require.Equal(t, attribs.AuxType, back.AuxType)
	require.Equal(t, attribs.HFSType, back.HFSType)
	require.Equal(t, attribs.HFSCreator, back.HFSCreator)
	require.True(t, attribs.ModWhen.Equal(back.ModWhen))
}

func TestEncodeSingleHasNoDataOrResourceConfusion(t *testing.T) {
	attribs := arcfs.FileAttribs{FullPath: "x", FilenameOnly: "x"}
	c := FromAttribs(attribs, []byte("rsrc"), false)
	require.False(t, c.IsDouble())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))
	decoded, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.False(t, decoded.IsDouble())
	require.Empty(t, decoded.DataFork)
	require.Equal(t, []byte("rsrc"), decoded.RsrcFork)
}

func TestNoDateSentinelRoundTrips(t *testing.T) {
	attribs := arcfs.FileAttribs{FullPath: "x", FilenameOnly: "x", ModWhen: arcfs.NoDate}
	c := FromAttribs(attribs, nil, true)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))
	decoded, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	back := ToAttribs(decoded, "x")
	require.True(t, back.ModWhen.Equal(arcfs.NoDate) || back.ModWhen.IsZero())
}
