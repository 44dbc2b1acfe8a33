package partsource

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retropack/arcengine/appledouble"

	arcfs "github.com/retropack/arcengine/fs"
)

func TestGeneratedADFEncodesDoubleHeader(t *testing.T) {
	attribs := arcfs.FileAttribs{FullPath: "prog", FilenameOnly: "prog", ProDOSType: 0x06}
	s := &GeneratedADF{Attribs: attribs, RsrcFork: []byte("rsrc-data"), Double: true}
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	data, err := io.ReadAll(readFunc(s.Read))
	require.NoError(t, err)

	decoded, err := appledouble.Decode(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.True(t, decoded.IsDouble())
	require.Equal(t, []byte("rsrc-data"), decoded.RsrcFork)
}

func TestGeneratedADFRewindReplaysSameBytes(t *testing.T) {
	attribs := arcfs.FileAttribs{FullPath: "x", FilenameOnly: "x"}
	s := &GeneratedADF{Attribs: attribs, Double: true}
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))

	first, err := io.ReadAll(readFunc(s.Read))
	require.NoError(t, err)

	require.NoError(t, s.Rewind(ctx))
	second, err := io.ReadAll(readFunc(s.Read))
	require.NoError(t, err)
	require.Equal(t, first, second)
}
