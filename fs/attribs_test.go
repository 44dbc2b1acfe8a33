package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasRsrcForkTracksNonNegativeLength(t *testing.T) {
	require.True(t, FileAttribs{RsrcLength: 0}.HasRsrcFork())
	require.True(t, FileAttribs{RsrcLength: 100}.HasRsrcFork())
	require.False(t, FileAttribs{RsrcLength: -1}.HasRsrcFork())
}

func TestCloneIsIndependentValue(t *testing.T) {
	a := FileAttribs{FullPath: "a", ProDOSType: 0x04}
	b := a.Clone()
	b.FullPath = "b"
	require.Equal(t, "a", a.FullPath)
	require.Equal(t, "b", b.FullPath)
}
