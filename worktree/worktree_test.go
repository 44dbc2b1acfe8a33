package worktree

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retropack/arcengine/diskarc"
	"github.com/retropack/arcengine/zipfmt"
)

func tempHostFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "host-*.zip")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestNewNodeLinksChildToParent(t *testing.T) {
	root := NewNode("root", "host-file", nil, nil, nil)
	archive := ArchiveObject{Archive: zipfmt.NewEmpty()}
	child := NewNode("inner.zip", "zip", archive, nil, root)

	require.Same(t, root, child.Parent)
	require.Contains(t, root.Children, child)
	require.Equal(t, StatusUnknown, child.Status)
}

func TestNearestDANodeWalksToAncestor(t *testing.T) {
	hostFile := tempHostFile(t)
	daRoot := diskarc.NewHostRoot(hostFile.Name(), hostFile)

	root := NewNode("root", "host-file", nil, daRoot, nil)
	child := NewNode("inner", "archive", nil, nil, root)
	grandchild := NewNode("leaf", "entry", nil, nil, child)

	require.Same(t, daRoot, grandchild.NearestDANode())
	require.Same(t, daRoot, child.NearestDANode())
	require.Same(t, daRoot, root.NearestDANode())
}

func TestNearestDANodeNilWithoutAncestor(t *testing.T) {
	root := NewNode("root", "host-file", nil, nil, nil)
	require.Nil(t, root.NearestDANode())
}

func TestStatusStringer(t *testing.T) {
	require.Equal(t, "ok", StatusOK.String())
	require.Equal(t, "dubious", StatusDubious.String())
	require.Equal(t, "warning", StatusWarning.String())
	require.Equal(t, "error", StatusError.String())
	require.Equal(t, "unknown", StatusUnknown.String())
}
