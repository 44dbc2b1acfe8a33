package clip

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retropack/arcengine/operations"
	"github.com/retropack/arcengine/zipfmt"

	arcfs "github.com/retropack/arcengine/fs"
)

func TestClipPasteWorkerAddsXferEntriesToArchive(t *testing.T) {
	sel := []SelectedFile{{
		Attribs: arcfs.FileAttribs{FullPath: "a.txt", FilenameOnly: "a.txt", PathSeparator: '/'},
		DataGen: genFromBytes([]byte("hello")),
	}}
	set, err := BuildClipFileSet(sel, ClipSetOptions{})
	require.NoError(t, err)

	worker := &ClipPasteWorker{Set: set}
	dst := zipfmt.NewEmpty()
	result, err := worker.AddFilesToArchive(context.Background(), dst, arcfs.NopFunc, operations.AddOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	refs, err := dst.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	rc, err := dst.OpenPart(context.Background(), refs[0], arcfs.PartDataFork)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestParentDirWithNoSeparator(t *testing.T) {
	a := arcfs.FileAttribs{FullPath: "flatname", PathSeparator: arcfs.NoSeparator}
	require.Equal(t, "", parentDir(a))
}

func TestParentDirWithSeparator(t *testing.T) {
	a := arcfs.FileAttribs{FullPath: "sub/dir/file.txt", PathSeparator: '/'}
	require.Equal(t, "sub/dir", parentDir(a))
}

func TestParentDirAtRoot(t *testing.T) {
	a := arcfs.FileAttribs{FullPath: "file.txt", PathSeparator: '/'}
	require.Equal(t, "", parentDir(a))
}
