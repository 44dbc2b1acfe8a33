package operations

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	arcfs "github.com/retropack/arcengine/fs"
	"github.com/retropack/arcengine/zipfmt"
)

func TestCopyToArchiveStagesCopiedData(t *testing.T) {
	dst := zipfmt.NewEmpty()
	ctx := context.Background()

	entries := []CopyEntry{{
		Attribs:     arcfs.FileAttribs{FullPath: "a.txt", FilenameOnly: "a.txt"},
		OpenData:    dataOpener([]byte("hello")),
		StorageName: "a.txt",
	}}
	result, err := CopyToArchive(ctx, dst, entries, arcfs.NopFunc, CopyOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	refs, err := dst.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	rc, err := dst.OpenPart(ctx, refs[0], arcfs.PartDataFork)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestCopyToArchiveMacZipPairsResourceFork(t *testing.T) {
	dst := zipfmt.NewEmpty()
	ctx := context.Background()

	entries := []CopyEntry{{
		Attribs:     arcfs.FileAttribs{FullPath: "prog", FilenameOnly: "prog"},
		OpenData:    dataOpener([]byte("data")),
		OpenRsrc:    dataOpener([]byte("rsrc")),
		StorageName: "prog",
	}}
	result, err := CopyToArchive(ctx, dst, entries, arcfs.NopFunc, CopyOptions{MacZip: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	refs, err := dst.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
}

func TestCopyToArchiveCancelStopsBatch(t *testing.T) {
	dst := zipfmt.NewEmpty()
	ctx := context.Background()

	cancelCb := func(f arcfs.Facts) arcfs.Result {
		if f.Reason == arcfs.ReasonQueryCancel {
			return arcfs.ResultCancel
		}
		return arcfs.ResultContinue
	}
	entries := []CopyEntry{{
		Attribs:     arcfs.FileAttribs{FullPath: "a.txt", FilenameOnly: "a.txt"},
		OpenData:    dataOpener([]byte("hello")),
		StorageName: "a.txt",
	}}
	result, err := CopyToArchive(ctx, dst, entries, cancelCb, CopyOptions{})
	require.NoError(t, err)
	require.True(t, result.WasCancelled)

	refs, err := dst.Entries(ctx)
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestWrapDOSTextSetsHighBitIntoDOS(t *testing.T) {
	open := dataOpener([]byte{0x41, 0x00, 0x42})
	wrapped := wrapDOSText(open, false, true, true)
	r, err := wrapped(context.Background())
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, []byte{0xC1, 0x00, 0xC2}, data)
}

func TestWrapDOSTextClearsHighBitOutOfDOS(t *testing.T) {
	open := dataOpener([]byte{0xC1, 0x00, 0xC2})
	wrapped := wrapDOSText(open, true, false, true)
	r, err := wrapped(context.Background())
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, []byte{0x41, 0x00, 0x42}, data)
}

func TestWrapDOSTextNoopWhenBothSidesSameKind(t *testing.T) {
	open := dataOpener([]byte{0x41})
	wrapped := wrapDOSText(open, true, true, true)
	r, err := wrapped(context.Background())
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, []byte{0x41}, data)
}
