package operations

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retropack/arcengine/appledouble"
	arcfs "github.com/retropack/arcengine/fs"
	"github.com/retropack/arcengine/partsource"
	"github.com/retropack/arcengine/zipfmt"
)

// commitAndReopen closes out the transaction AddFiles left open, rebuilding
// a fresh Archive handle from the committed bytes so a later test step can
// start a transaction of its own.
func commitAndReopen(t *testing.T, archive *zipfmt.Archive) *zipfmt.Archive {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, archive.CommitTransaction(context.Background(), &buf))
	reopened, err := zipfmt.Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return reopened
}

func plainEntry(name string, data []byte) AddFileEntry {
	return AddFileEntry{
		HasData:        true,
		DataSource:     &partsource.MemoryBacked{Data: data},
		DataSourceKind: SourcePlain,
		StorageName:    name,
		SourcePathHint: name,
	}
}

func TestAddFilesBasicAdd(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	entries := []AddFileEntry{plainEntry("a.txt", []byte("hello")), plainEntry("b.txt", []byte("world"))}
	result, err := AddFiles(ctx, archive, entries, arcfs.NopFunc, AddOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, result.Added)
	require.Equal(t, 0, result.Skipped)
	require.Equal(t, 0, result.Overwritten)

	refs, err := archive.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
}

func TestAddFilesDryRunDoesNotMutate(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	entries := []AddFileEntry{plainEntry("a.txt", []byte("hello"))}
	result, err := AddFiles(ctx, archive, entries, arcfs.NopFunc, AddOptions{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	refs, err := archive.Entries(ctx)
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestAddFilesOverwriteOnNameCollision(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	_, err := AddFiles(ctx, archive, []AddFileEntry{plainEntry("a.txt", []byte("v1"))}, arcfs.NopFunc, AddOptions{})
	require.NoError(t, err)
	archive = commitAndReopen(t, archive)

	result, err := AddFiles(ctx, archive, []AddFileEntry{plainEntry("a.txt", []byte("v2"))}, arcfs.NopFunc, AddOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Overwritten)
	require.Equal(t, 0, result.Added)

	refs, err := archive.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	rc, err := archive.OpenPart(ctx, refs[0], arcfs.PartDataFork)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))
}

func TestAddFilesSkipOnCollisionWhenCallbackSaysSkip(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	_, err := AddFiles(ctx, archive, []AddFileEntry{plainEntry("a.txt", []byte("v1"))}, arcfs.NopFunc, AddOptions{})
	require.NoError(t, err)
	archive = commitAndReopen(t, archive)

	skipCb := func(f arcfs.Facts) arcfs.Result {
		if f.Reason == arcfs.ReasonFileNameExists {
			return arcfs.ResultSkip
		}
		return arcfs.ResultContinue
	}
	result, err := AddFiles(ctx, archive, []AddFileEntry{plainEntry("a.txt", []byte("v2"))}, skipCb, AddOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)

	refs, _ := archive.Entries(ctx)
	require.Len(t, refs, 1)
	rc, _ := archive.OpenPart(ctx, refs[0], arcfs.PartDataFork)
	data, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "v1", string(data))
}

func TestAddFilesCancelStopsBatch(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	cancelCb := func(f arcfs.Facts) arcfs.Result {
		if f.Reason == arcfs.ReasonQueryCancel {
			return arcfs.ResultCancel
		}
		return arcfs.ResultContinue
	}
	entries := []AddFileEntry{plainEntry("a.txt", []byte("1")), plainEntry("b.txt", []byte("2"))}
	result, err := AddFiles(ctx, archive, entries, cancelCb, AddOptions{})
	require.NoError(t, err)
	require.True(t, result.WasCancelled)

	refs, _ := archive.Entries(ctx)
	require.Empty(t, refs)
}

func TestAddFilesMacZipPairsResourceFork(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	entry := AddFileEntry{
		HasData:        true,
		DataSource:     &partsource.MemoryBacked{Data: []byte("data")},
		HasRsrc:        true,
		RsrcSource:     &partsource.MemoryBacked{Data: []byte("rsrc")},
		StorageName:    "prog",
		SourcePathHint: "prog",
	}
	result, err := AddFiles(ctx, archive, []AddFileEntry{entry}, arcfs.NopFunc, AddOptions{MacZip: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	refs, err := archive.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2) // primary + MacZip sidecar
}

func TestAddFilesDecodesAppleSingleSource(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()

	container := appledouble.Container{
		Magic:      appledouble.MagicSingle,
		RealName:   "prog",
		FinderInfo: &appledouble.FinderInfo{Type: 0x70726f67, Creator: 0x70434b54},
		DataFork:   []byte("data fork bytes"),
		RsrcFork:   []byte("rsrc fork bytes"),
	}
	var encoded bytes.Buffer
	require.NoError(t, appledouble.Encode(&encoded, container))

	entry := AddFileEntry{
		DataSource:     &partsource.MemoryBacked{Data: encoded.Bytes()},
		DataSourceKind: SourceAppleSingle,
		StorageName:    "prog",
		SourcePathHint: "prog",
	}
	result, err := AddFiles(ctx, archive, []AddFileEntry{entry}, arcfs.NopFunc, AddOptions{MacZip: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	refs, err := archive.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2) // primary data fork + MacZip sidecar carrying the resource fork

	var dataRef, sidecarRef arcfs.EntryRef
	for _, ref := range refs {
		if ref.Attribs().FullPath == "prog" {
			dataRef = ref
		} else {
			sidecarRef = ref
		}
	}
	require.NotNil(t, dataRef)
	require.NotNil(t, sidecarRef)

	rc, err := archive.OpenPart(ctx, dataRef, arcfs.PartDataFork)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	require.Equal(t, "data fork bytes", string(data))
	require.Equal(t, uint32(0x70726f67), dataRef.Attribs().HFSType)

	sidecarBytes, err := io.ReadAll(mustOpenPart(t, ctx, archive, sidecarRef))
	require.NoError(t, err)
	decodedAttribs, rsrc, err := extractedSidecarRsrc(sidecarBytes)
	require.NoError(t, err)
	require.Equal(t, "rsrc fork bytes", string(rsrc))
	require.Equal(t, uint32(0x70726f67), decodedAttribs.HFSType)
}

func mustOpenPart(t *testing.T, ctx context.Context, archive *zipfmt.Archive, ref arcfs.EntryRef) io.Reader {
	t.Helper()
	rc, err := archive.OpenPart(ctx, ref, arcfs.PartDataFork)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return rc
}

func extractedSidecarRsrc(sidecarBytes []byte) (arcfs.FileAttribs, []byte, error) {
	c, err := appledouble.Decode(bytes.NewReader(sidecarBytes), int64(len(sidecarBytes)))
	if err != nil {
		return arcfs.FileAttribs{}, nil, err
	}
	return appledouble.ToAttribs(c, "prog"), c.RsrcFork, nil
}

func TestAddFilesNoopOnEmptyInput(t *testing.T) {
	archive := zipfmt.NewEmpty()
	ctx := context.Background()
	result, err := AddFiles(ctx, archive, nil, arcfs.NopFunc, AddOptions{})
	require.NoError(t, err)
	require.Equal(t, arcfs.WorkerResult{}, result)
}
