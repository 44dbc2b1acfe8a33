package zipfmt

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retropack/arcengine/partsource"

	arcfs "github.com/retropack/arcengine/fs"
)

func addOne(t *testing.T, a *Archive, name string, data []byte) {
	t.Helper()
	ctx := context.Background()
	_, err := a.AddEntry(ctx, arcfs.FileAttribs{FullPath: name, FilenameOnly: name, RsrcLength: -1}, &partsource.MemoryBacked{Data: data}, nil)
	require.NoError(t, err)
}

func TestAddCommitReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewEmpty()

	require.NoError(t, a.StartTransaction(ctx))
	addOne(t, a, "hello.txt", []byte("hello world"))
	addOne(t, a, "dir/nested.txt", []byte("nested"))

	var buf bytes.Buffer
	require.NoError(t, a.CommitTransaction(ctx, &buf))

	require.NoError(t, a.ReopenStream(ctx, bytes.NewReader(buf.Bytes())))

	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := make(map[string]arcfs.EntryRef, len(entries))
	for _, e := range entries {
		byName[e.Attribs().FullPath] = e
	}

	rc, err := a.OpenPart(ctx, byName["hello.txt"], arcfs.PartDataFork)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))

	rc, err = a.OpenPart(ctx, byName["dir/nested.txt"], arcfs.PartDataFork)
	require.NoError(t, err)
	got, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "nested", string(got))
}

func TestCommitPreservesUnchangedEntriesAcrossTransactions(t *testing.T) {
	ctx := context.Background()
	a := NewEmpty()

	require.NoError(t, a.StartTransaction(ctx))
	addOne(t, a, "keep.txt", []byte("unchanged"))
	var buf1 bytes.Buffer
	require.NoError(t, a.CommitTransaction(ctx, &buf1))
	require.NoError(t, a.ReopenStream(ctx, bytes.NewReader(buf1.Bytes())))

	require.NoError(t, a.StartTransaction(ctx))
	addOne(t, a, "new.txt", []byte("added later"))
	var buf2 bytes.Buffer
	require.NoError(t, a.CommitTransaction(ctx, &buf2))
	require.NoError(t, a.ReopenStream(ctx, bytes.NewReader(buf2.Bytes())))

	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCancelTransactionRestoresPriorState(t *testing.T) {
	ctx := context.Background()
	a := NewEmpty()

	require.NoError(t, a.StartTransaction(ctx))
	addOne(t, a, "kept.txt", []byte("x"))
	var buf bytes.Buffer
	require.NoError(t, a.CommitTransaction(ctx, &buf))
	require.NoError(t, a.ReopenStream(ctx, bytes.NewReader(buf.Bytes())))

	require.NoError(t, a.StartTransaction(ctx))
	addOne(t, a, "abandoned.txt", []byte("y"))
	require.NoError(t, a.CancelTransaction(ctx))

	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "kept.txt", entries[0].Attribs().FullPath)
}

func TestAdjustFileNameIsIdempotent(t *testing.T) {
	a := NewEmpty()
	name := `weird:name?.txt`
	once := a.AdjustFileName(name)
	twice := a.AdjustFileName(once)
	require.Equal(t, once, twice)
}

func TestAddEntryRejectsResourceFork(t *testing.T) {
	ctx := context.Background()
	a := NewEmpty()
	require.NoError(t, a.StartTransaction(ctx))
	_, err := a.AddEntry(ctx, arcfs.FileAttribs{FullPath: "x"}, &partsource.MemoryBacked{Data: []byte("a")}, &partsource.MemoryBacked{Data: []byte("b")})
	require.ErrorIs(t, err, arcfs.ErrNoResourceForks)
}

func TestAddEntryRequiresOpenTransaction(t *testing.T) {
	ctx := context.Background()
	a := NewEmpty()
	_, err := a.AddEntry(ctx, arcfs.FileAttribs{FullPath: "x"}, &partsource.MemoryBacked{Data: []byte("a")}, nil)
	require.ErrorIs(t, err, arcfs.ErrNoTransaction)
}
