package operations

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	arcfs "github.com/retropack/arcengine/fs"
)

func dataOpener(data []byte) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(nopReaderFrom(data)), nil
	}
}

func nopReaderFrom(data []byte) io.Reader {
	return &staticReader{data: data}
}

type staticReader struct {
	data []byte
	pos  int
}

func (r *staticReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestExtractFilesPreserveNone(t *testing.T) {
	dir := t.TempDir()
	entries := []ExtractEntry{{
		Attribs:  arcfs.FileAttribs{FullPath: "a.txt", FilenameOnly: "a.txt"},
		OpenData: dataOpener([]byte("hello")),
	}}
	result, err := ExtractFiles(context.Background(), entries, arcfs.NopFunc, ExtractOptions{Mode: PreserveNone, DestDir: dir})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestExtractFilesPreserveADFWritesSidecar(t *testing.T) {
	dir := t.TempDir()
	entries := []ExtractEntry{{
		Attribs:  arcfs.FileAttribs{FullPath: "prog", FilenameOnly: "prog", ProDOSType: 0x06},
		OpenData: dataOpener([]byte("data")),
		OpenRsrc: dataOpener([]byte("rsrc")),
	}}
	result, err := ExtractFiles(context.Background(), entries, arcfs.NopFunc, ExtractOptions{Mode: PreserveADF, DestDir: dir})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	_, err = os.Stat(filepath.Join(dir, "prog"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "._prog"))
	require.NoError(t, err)
}

func TestExtractFilesPreserveASCombinesIntoOneFile(t *testing.T) {
	dir := t.TempDir()
	entries := []ExtractEntry{{
		Attribs:  arcfs.FileAttribs{FullPath: "prog", FilenameOnly: "prog"},
		OpenData: dataOpener([]byte("data")),
		OpenRsrc: dataOpener([]byte("rsrc")),
	}}
	result, err := ExtractFiles(context.Background(), entries, arcfs.NopFunc, ExtractOptions{Mode: PreserveAS, DestDir: dir})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	_, err = os.Stat(filepath.Join(dir, "prog.as"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "prog"))
	require.Error(t, err)
}

func TestExtractFilesSkipsOnCollisionWhenCallbackSaysSkip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("existing"), 0o644))

	skipCb := func(f arcfs.Facts) arcfs.Result {
		if f.Reason == arcfs.ReasonFileNameExists {
			return arcfs.ResultSkip
		}
		return arcfs.ResultContinue
	}
	entries := []ExtractEntry{{
		Attribs:  arcfs.FileAttribs{FullPath: "a.txt", FilenameOnly: "a.txt"},
		OpenData: dataOpener([]byte("new data")),
	}}
	result, err := ExtractFiles(context.Background(), entries, skipCb, ExtractOptions{Mode: PreserveNone, DestDir: dir})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "existing", string(data))
}

func TestExtractFilesDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	entries := []ExtractEntry{{
		Attribs:  arcfs.FileAttribs{FullPath: "a.txt", FilenameOnly: "a.txt"},
		OpenData: dataOpener([]byte("hello")),
	}}
	result, err := ExtractFiles(context.Background(), entries, arcfs.NopFunc, ExtractOptions{Mode: PreserveNone, DestDir: dir, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	_, err = os.Stat(filepath.Join(dir, "a.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestAdjustHostFileNameSubstitutesIllegalChars(t *testing.T) {
	require.Equal(t, "a_b_c", AdjustHostFileName("a/b:c"))
}

func TestNAPSSuffixProDOS(t *testing.T) {
	s := NAPSSuffix(arcfs.FileAttribs{ProDOSType: 0x06, AuxType: 0x2000}, false)
	require.Equal(t, "#062000", s)
}
