package diskarc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateHostTempFileFirstAttempt(t *testing.T) {
	dir := t.TempDir()
	path, f, err := createHostTempFile(dir)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, filepath.Join(dir, "cp2tmp_"), path)
}

func TestCreateHostTempFileSkipsCollisions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cp2tmp_"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cp2tmp_1"), nil, 0o644))

	path, f, err := createHostTempFile(dir)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, filepath.Join(dir, "cp2tmp_2"), path)
}
