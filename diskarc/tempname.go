package diskarc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	arcfs "github.com/retropack/arcengine/fs"
)

// maxTempNameAttempts bounds the numeric-suffix search spec.md §4.4
// describes ("max ~1000 attempts, then fail").
const maxTempNameAttempts = 1000

// TempNameInFileSystem returns an unused name in dir, formed from the
// "cp2_" prefix plus baseName (adjusted for fsys's naming rules), with a
// numeric suffix 1..N appended on collision.
func TempNameInFileSystem(ctx context.Context, fsys arcfs.FileSystem, dir arcfs.DirEntry, baseName string) (string, error) {
	existing, err := fsys.ReadDir(ctx, dir)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[fsys.AdjustFileName(e.Attribs().FilenameOnly)] = true
	}

	candidate := fsys.AdjustFileName("cp2_" + baseName)
	if !taken[candidate] {
		return candidate, nil
	}
	for i := 1; i <= maxTempNameAttempts; i++ {
		candidate = fsys.AdjustFileName(fmt.Sprintf("cp2_%s%d", baseName, i))
		if !taken[candidate] {
			return candidate, nil
		}
	}
	return "", errors.New("diskarc: exhausted temp name attempts in filesystem")
}

// createHostTempFile creates a "cp2tmp_"-prefixed file in dir and returns
// its path and open handle, for use as a commit's fresh output stream
// before an atomic rename over the original host file.
func createHostTempFile(dir string) (string, *os.File, error) {
	for i := 0; i < maxTempNameAttempts; i++ {
		name := "cp2tmp_"
		if i > 0 {
			name = fmt.Sprintf("cp2tmp_%d", i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, err
		}
	}
	return "", nil, errors.New("diskarc: exhausted host temp name attempts")
}
