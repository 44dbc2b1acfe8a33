package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/retropack/arcengine/diskarc"
	"github.com/retropack/arcengine/operations"
	"github.com/retropack/arcengine/partsource"
	"github.com/retropack/arcengine/zipfmt"

	arcfs "github.com/retropack/arcengine/fs"
)

var (
	addStorageDir string
	addMacZip     bool
	addDryRun     bool
)

func init() {
	addCommand.Flags().StringVar(&addStorageDir, "dir", "", "Directory prefix to store the files under inside the archive")
	addCommand.Flags().BoolVar(&addMacZip, "maczip", false, "Pair resource forks as __MACOSX/._name sidecar entries")
	addCommand.Flags().BoolVar(&addDryRun, "dry-run", false, "Report what would be added without writing the archive")
	rootCmd.AddCommand(addCommand)
}

var addCommand = &cobra.Command{
	Use:   "add archive.zip file...",
	Short: "Add host files to an archive, creating it if it doesn't exist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(command *cobra.Command, args []string) error {
		applyLogLevel()
		archivePath := args[0]
		hostFiles := args[1:]

		archive, hostFile, err := openOrCreateArchive(archivePath)
		if err != nil {
			return err
		}

		entries := make([]operations.AddFileEntry, 0, len(hostFiles))
		for _, path := range hostFiles {
			info, err := os.Stat(path)
			if err != nil {
				_ = hostFile.Close()
				return err
			}
			entries = append(entries, operations.AddFileEntry{
				HasData:        true,
				DataSource:     &partsource.FileBacked{Path: path},
				StorageDir:     addStorageDir,
				StorageDirSep:  '/',
				StorageName:    filepath.Base(path),
				ModWhen:        info.ModTime(),
				SourcePathHint: path,
			})
		}

		ctx := context.Background()
		root := diskarc.NewHostRoot(archivePath, hostFile)
		leaf := diskarc.NewArchiveNode(root, nil, archive, hostFile)

		result, err := operations.AddFiles(ctx, archive, entries, arcfs.NopFunc, operations.AddOptions{MacZip: addMacZip, DryRun: addDryRun})
		if err != nil {
			_ = hostFile.Close()
			return err
		}
		arcfs.Infof(nil, "add: %+v", result)

		if addDryRun {
			return hostFile.Close()
		}

		stats, err := leaf.SaveUpdates(ctx, false)
		if err != nil {
			return err
		}
		arcfs.Infof(nil, "commit: %+v", stats)
		return nil
	},
}

// openOrCreateArchive opens archivePath read-write if it exists, or
// creates a fresh empty zip file for it otherwise, returning both the
// decoded Archive and the live host *os.File the DiskArcNode root needs.
func openOrCreateArchive(archivePath string) (*zipfmt.Archive, *os.File, error) {
	if info, err := os.Stat(archivePath); err == nil {
		f, err := os.OpenFile(archivePath, os.O_RDWR, 0o644)
		if err != nil {
			return nil, nil, err
		}
		archive, err := zipfmt.Open(f, info.Size())
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return archive, f, nil
	}
	f, err := os.OpenFile(archivePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return zipfmt.NewEmpty(), f, nil
}
