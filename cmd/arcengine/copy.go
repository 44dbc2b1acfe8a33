package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retropack/arcengine/operations"
	"github.com/retropack/arcengine/zipfmt"

	arcfs "github.com/retropack/arcengine/fs"
)

var copyMacZip bool

func init() {
	copyCommand.Flags().BoolVar(&copyMacZip, "maczip", false, "Pair resource forks as __MACOSX/._name sidecar entries in the destination")
	rootCmd.AddCommand(copyCommand)
}

var copyCommand = &cobra.Command{
	Use:   "copy src.zip dst.zip [name...]",
	Short: "Copy entries from one archive into another, by name (all entries if none given)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(command *cobra.Command, args []string) error {
		applyLogLevel()
		srcPath, dstPath := args[0], args[1]
		wanted := make(map[string]bool, len(args)-2)
		for _, n := range args[2:] {
			wanted[n] = true
		}

		srcFile, err := os.Open(srcPath)
		if err != nil {
			return err
		}
		defer srcFile.Close()
		srcInfo, err := srcFile.Stat()
		if err != nil {
			return err
		}
		src, err := zipfmt.Open(srcFile, srcInfo.Size())
		if err != nil {
			return err
		}

		dst, dstFile, err := openOrCreateArchive(dstPath)
		if err != nil {
			return err
		}
		defer dstFile.Close()

		ctx := context.Background()
		refs, err := src.Entries(ctx)
		if err != nil {
			return err
		}

		var entries []operations.CopyEntry
		for _, ref := range refs {
			ref := ref
			a := ref.Attribs()
			if len(wanted) > 0 && !wanted[a.FullPath] {
				continue
			}
			entries = append(entries, operations.CopyEntry{
				Attribs: a,
				OpenData: func(ctx context.Context) (io.ReadCloser, error) {
					return src.OpenPart(ctx, ref, arcfs.PartDataFork)
				},
				StorageDir:    strings.TrimSuffix(a.FullPath, "/"+a.FilenameOnly),
				StorageDirSep: '/',
				StorageName:   a.FilenameOnly,
			})
		}
		if entries == nil {
			arcfs.Infof(nil, "copy: no matching entries")
			return nil
		}

		result, err := operations.CopyToArchive(ctx, dst, entries, arcfs.NopFunc, operations.CopyOptions{MacZip: copyMacZip})
		if err != nil {
			_ = dst.CancelTransaction(ctx)
			return err
		}

		if _, err := dstFile.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := dstFile.Truncate(0); err != nil {
			return err
		}
		if err := dst.CommitTransaction(ctx, dstFile); err != nil {
			return err
		}
		arcfs.Infof(nil, "copy: %+v", result)
		return nil
	},
}
