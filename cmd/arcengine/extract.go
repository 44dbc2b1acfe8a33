package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/retropack/arcengine/operations"
	"github.com/retropack/arcengine/zipfmt"

	arcfs "github.com/retropack/arcengine/fs"
)

var (
	extractPreserve string
	extractDryRun   bool
)

func init() {
	extractCommand.Flags().StringVar(&extractPreserve, "preserve", "none", "Resource-fork preservation mode: none|adf|as|naps")
	extractCommand.Flags().BoolVar(&extractDryRun, "dry-run", false, "Report what would be extracted without writing files")
	rootCmd.AddCommand(extractCommand)
}

func parsePreserveMode(s string) (operations.PreserveMode, error) {
	switch s {
	case "none":
		return operations.PreserveNone, nil
	case "adf":
		return operations.PreserveADF, nil
	case "as":
		return operations.PreserveAS, nil
	case "naps":
		return operations.PreserveNAPS, nil
	default:
		return 0, errUnknownPreserveMode(s)
	}
}

type errUnknownPreserveMode string

func (e errUnknownPreserveMode) Error() string {
	return "arcengine: unknown --preserve mode " + string(e)
}

var extractCommand = &cobra.Command{
	Use:   "extract archive.zip destdir",
	Short: "Extract every entry of an archive to a host directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(command *cobra.Command, args []string) error {
		applyLogLevel()
		archivePath, destDir := args[0], args[1]

		mode, err := parsePreserveMode(extractPreserve)
		if err != nil {
			return err
		}

		f, err := os.Open(archivePath)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		archive, err := zipfmt.Open(f, info.Size())
		if err != nil {
			return err
		}

		ctx := context.Background()
		refs, err := archive.Entries(ctx)
		if err != nil {
			return err
		}

		entries := make([]operations.ExtractEntry, 0, len(refs))
		for _, ref := range refs {
			ref := ref
			entries = append(entries, operations.ExtractEntry{
				Attribs: ref.Attribs(),
				OpenData: func(ctx context.Context) (io.ReadCloser, error) {
					return archive.OpenPart(ctx, ref, arcfs.PartDataFork)
				},
			})
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return err
		}

		result, err := operations.ExtractFiles(ctx, entries, arcfs.NopFunc, operations.ExtractOptions{
			Mode:    mode,
			DestDir: destDir,
			DryRun:  extractDryRun,
		})
		if err != nil {
			return err
		}
		arcfs.Infof(nil, "extract: %+v", result)
		return nil
	},
}
