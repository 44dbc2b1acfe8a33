package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/retropack/arcengine/zipfmt"
)

func init() {
	rootCmd.AddCommand(lsCommand)
}

var lsCommand = &cobra.Command{
	Use:   "ls archive.zip",
	Short: "List the entries inside an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		applyLogLevel()
		f, err := os.Open(args[0])
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

		entries, err := archive.Entries(context.Background())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(command.OutOrStdout(), 0, 2, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "SIZE\tMODIFIED\tNAME")
		for _, e := range entries {
			a := e.Attribs()
			fmt.Fprintf(w, "%d\t%s\t%s\n", a.DataLength, a.ModWhen.Format("2006-01-02 15:04:05"), a.FullPath)
		}
		return nil
	},
}
