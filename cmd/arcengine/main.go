// Command arcengine is a thin CLI harness over the engine packages,
// exercising the Add/Extract/Copy workers and the DiskArcNode commit
// pipeline against real ZIP files on the host filesystem. It mirrors
// rclone's cmd/<verb> layout: one cobra.Command per verb, registered onto
// a shared root in each file's init.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	arcfs "github.com/retropack/arcengine/fs"
)

// rootCmd is the top of the command tree every subcommand registers onto.
var rootCmd = &cobra.Command{
	Use:   "arcengine",
	Short: "Inspect and edit disk-archive-shaped containers",
	Long: `
arcengine manipulates file entries inside archive containers (currently
ZIP) the way a retrocomputing disk-archive manager does: listing,
adding, extracting, and copying entries while preserving the
ProDOS/HFS type metadata and resource forks those entries may carry.`,
	SilenceUsage: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug-level logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "arcengine:", err)
		os.Exit(1)
	}
}

func applyLogLevel() {
	if verbose {
		arcfs.SetLevel(arcfs.LevelDebug)
	}
}
