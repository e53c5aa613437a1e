package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/kernel"
)

var includesCmd = &cobra.Command{
	Use:   "includes <file>",
	Short: "List the local include directives of a kernel",
	Args:  cobra.ExactArgs(1),
	RunE:  runIncludes,
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the effective search path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, dir := range newLoader().SearchPath() {
			fmt.Fprintln(cmd.OutOrStdout(), dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(includesCmd)
	rootCmd.AddCommand(pathsCmd)
}

func runIncludes(cmd *cobra.Command, args []string) error {
	loader := newLoader()
	path, directives, err := loader.Directives(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(directives) == 0 {
		fmt.Fprintf(out, "%s: no local includes\n", path)
		return nil
	}

	searchPath := loader.SearchPath()
	unresolved := 0

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tBYTES\tTARGET\tRESOLVED\tSIZE")
	fmt.Fprintln(w, "----\t-----\t------\t--------\t----")
	for _, d := range directives {
		resolved, size := resolveInclude(searchPath, d.Target)
		if size == "" {
			unresolved++
			size = "-"
		}
		fmt.Fprintf(w, "%d\t%d-%d\t%s\t%s\t%s\n",
			d.Line,
			d.Start,
			d.End,
			d.Target,
			resolved,
			size,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%s: %d include(s), %d unresolved\n", path, len(directives), unresolved)
	return nil
}

// resolveInclude reports where target resolves on the search path and its
// size. size is empty when the target cannot be used.
func resolveInclude(searchPath []string, target string) (resolved, size string) {
	path, err := kernel.Locate(searchPath, target)
	if err != nil {
		var kerr *kernel.Error
		if errors.As(err, &kerr) {
			return "(" + kerr.Kind.String() + ")", ""
		}
		return "(" + err.Error() + ")", ""
	}

	info, err := os.Stat(path)
	if err != nil {
		return path, ""
	}
	return path, formatBytes(info.Size())
}
