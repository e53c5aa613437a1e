package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/clkernel/internal/kernel"
)

var checkJobs int

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Load several kernels and report which ones fail",
	Long: `Loads every named kernel concurrently and prints one line per file.
Exits non-zero if any file fails to load.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", runtime.NumCPU(), "Number of files loaded in parallel")
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	name string
	src  *kernel.Source
	err  error
}

// checkKernels loads names concurrently. Results keep the order of names.
func checkKernels(loader *kernel.Loader, names []string, jobs int) []checkResult {
	results := make([]checkResult, len(names))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			src, err := loader.Load(name)
			results[i] = checkResult{name: name, src: src, err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

func runCheck(cmd *cobra.Command, args []string) error {
	results := checkKernels(newLoader(), args, checkJobs)

	out := cmd.OutOrStdout()
	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", r.name, r.err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s, %d include(s))\n", r.src.Path, formatBytes(int64(r.src.Len())), len(r.src.Includes))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d kernel(s) failed to load", failed, len(results))
	}
	return nil
}
