package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/gpu"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List OpenCL platforms and devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	platforms, err := gpu.EnumeratePlatforms()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(platforms) == 0 {
		fmt.Fprintln(out, "No OpenCL platforms found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tDEVICE\tTYPE\tUNITS\tVERSION")
	fmt.Fprintln(w, "--------\t------\t----\t-----\t-------")
	for _, p := range platforms {
		if len(p.Devices) == 0 {
			fmt.Fprintf(w, "%s\t(none)\t\t\t%s\n", p.Name, p.Version)
			continue
		}
		for _, d := range p.Devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.Name, d.Name, d.Type, d.MaxComputeUnits, d.Version)
		}
	}
	return w.Flush()
}
