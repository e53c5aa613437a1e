package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/gpu"
)

var (
	buildOptions string
	buildDevice  string
)

var buildCmd = &cobra.Command{
	Use:   "build <file> <kernel>",
	Short: "Load a kernel source, build it and describe the named kernel",
	Long: `Loads <file> with its local includes spliced in, builds it for the
selected OpenCL device with -I options for every search path directory, and
prints what the runtime reports about <kernel>. On a build failure the build
log is printed.`,
	Args: cobra.ExactArgs(2),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOptions, "options", "", "Base compiler options (default from config)")
	buildCmd.Flags().StringVar(&buildDevice, "device", "", "Device type: gpu, cpu or all (default from config)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	loader := newLoader()
	src, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	base := cfg.Build.Options
	if cmd.Flags().Changed("options") {
		base = buildOptions
	}
	device := cfg.Build.DeviceType
	if cmd.Flags().Changed("device") {
		device = buildDevice
	}
	deviceType, err := gpu.ParseDeviceType(device)
	if err != nil {
		return err
	}

	rt, err := gpu.InitOpenCL(deviceType)
	if err != nil {
		return err
	}
	defer rt.Close()

	options := gpu.BuildOptions(base, src.SearchPath)
	logger.Info("Building kernel", "kernel", src.Name, "device", rt.Device.Name, "options", options)

	info, err := rt.Build(src.Terminated(), args[1], options)
	if err != nil {
		return err
	}

	printKernelInfo(cmd.OutOrStdout(), rt.Device, info)
	return nil
}

func printKernelInfo(out io.Writer, device gpu.DeviceInfo, info *gpu.KernelInfo) {
	fmt.Fprintf(out, "Kernel: %s\n", info.FunctionName)
	fmt.Fprintf(out, "Device: %s (%s)\n", device.Name, device.Type)
	if info.Attributes != "" {
		fmt.Fprintf(out, "Attributes: %s\n", info.Attributes)
	}
	fmt.Fprintf(out, "Work-group size: %d (preferred multiple %d)\n", info.WorkGroupSize, info.PreferredSizeMultiple)
	fmt.Fprintf(out, "Local memory: %s\n", formatBytes(int64(info.LocalMemSize)))
	fmt.Fprintf(out, "Private memory: %s\n", formatBytes(int64(info.PrivateMemSize)))
	fmt.Fprintf(out, "Arguments: %d\n", info.NumArgs)

	if len(info.Args) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, arg := range info.Args {
		fmt.Fprintf(w, "  %d\t%s\n", arg.Index, arg)
	}
	w.Flush()
}
