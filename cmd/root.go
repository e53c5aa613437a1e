package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/config"
	"github.com/cwbudde/clkernel/internal/kernel"
)

var (
	configPath  string
	logLevel    string
	logFormat   string
	rootDir     string
	includeDirs []string
	maxIncludes int

	cfg    = config.DefaultConfig()
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clkernel",
	Short: "Load OpenCL kernel sources with local includes resolved",
	Long: `clkernel locates OpenCL C kernel files on a search path, splices the
files named by their #include "..." directives into the source and hands the
result to the OpenCL compiler.

The search path is <root>, <root>/src, <root>/include, then every directory
listed in OPENCL_KERNEL_PATH (colon separated), then search_path entries from
the config file and -I flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath, "Config file")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "Log format (json, text)")
	flags.StringVar(&rootDir, "root", "", "Kernel source root")
	flags.StringArrayVarP(&includeDirs, "include-dir", "I", nil, "Additional search directory (repeatable)")
	flags.IntVar(&maxIncludes, "max-includes", 0, "Maximum local includes per kernel file")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		loaded.Logging.Format = logFormat
	}
	if flags.Changed("root") {
		loaded.Root = rootDir
	}
	if flags.Changed("max-includes") {
		loaded.MaxIncludes = maxIncludes
	}
	loaded.SearchPath = append(loaded.SearchPath, includeDirs...)

	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger, err = newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	kernel.SetLogger(logger.With("component", "kernel"))

	logger.Debug("Configuration loaded", "config", configPath, "root", cfg.Root, "max_includes", cfg.MaxIncludes)
	return nil
}

// newLogger builds the process logger. Logs go to stderr so that stdout
// carries only command output.
func newLogger(w io.Writer, lc config.LoggingConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(lc.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json", "":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", lc.Format)
	}
	return slog.New(handler), nil
}

func newLoader() *kernel.Loader {
	return kernel.NewLoader(cfg.LoaderOptions())
}
