package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/store"
)

var (
	loadOutPath string
	loadSave    bool
	loadNUL     bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Print a kernel source with its local includes spliced in",
	Long: `Locates <file> on the search path, replaces every #include "..." directive
with the contents of the named file followed by a line marker, and writes the
result to stdout or to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVarP(&loadOutPath, "out", "o", "", "Write the source to this file instead of stdout")
	loadCmd.Flags().BoolVar(&loadSave, "save", false, "Also save the source as an artifact in the store")
	loadCmd.Flags().BoolVar(&loadNUL, "nul", false, "Keep the trailing NUL terminator")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	src, err := newLoader().Load(args[0])
	if err != nil {
		return err
	}

	data := src.Bytes()
	if loadNUL {
		data = src.Terminated()
	}

	if loadOutPath != "" {
		if err := os.WriteFile(loadOutPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		logger.Info("Kernel written", "kernel", src.Name, "out", loadOutPath, "bytes", len(data), "includes", len(src.Includes))
	} else if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}

	if loadSave {
		artifactStore, err := store.NewFSStore(cfg.Store.Dir)
		if err != nil {
			return fmt.Errorf("failed to create artifact store: %w", err)
		}
		id, err := artifactStore.SaveArtifact(store.NewArtifact(src))
		if err != nil {
			return fmt.Errorf("failed to save artifact: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved artifact %s\n", id)
	}
	return nil
}
