package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/store"
)

var (
	artifactsDir  string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Manage saved kernel sources",
	Long: `Manage spliced kernel sources saved with "load --save", including listing
and cleaning old artifacts.`,
}

var listArtifactsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved artifacts",
	Long:  `Display all artifacts with kernel name, timestamp, include count and size.`,
	RunE:  runListArtifacts,
}

var cleanArtifactsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old artifacts",
	Long: `Delete old artifacts based on retention policy.
You can keep the last N artifacts per kernel or delete artifacts older than N days.`,
	RunE: runCleanArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)

	artifactsCmd.AddCommand(listArtifactsCmd)
	artifactsCmd.AddCommand(cleanArtifactsCmd)

	artifactsCmd.PersistentFlags().StringVar(&artifactsDir, "data-dir", "", "Base directory for artifact storage (default from config)")

	cleanArtifactsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N artifacts per kernel (0 = keep all)")
	cleanArtifactsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete artifacts older than N days (0 = no age limit)")
	cleanArtifactsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openArtifactStore() (*store.FSStore, error) {
	dir := artifactsDir
	if dir == "" {
		dir = cfg.Store.Dir
	}
	artifactStore, err := store.NewFSStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}
	return artifactStore, nil
}

func runListArtifacts(cmd *cobra.Command, args []string) error {
	artifactStore, err := openArtifactStore()
	if err != nil {
		return err
	}

	infos, err := artifactStore.ListArtifacts()
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No artifacts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKERNEL\tTIMESTAMP\tINCLUDES\tSOURCE\tON DISK")
	fmt.Fprintln(w, "--\t------\t---------\t--------\t------\t-------")

	for _, info := range infos {
		size, err := getDirSize(artifactStore.ArtifactDir(info.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(info.ID),
			info.Kernel,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Includes,
			formatBytes(int64(info.Size)),
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal artifacts: %d\n", len(infos))
	return nil
}

func runCleanArtifacts(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	artifactStore, err := openArtifactStore()
	if err != nil {
		return err
	}

	infos, err := artifactStore.ListArtifacts()
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No artifacts to clean.")
		return nil
	}

	toDelete := selectArtifactsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No artifacts match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d artifact(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %s)\n",
			shortID(info.ID),
			info.Kernel,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := artifactStore.DeleteArtifact(info.ID); err != nil {
			slog.Error("Failed to delete artifact", "id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted artifact", "id", info.ID, "kernel", info.Kernel)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d artifact(s), %d failed.\n", deleted, failed)
	return nil
}

// selectArtifactsForDeletion applies the age limit and then keeps only the
// newest keepLast artifacts of every kernel.
func selectArtifactsForDeletion(infos []store.ArtifactInfo, keepLast int, olderThanDays int) []store.ArtifactInfo {
	var toDelete []store.ArtifactInfo
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	if keepLast > 0 {
		byKernel := make(map[string][]store.ArtifactInfo)
		var kernels []string
		for _, info := range infos {
			if _, ok := byKernel[info.Kernel]; !ok {
				kernels = append(kernels, info.Kernel)
			}
			byKernel[info.Kernel] = append(byKernel[info.Kernel], info)
		}

		for _, k := range kernels {
			group := byKernel[k]
			if len(group) <= keepLast {
				continue
			}
			sort.SliceStable(group, func(i, j int) bool {
				return group[i].Timestamp.After(group[j].Timestamp)
			})
			for _, info := range group[keepLast:] {
				if !selected[info.ID] {
					toDelete = append(toDelete, info)
					selected[info.ID] = true
				}
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
