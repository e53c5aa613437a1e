package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkernel/internal/kernel"
	"github.com/cwbudde/clkernel/internal/store"
	"github.com/cwbudde/clkernel/internal/watch"
)

var (
	watchLogPath  string
	watchOutPath  string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Reload a kernel whenever it or one of its includes changes",
	Long: `Watches every existing search path directory and reloads <file> after
changes to the kernel or to a file it includes. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchLogPath, "log", "", "Append a JSONL record of every reload to this file")
	watchCmd.Flags().StringVarP(&watchOutPath, "out", "o", "", "Rewrite this file with the spliced source after every successful load")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before reloading")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var reloadLog *store.ReloadLog
	if watchLogPath != "" {
		var err error
		reloadLog, err = store.NewReloadLog(watchLogPath)
		if err != nil {
			return fmt.Errorf("failed to open reload log: %w", err)
		}
		defer reloadLog.Close()
	}

	out := cmd.OutOrStdout()
	onLoad := func(src *kernel.Source, err error) {
		entry := store.ReloadEntry{Timestamp: time.Now(), Kernel: args[0]}
		if err != nil {
			entry.Error = err.Error()
			fmt.Fprintf(out, "%s FAIL %v\n", entry.Timestamp.Format("15:04:05"), err)
		} else {
			entry.Path = src.Path
			entry.Size = src.Len()
			entry.Includes = len(src.Includes)
			fmt.Fprintf(out, "%s ok   %s (%s, %d include(s))\n",
				entry.Timestamp.Format("15:04:05"), src.Path, formatBytes(int64(src.Len())), len(src.Includes))

			if watchOutPath != "" {
				if werr := os.WriteFile(watchOutPath, src.Bytes(), 0644); werr != nil {
					logger.Error("Failed to write output", "out", watchOutPath, "error", werr)
				}
			}
		}

		if reloadLog != nil {
			if lerr := reloadLog.Write(entry); lerr != nil {
				logger.Error("Failed to write reload log", "path", reloadLog.Path(), "error", lerr)
			}
		}
	}

	w, err := watch.New(newLoader(), args[0], watch.Options{
		Debounce: watchDebounce,
		OnLoad:   onLoad,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	stats := w.Stats()
	logger.Info("Watch stopped", "loads", stats.Loads, "failures", stats.Failures, "events", stats.Events)
	return nil
}
