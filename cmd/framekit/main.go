package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NavarchProject/framekit/pkg/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	verbose bool
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "framekit",
	Short: "Frame runtime with timers, deferred calls and background workers",
	Long: `framekit drives a frame loop with a tick clock, a timer scheduler,
a deferred-call queue drained on the frame goroutine, and a worker pool
whose results resume on the frame goroutine.

Use 'run' to drive a workload described in YAML and print a summary.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(versionCmd())
}

// setupLogger builds the CLI logger. The flags take precedence over the
// configured level.
func setupLogger(configured string) *slog.Logger {
	level, err := config.ParseLevel(configured)
	if err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	} else if verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	handler := NewConsoleHandler(os.Stdout, level)
	return slog.New(handler)
}
