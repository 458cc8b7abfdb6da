// Package cmd provides the vsearch CLI commands: one cobra command per
// file, a persistent --dir flag naming the segment directory to
// operate on, and status lines written through a small styled writer.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vectorcore/hnswengine/internal/logging"
	"github.com/vectorcore/hnswengine/pkg/version"
)

var (
	segmentDir string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the vsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vsearch",
		Short: "Build, query, and inspect a standalone HNSW vector segment",
		Long: `vsearch exercises a single vector segment end to end from the
shell: build an index from a file of vectors, run a top-K search
against it, inspect its version and counters, and flush its interior
to disk.`,
		Version:           version.Version,
		PersistentPreRunE: startLogging,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			stopLogging()
			return nil
		},
	}

	cmd.SetVersionTemplate("vsearch version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&segmentDir, "dir", "./vsearch-data", "segment directory")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "write debug logs to the default log file")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newFlushCmd())

	return cmd
}

// startLogging enables file-based debug logging when --debug is set, so
// the build-progress, flush-completion, and failure-latch transitions
// segment and hnswindex log via slog land somewhere durable instead of
// only going to stderr through slog's default handler.
func startLogging(cmd *cobra.Command, args []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
