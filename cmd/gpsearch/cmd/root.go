// Package cmd provides the CLI commands for gpsearch.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/logging"
	"github.com/Aman-CERP/gpsearch/pkg/version"
)

// Global flags
var (
	debugMode      bool
	projectDir     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the gpsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gpsearch",
		Short: "Full-text search for Gameplan discussions, pages and tasks",
		Long: `gpsearch maintains a RediSearch index over a Gameplan site's
discussions, pages and tasks, and serves it to the command line and
to AI assistants over MCP.

Without Redis, set backend.type to "memory" to run against an
in-process index.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("gpsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.gpsearch/logs/")
	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Directory holding .gpsearch.yaml and .env")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newDropCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSpellCheckCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the debug file logger when --debug is set.
// serve sets up its own logging, since stdout belongs to the MCP protocol.
func startLogging(cmd *cobra.Command, _ []string) error {
	if !debugMode || cmd.Name() == "serve" {
		return nil
	}
	cleanup, err := logging.SetupDefault(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("debug_logging_enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopLogging flushes and closes the debug log.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		_, _ = fmt.Fprint(root.ErrOrStderr(), gperrors.FormatForUser(err))
	}
	return err
}
