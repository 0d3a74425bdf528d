package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/medusa/internal/config"
	mlog "github.com/nao1215/medusa/internal/log"
)

// NewRootCmd creates the root command for medusa.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medusa",
		Short: "Concurrent website crawler that reports page depth",
		Long: `medusa crawls a website from a root URL with a pool of concurrent workers,
computes the shortest link distance of every page from the root and reports
how many pages sit at each depth.

Runs can be recorded in a local SQLite database and compared later.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewPageDepthCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag from the command or its root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// setupLogger creates a structured logger writing to w.
// Sensitive values such as cookies and credentials are redacted.
func setupLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if jsonOutput {
		return mlog.NewSecureJSONLogger(w, verbose)
	}
	return mlog.NewSecureLogger(w, verbose)
}

// addDBDirFlag registers the database directory flag shared by the commands
// that read or write run history.
func addDBDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")
}
