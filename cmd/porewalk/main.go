package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nvandessel/porewalk/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "porewalk",
		Short: "Brownian dynamics of particles translocating through a nanopore",
		Long: `porewalk simulates ensembles of Brownian particles diffusing through a
nanopore under position-dependent force and diffusivity fields, with
exclusion from the pore walls and stochastic binding to receptors.

Finalized runs are stored in a SQLite database (default ~/.porewalk) and
can be inspected, histogrammed and exported.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("dir", "", "Run store directory (default: output.dir or ~/.porewalk)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (default: logging.level)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newHistCmd(),
		newConfigCmd(),
		newScenariosCmd(),
		newExportCmd(),
		newImportCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// storeDir resolves the run store directory: --dir, then fallback (usually
// output.dir from the configuration), then ~/.porewalk.
func storeDir(cmd *cobra.Command, fallback string) (string, error) {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	if dir := os.Getenv("POREWALK_OUTPUT_DIR"); dir != "" {
		return dir, nil
	}
	return store.GlobalDir()
}

// openStore opens the SQLite run store selected by the flags.
func openStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	dir, err := storeDir(cmd, "")
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteRunStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return s, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
