package main

import (
	"fmt"

	"github.com/nvandessel/porewalk/internal/logging"
	"github.com/nvandessel/porewalk/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve porewalk tools over MCP (stdio)",
		Long: `Run an MCP (Model Context Protocol) server on stdin/stdout exposing the
porewalk_simulate, porewalk_runs, porewalk_outcomes and porewalk_scenarios
tools. Runs are stored in the run store directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			concurrent, _ := cmd.Flags().GetInt("max-concurrent")
			particles, _ := cmd.Flags().GetInt("max-particles")
			level, _ := cmd.Flags().GetString("log-level")

			dir, err := storeDir(cmd, "")
			if err != nil {
				return err
			}

			// stdout carries the protocol; logs go to stderr.
			server, err := mcp.NewServer(&mcp.Config{
				Name:          "porewalk",
				Version:       version,
				Dir:           dir,
				MaxConcurrent: concurrent,
				MaxParticles:  particles,
				Logger:        logging.NewLogger(level, cmd.ErrOrStderr()),
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().Int("max-concurrent", 1, "Maximum simultaneous simulations")
	cmd.Flags().Int("max-particles", mcp.DefaultMaxParticles, "Maximum particles per simulation")
	return cmd
}
