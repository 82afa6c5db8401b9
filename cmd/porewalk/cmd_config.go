package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective simulation configuration",
		Long: `Print the configuration a run would use, after defaults, the config file
(--config or ~/.porewalk/config.yaml) and POREWALK_* environment overrides.

Examples:
  porewalk config                     # Effective default configuration
  porewalk config --scenario wei      # A built-in scenario
  porewalk config --config sim.yaml   # Validate and print a file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			text, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}
