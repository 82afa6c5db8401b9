package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/nvandessel/porewalk/internal/simulation"
	"github.com/spf13/cobra"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List built-in scenarios",
		Long: `List the built-in scenarios usable with 'porewalk run --scenario'.
Use 'porewalk config --scenario <name>' to print one as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			type item struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Particles   int    `json:"particles"`
				Domains     int    `json:"domains"`
			}
			var items []item
			for _, sc := range simulation.Scenarios() {
				cfg := sc.Config()
				items = append(items, item{sc.Name, sc.Description, cfg.Simulation.N, len(cfg.Domains)})
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARTICLES\tDOMAINS\tDESCRIPTION")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", it.Name, it.Particles, it.Domains, it.Description)
			}
			return tw.Flush()
		},
	}
}
