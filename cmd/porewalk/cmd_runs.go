package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/porewalk/internal/outcome"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs stored.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tPARTICLES\tSUCCEEDED\tFAILED\tMEAN DWELL (ns)")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%g\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Particles, r.Succeeded, r.Failed, r.MeanDwell)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs (0 for all)")
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			showConfig, _ := cmd.Flags().GetBool("config")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records, err := s.GetOutcomes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			stats := outcome.Summarize(records)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run":   run,
					"stats": stats,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %s\n", run.ID)
			fmt.Fprintf(w, "  created:   %s\n", run.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "  seed:      %d\n", run.Seed)
			fmt.Fprintf(w, "  particles: %d (%d active)\n", run.Particles, run.Active)
			fmt.Fprintf(w, "  steps:     %d of %g ns, %g ns simulated in %s\n", run.Steps, run.Dt, run.SimTime, run.Elapsed.Round(time.Millisecond))
			fmt.Fprintln(w)
			printStats(w, stats)
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  mean dwell:            %g ns\n", run.MeanDwell)
			fmt.Fprintf(w, "  mean dwell unbound:    %g ns\n", run.MeanFreeDwell)
			fmt.Fprintf(w, "  mean binding attempts: %g\n", run.MeanAttempts)
			fmt.Fprintf(w, "  mean bindings:         %g\n", run.MeanBindings)
			if showConfig && run.Config != "" {
				fmt.Fprintf(w, "\n%s", run.Config)
			}
			return nil
		},
	}
	cmd.Flags().Bool("config", false, "Print the stored configuration")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run and its outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func printStats(w io.Writer, stats []outcome.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  OUTCOME\tCOUNT\tMEAN (ns)\tSTD DEV (ns)\tATTEMPTS\tBINDINGS")
	for _, st := range stats {
		fmt.Fprintf(tw, "  %s\t%d\t%g\t%g\t%g\t%g\n",
			st.Outcome, st.Count, st.Mean, st.StdDev, st.MeanAttempts, st.MeanBindings)
	}
	tw.Flush()
}
