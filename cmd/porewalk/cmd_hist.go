package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/outcome"
	"github.com/spf13/cobra"
)

func newHistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hist <run-id>",
		Short: "Dwell time histograms of a stored run",
		Long: `Hist bins the total dwell times of succeeded and failed particles into
logarithmically spaced bins from 10^a to 10^b, in units of --unit seconds,
and fits the exponential reference f(T) = exp(-T/tmean) T/tmean scaled to the
histogram area.

Examples:
  porewalk hist run-20260101-120000.000000
  porewalk hist run-20260101-120000.000000 --a -3 --b 3 --unit 1e-9 --bins 60`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			a, _ := cmd.Flags().GetFloat64("a")
			b, _ := cmd.Flags().GetFloat64("b")
			bins, _ := cmd.Flags().GetInt("bins")
			unit, _ := cmd.Flags().GetFloat64("unit")
			reference, _ := cmd.Flags().GetBool("reference")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.GetOutcomes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dists, err := outcome.Distributions(records, a, b, bins, unit)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run_id":        args[0],
					"unit":          unit,
					"distributions": dists,
				})
			}
			if len(dists) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No terminal particles.")
				return nil
			}
			for i, d := range dists {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printDistribution(cmd.OutOrStdout(), d, unit, reference)
			}
			return nil
		},
	}
	cmd.Flags().Float64("a", constants.DefaultHistogramLow, "Decimal exponent of the lowest bin edge")
	cmd.Flags().Float64("b", constants.DefaultHistogramHigh, "Decimal exponent of the highest bin edge")
	cmd.Flags().Int("bins", constants.DefaultHistogramBins, "Number of logarithmic bins")
	cmd.Flags().Float64("unit", constants.DefaultTimeUnit, "Time unit in seconds")
	cmd.Flags().Bool("reference", false, "Also print the exponential reference curve")
	return cmd
}

// printDistribution prints the non-empty bins of d.
func printDistribution(w io.Writer, d outcome.Distribution, unit float64, reference bool) {
	counted := d.Hist.Total()
	fmt.Fprintf(w, "%s: %d particles, %g in range (unit %g s)\n", d.Outcome, d.Samples, counted, unit)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  FROM\tTO\tCOUNT")
	for i, n := range d.Hist.Counts {
		if n == 0 {
			continue
		}
		fmt.Fprintf(tw, "  %.4g\t%.4g\t%g\n", d.Hist.Edges[i], d.Hist.Edges[i+1], n)
	}
	tw.Flush()

	if reference {
		fmt.Fprintln(w, "  reference:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  T\tF")
		for i, t := range d.Reference.T {
			fmt.Fprintf(tw, "  %.4g\t%.4g\n", t, d.Reference.F[i])
		}
		tw.Flush()
	}
}
