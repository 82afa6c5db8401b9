package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nvandessel/porewalk/internal/config"
	"github.com/nvandessel/porewalk/internal/logging"
	"github.com/nvandessel/porewalk/internal/simulation"
	"github.com/nvandessel/porewalk/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and store its outcomes",
		Long: `Run simulates the configured particle ensemble until every particle has
translocated or escaped, then stores the run and its per-particle outcomes.

The configuration is read from --config, a built-in --scenario, or
~/.porewalk/config.yaml, with POREWALK_* environment overrides applied.

Examples:
  porewalk run --scenario wei --n 500 --seed 7
  porewalk run --config sim.yaml --arrow outcomes.arrow
  porewalk run --scenario receptor --progress 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			noStore, _ := cmd.Flags().GetBool("no-store")
			every, _ := cmd.Flags().GetInt("progress")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			level := logLevel(cmd, cfg)
			log := logging.NewLogger(level, cmd.ErrOrStderr())

			dir, err := storeDir(cmd, cfg.Output.Dir)
			if err != nil {
				return err
			}
			var runStore store.RunStore
			if !noStore {
				s, err := store.NewSQLiteRunStore(dir)
				if err != nil {
					return fmt.Errorf("opening run store: %w", err)
				}
				defer s.Close()
				runStore = s
			}
			events := logging.NewEventLogger(dir, level)
			defer events.Close()

			opts := []simulation.Option{
				simulation.WithLogger(log),
				simulation.WithEventLogger(events),
			}
			if every > 0 {
				out := cmd.ErrOrStderr()
				opts = append(opts, simulation.WithProgress(every, func(p simulation.Progress) {
					fmt.Fprintf(out, "step %d  t = %g ns  active = %d\n", p.Step, p.Time, p.Active)
				}))
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			report, err := simulation.NewRunner(runStore, opts...).Run(ctx, cfg)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().Int("n", 0, "Override the number of particles")
	cmd.Flags().Uint64("seed", 0, "Override the random seed")
	cmd.Flags().String("arrow", "", "Write per-particle outcomes to this Arrow IPC file")
	cmd.Flags().Int("progress", 0, "Report progress every N steps (0 disables)")
	cmd.Flags().Bool("no-store", false, "Do not store the run")
	return cmd
}

// addConfigFlags adds the flags selecting a configuration source.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Simulation configuration file (YAML)")
	cmd.Flags().String("scenario", "", "Built-in scenario (see 'porewalk scenarios')")
}

// loadConfig resolves the configuration from --config or --scenario and
// applies the run overrides present on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	name, _ := cmd.Flags().GetString("scenario")
	if path != "" && name != "" {
		return nil, fmt.Errorf("cannot specify both --config and --scenario")
	}

	var cfg *config.Config
	if name != "" {
		sc, ok := simulation.LookupScenario(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario: %s", name)
		}
		cfg = sc.Config()
		config.ApplyEnvOverrides(cfg)
	} else {
		loaded, err := config.LoadPath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if f := cmd.Flags().Lookup("n"); f != nil && f.Changed {
		cfg.Simulation.N, _ = cmd.Flags().GetInt("n")
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Simulation.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if f := cmd.Flags().Lookup("arrow"); f != nil && f.Changed {
		cfg.Output.Arrow, _ = cmd.Flags().GetString("arrow")
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func logLevel(cmd *cobra.Command, cfg *config.Config) string {
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		return level
	}
	return cfg.Logging.Level
}

func printReport(w io.Writer, report *simulation.Report) {
	res := report.Result
	sum := res.Summary
	if report.RunID != "" {
		fmt.Fprintf(w, "Run %s\n", report.RunID)
	}
	fmt.Fprintf(w, "  %d particles, %d steps of %g ns, %g ns simulated in %s (seed %d)\n",
		sum.Particles, res.Steps, res.Dt, res.Time, res.Elapsed.Round(time.Millisecond), res.Seed)
	fmt.Fprintln(w)
	printStats(w, report.Stats)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  mean dwell:            %g ns\n", sum.MeanDwell)
	fmt.Fprintf(w, "  mean dwell unbound:    %g ns\n", sum.MeanFreeDwell)
	fmt.Fprintf(w, "  mean binding attempts: %g\n", sum.MeanAttempts)
	fmt.Fprintf(w, "  mean bindings:         %g\n", sum.MeanBindings)
	if report.Arrow != "" {
		fmt.Fprintf(w, "\nOutcomes written to %s\n", report.Arrow)
	}
}
