package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/porewalk/internal/config"
	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/outcome"
	"github.com/nvandessel/porewalk/internal/pathutil"
	"github.com/nvandessel/porewalk/internal/ratelimit"
	"github.com/nvandessel/porewalk/internal/simulation"
	"github.com/nvandessel/porewalk/internal/store"
)

const (
	defaultRunsLimit = 20
	runURIPrefix     = "porewalk://runs/"
)

// registerTools registers all porewalk MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "porewalk_simulate",
		Description: "Run a nanopore translocation simulation from a built-in scenario or a YAML configuration and store its outcomes",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "porewalk_runs",
		Description: "List stored simulation runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "porewalk_outcomes",
		Description: "Dwell time statistics and logarithmic histograms with exponential reference curves for a stored run",
	}, s.handleOutcomes)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "porewalk_scenarios",
		Description: "List built-in simulation scenarios",
	}, s.handleScenarios)
}

// registerResources registers MCP resources for stored runs.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURIPrefix + "{id}",
		Name:        "porewalk-run",
		Description: "Summary and configuration of a stored simulation run.",
		MIMEType:    "text/markdown",
	}, s.handleRunResource)
}

// handleRunResource renders a stored run as markdown.
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, runURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := strings.TrimPrefix(uri, runURIPrefix)
	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, sdk.ResourceNotFoundError(uri)
		}
		return nil, err
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     formatRun(run),
			},
		},
	}, nil
}

func formatRun(run *store.Run) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Run: %s\n\n", run.ID)
	fmt.Fprintf(&sb, "**Created:** %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "**Seed:** %d\n", run.Seed)
	fmt.Fprintf(&sb, "**Particles:** %d (succeeded %d, failed %d, active %d)\n",
		run.Particles, run.Succeeded, run.Failed, run.Active)
	fmt.Fprintf(&sb, "**Steps:** %d of %g ns (%g ns simulated, %s wall clock)\n\n",
		run.Steps, run.Dt, run.SimTime, run.Elapsed)

	sb.WriteString("## Dwell times (ns)\n\n")
	fmt.Fprintf(&sb, "- Mean: %g\n", run.MeanDwell)
	fmt.Fprintf(&sb, "- Mean without binding: %g\n", run.MeanFreeDwell)
	fmt.Fprintf(&sb, "- Mean succeeded: %g\n", run.MeanDwellSucceeded)
	fmt.Fprintf(&sb, "- Mean failed: %g\n", run.MeanDwellFailed)
	fmt.Fprintf(&sb, "- Mean binding attempts: %g\n", run.MeanAttempts)
	fmt.Fprintf(&sb, "- Mean bindings: %g\n", run.MeanBindings)

	if run.Config != "" {
		sb.WriteString("\n## Configuration\n\n```yaml\n")
		sb.WriteString(run.Config)
		if !strings.HasSuffix(run.Config, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}

// handleSimulate implements the porewalk_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("porewalk_simulate", start, retErr, toolParams(map[string]any{
			"scenario": args.Scenario, "config": args.Config, "n": args.N, "seed": args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "porewalk_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	cfg, err := s.simulationConfig(args)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	if cfg.Simulation.N > s.maxParticles {
		return nil, SimulateOutput{}, fmt.Errorf("n = %d exceeds the limit of %d particles", cfg.Simulation.N, s.maxParticles)
	}

	select {
	case s.sims <- struct{}{}:
		defer func() { <-s.sims }()
	case <-ctx.Done():
		return nil, SimulateOutput{}, ctx.Err()
	}

	report, err := s.runner.Run(ctx, cfg)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	sum := report.Result.Summary
	return nil, SimulateOutput{
		RunID:     report.RunID,
		Seed:      report.Result.Seed,
		Steps:     report.Result.Steps,
		Time:      report.Result.Time,
		ElapsedMs: report.Result.Elapsed.Milliseconds(),
		Summary:   sum,
		Stats:     report.Stats,
		Message: fmt.Sprintf("%d of %d particles translocated, %d escaped; mean dwell %g ns",
			sum.Succeeded, sum.Particles, sum.Failed, sum.MeanDwell),
	}, nil
}

// simulationConfig resolves the configuration of a simulate call. Field
// grids must lie in the server's field directories; relative grid paths
// are resolved against the first of them.
func (s *Server) simulationConfig(args SimulateInput) (*config.Config, error) {
	var cfg *config.Config
	if args.Config != "" {
		parsed, err := config.Parse([]byte(args.Config))
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		cfg = parsed
	} else {
		name := args.Scenario
		if name == "" {
			name = "default"
		}
		sc, ok := simulation.LookupScenario(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario: %s", name)
		}
		cfg = sc.Config()
	}

	if args.N < 0 {
		return nil, fmt.Errorf("n must be positive, got %d", args.N)
	}
	if args.N > 0 {
		cfg.Simulation.N = args.N
	}
	if args.Seed != 0 {
		cfg.Simulation.Seed = args.Seed
	}
	if grid := cfg.Field.Grid; grid != "" {
		if !filepath.IsAbs(grid) && len(s.fieldDirs) > 0 {
			grid = filepath.Join(s.fieldDirs[0], grid)
		}
		if err := pathutil.ValidatePath(grid, s.fieldDirs); err != nil {
			return nil, fmt.Errorf("field grid: %w", err)
		}
		cfg.Field.Grid = grid
	}
	cfg.Output = config.OutputConfig{}
	return cfg, nil
}

// handleRuns implements the porewalk_runs tool.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("porewalk_runs", start, retErr, toolParams(map[string]any{"limit": args.Limit}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "porewalk_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Seed:      r.Seed,
			Particles: r.Particles,
			Succeeded: r.Succeeded,
			Failed:    r.Failed,
			MeanDwell: r.MeanDwell,
		})
	}
	return nil, RunsOutput{Runs: items, Count: len(items)}, nil
}

// handleOutcomes implements the porewalk_outcomes tool.
func (s *Server) handleOutcomes(ctx context.Context, req *sdk.CallToolRequest, args OutcomesInput) (_ *sdk.CallToolResult, _ OutcomesOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("porewalk_outcomes", start, retErr, toolParams(map[string]any{
			"run_id": args.RunID, "a": args.A, "b": args.B, "bins": args.Bins, "unit": args.Unit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "porewalk_outcomes"); err != nil {
		return nil, OutcomesOutput{}, err
	}

	if args.RunID == "" {
		return nil, OutcomesOutput{}, errors.New("run_id is required")
	}
	a, b := args.A, args.B
	if a == 0 && b == 0 {
		a, b = constants.DefaultHistogramLow, constants.DefaultHistogramHigh
	}
	bins := args.Bins
	if bins <= 0 {
		bins = constants.DefaultHistogramBins
	}
	unit := args.Unit
	if unit <= 0 {
		unit = constants.DefaultTimeUnit
	}

	records, err := s.store.GetOutcomes(ctx, args.RunID)
	if err != nil {
		return nil, OutcomesOutput{}, fmt.Errorf("failed to load outcomes: %w", err)
	}
	dists, err := outcome.Distributions(records, a, b, bins, unit)
	if err != nil {
		return nil, OutcomesOutput{}, err
	}

	return nil, OutcomesOutput{
		RunID:         args.RunID,
		Unit:          unit,
		Stats:         outcome.Summarize(records),
		Distributions: dists,
	}, nil
}

// handleScenarios implements the porewalk_scenarios tool.
func (s *Server) handleScenarios(ctx context.Context, req *sdk.CallToolRequest, args ScenariosInput) (_ *sdk.CallToolResult, _ ScenariosOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("porewalk_scenarios", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "porewalk_scenarios"); err != nil {
		return nil, ScenariosOutput{}, err
	}

	all := simulation.Scenarios()
	items := make([]ScenarioItem, 0, len(all))
	for _, sc := range all {
		cfg := sc.Config()
		items = append(items, ScenarioItem{
			Name:        sc.Name,
			Description: sc.Description,
			Particles:   cfg.Simulation.N,
			Domains:     len(cfg.Domains),
		})
	}
	return nil, ScenariosOutput{Scenarios: items}, nil
}
