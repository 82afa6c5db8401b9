package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/porewalk/internal/config"
	"github.com/nvandessel/porewalk/internal/logging"
	"github.com/nvandessel/porewalk/internal/outcome"
	"github.com/nvandessel/porewalk/internal/randomwalk"
	"github.com/nvandessel/porewalk/internal/store"
)

// Runner builds and runs simulations and records their outcomes.
type Runner struct {
	store    store.RunStore
	log      *slog.Logger
	events   *logging.EventLogger
	progress func(Progress)
	every    int
}

// Progress is reported periodically while a walk runs.
type Progress struct {
	Step   int
	Time   float64
	Active int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the operational logger passed to the engine.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithEventLogger sets the trajectory event trace.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(r *Runner) { r.events = el }
}

// WithProgress calls fn every n steps.
func WithProgress(n int, fn func(Progress)) Option {
	return func(r *Runner) { r.every, r.progress = n, fn }
}

// NewRunner creates a runner. A nil store skips persistence.
func NewRunner(s store.RunStore, opts ...Option) *Runner {
	r := &Runner{store: s, log: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report is the outcome of one run.
type Report struct {
	// RunID is empty when the runner has no store.
	RunID   string            `json:"run_id,omitempty"`
	Result  randomwalk.Result `json:"result"`
	Records []outcome.Record  `json:"-"`
	Stats   []outcome.Stats   `json:"stats"`
	Arrow   string            `json:"arrow,omitempty"`
}

// Build constructs the engine described by cfg with all domains registered.
func (r *Runner) Build(cfg *config.Config) (*randomwalk.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	wc, err := cfg.RandomWalk()
	if err != nil {
		return nil, err
	}
	pore, err := cfg.Pore.BuildPore()
	if err != nil {
		return nil, fmt.Errorf("building pore: %w", err)
	}
	provider, err := cfg.Field.Provider()
	if err != nil {
		return nil, fmt.Errorf("loading field: %w", err)
	}

	engine, err := randomwalk.New(pore, provider, wc,
		randomwalk.WithLogger(r.log),
		randomwalk.WithEventLogger(r.events))
	if err != nil {
		return nil, err
	}

	for i, d := range cfg.Domains {
		shape, dc, err := d.Build(pore)
		if err != nil {
			return nil, fmt.Errorf("domain %d: %w", i, err)
		}
		if _, err := engine.AddDomain(shape, dc); err != nil {
			return nil, fmt.Errorf("domain %d: %w", i, err)
		}
	}
	return engine, nil
}

// Run walks the configured ensemble until every particle is terminal, then
// exports and stores the outcomes. A cancelled context aborts the run and
// nothing is recorded.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	engine, err := r.Build(cfg)
	if err != nil {
		return nil, err
	}

	r.log.Info("simulation started",
		"particles", cfg.Simulation.N, "domains", len(engine.Domains()), "seed", engine.Seed())

	start := time.Now()
	for t, err := range engine.Walk(ctx) {
		if err != nil {
			return nil, fmt.Errorf("walk: %w", err)
		}
		if r.progress != nil && r.every > 0 && engine.Steps()%r.every == 0 {
			r.progress(Progress{Step: engine.Steps(), Time: t, Active: engine.Active()})
		}
	}
	res := engine.Finalize(time.Since(start))

	report := &Report{
		Result:  res,
		Records: outcome.FromResult(res),
	}
	report.Stats = outcome.Summarize(report.Records)

	if path := cfg.Output.Arrow; path != "" {
		if err := outcome.WriteArrow(path, report.Records); err != nil {
			return nil, err
		}
		report.Arrow = path
		r.log.Debug("outcomes exported", "path", path, "rows", len(report.Records))
	}

	if r.store != nil {
		text, err := cfg.YAML()
		if err != nil {
			return nil, err
		}
		id, err := r.store.SaveRun(ctx, store.NewRun(res, text), report.Records)
		if err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		report.RunID = id
		r.log.Info("run saved", "id", id)
	}

	return report, nil
}
