// Package store persists finalized simulation runs and their per-particle
// outcomes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/porewalk/internal/outcome"
	"github.com/nvandessel/porewalk/internal/randomwalk"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("store: run not found")

// Run is the stored summary of one finalized simulation.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Seed      uint64        `json:"seed"`
	Particles int           `json:"particles"`
	Dt        float64       `json:"dt"`
	Steps     int           `json:"steps"`
	SimTime   float64       `json:"sim_time"` // ns
	Elapsed   time.Duration `json:"elapsed"`  // wall clock

	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Active    int `json:"active"`

	MeanAttempts       float64 `json:"mean_attempts"`
	MeanBindings       float64 `json:"mean_bindings"`
	MeanDwell          float64 `json:"mean_dwell"`
	MeanFreeDwell      float64 `json:"mean_free_dwell"`
	MeanDwellSucceeded float64 `json:"mean_dwell_succeeded"`
	MeanDwellFailed    float64 `json:"mean_dwell_failed"`

	// Config is the effective configuration of the run as YAML.
	Config string `json:"config,omitempty"`
}

// NewRun builds a run summary from a finalized result.
func NewRun(res randomwalk.Result, config string) Run {
	s := res.Summary
	return Run{
		Seed:               res.Seed,
		Particles:          s.Particles,
		Dt:                 res.Dt,
		Steps:              res.Steps,
		SimTime:            res.Time,
		Elapsed:            res.Elapsed,
		Succeeded:          s.Succeeded,
		Failed:             s.Failed,
		Active:             s.Active,
		MeanAttempts:       s.MeanAttempts,
		MeanBindings:       s.MeanBindings,
		MeanDwell:          s.MeanDwell,
		MeanFreeDwell:      s.MeanFreeDwell,
		MeanDwellSucceeded: s.MeanDwellSucceeded,
		MeanDwellFailed:    s.MeanDwellFailed,
		Config:             config,
	}
}

// NewRunID returns a run identifier derived from t.
func NewRunID(t time.Time) string {
	return fmt.Sprintf("run-%s", t.UTC().Format("20060102-150405.000000"))
}

// RunStore stores runs and their outcomes.
type RunStore interface {
	// SaveRun stores run and its outcomes and returns the run ID. An empty
	// ID is assigned from the creation time, which defaults to now.
	SaveRun(ctx context.Context, run Run, outcomes []outcome.Record) (string, error)

	// GetRun returns the run with the given ID or ErrNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns stored runs, newest first. A limit of 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetOutcomes returns the outcomes of a run ordered by particle.
	GetOutcomes(ctx context.Context, id string) ([]outcome.Record, error)

	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// prepare fills in the ID and creation time of a run about to be saved.
func prepare(run Run) Run {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.ID == "" {
		run.ID = NewRunID(run.CreatedAt)
	}
	return run
}
