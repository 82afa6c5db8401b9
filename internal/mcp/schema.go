package mcp

import (
	"time"

	"github.com/nvandessel/porewalk/internal/outcome"
	"github.com/nvandessel/porewalk/internal/randomwalk"
)

// SimulateInput defines the input for porewalk_simulate tool.
type SimulateInput struct {
	Scenario string `json:"scenario,omitempty" jsonschema:"Built-in scenario name (default: 'default'); ignored when config is set"`
	Config   string `json:"config,omitempty" jsonschema:"Full simulation configuration as YAML"`
	N        int    `json:"n,omitempty" jsonschema:"Override the number of particles"`
	Seed     uint64 `json:"seed,omitempty" jsonschema:"Override the random seed (0 keeps the configured seed)"`
}

// SimulateOutput defines the output for porewalk_simulate tool.
type SimulateOutput struct {
	RunID     string             `json:"run_id" jsonschema:"ID of the stored run"`
	Seed      uint64             `json:"seed" jsonschema:"Seed that reproduces the run"`
	Steps     int                `json:"steps" jsonschema:"Number of integration steps"`
	Time      float64            `json:"time" jsonschema:"Simulated time in ns"`
	ElapsedMs int64              `json:"elapsed_ms" jsonschema:"Wall-clock duration"`
	Summary   randomwalk.Summary `json:"summary" jsonschema:"Ensemble summary"`
	Stats     []outcome.Stats    `json:"stats" jsonschema:"Dwell time statistics per outcome (ns)"`
	Message   string             `json:"message" jsonschema:"Human-readable result message"`
}

// RunsInput defines the input for porewalk_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs, newest first (default: 20)"`
}

// RunsOutput defines the output for porewalk_runs tool.
type RunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Stored runs"`
	Count int           `json:"count" jsonschema:"Number of runs"`
}

// RunListItem provides a list view of a stored run.
type RunListItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Seed      uint64    `json:"seed"`
	Particles int       `json:"particles"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	MeanDwell float64   `json:"mean_dwell"`
}

// OutcomesInput defines the input for porewalk_outcomes tool.
type OutcomesInput struct {
	RunID string  `json:"run_id" jsonschema:"ID of the stored run"`
	A     float64 `json:"a,omitempty" jsonschema:"Decimal exponent of the lowest bin edge (default: 0)"`
	B     float64 `json:"b,omitempty" jsonschema:"Decimal exponent of the highest bin edge (default: 6)"`
	Bins  int     `json:"bins,omitempty" jsonschema:"Number of logarithmic bins (default: 100)"`
	Unit  float64 `json:"unit,omitempty" jsonschema:"Histogram time unit in seconds (default: 1e-6)"`
}

// OutcomesOutput defines the output for porewalk_outcomes tool.
type OutcomesOutput struct {
	RunID         string                 `json:"run_id"`
	Unit          float64                `json:"unit" jsonschema:"Histogram time unit in seconds"`
	Stats         []outcome.Stats        `json:"stats" jsonschema:"Dwell time statistics per outcome (ns)"`
	Distributions []outcome.Distribution `json:"distributions" jsonschema:"Histogram and exponential reference per outcome"`
}

// ScenariosInput defines the input for porewalk_scenarios tool.
type ScenariosInput struct{}

// ScenariosOutput defines the output for porewalk_scenarios tool.
type ScenariosOutput struct {
	Scenarios []ScenarioItem `json:"scenarios"`
}

// ScenarioItem describes a built-in scenario.
type ScenarioItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Particles   int    `json:"particles"`
	Domains     int    `json:"domains"`
}
