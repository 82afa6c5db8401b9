package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/porewalk/internal/field"
	"github.com/nvandessel/porewalk/internal/pathutil"
	"github.com/nvandessel/porewalk/internal/ratelimit"
	"github.com/nvandessel/porewalk/internal/store"
)

// fastConfig drifts 20 small particles through a short pore in a few dozen steps.
const fastConfig = `
simulation:
  n: 20
  particle_radius: 1
  seed: 5
  workers: 2
pore:
  radius: 20
  zmin: -30
  zmax: 0
  outer: 60
field:
  D: 1
  fz: -4.1
`

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	server := newServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Dir:     dir,
		Limits:  map[string]ratelimit.Limit{},
	}, store.NewInMemoryRunStore())
	t.Cleanup(func() { server.Close() })
	return server, dir
}

func simulate(t *testing.T, server *Server) SimulateOutput {
	t.Helper()
	_, out, err := server.handleSimulate(context.Background(), nil, SimulateInput{Config: fastConfig})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	return out
}

func TestHandleSimulate_Config(t *testing.T) {
	server, _ := setupTestServer(t)

	result, out, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{Config: fastConfig})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}
	if out.RunID == "" {
		t.Error("RunID is empty")
	}
	if out.Seed != 5 {
		t.Errorf("Seed = %d, want 5", out.Seed)
	}
	if out.Summary.Particles != 20 || out.Summary.Active != 0 {
		t.Errorf("Summary = %+v, want 20 terminal particles", out.Summary)
	}
	if out.Summary.Succeeded+out.Summary.Failed != 20 {
		t.Errorf("succeeded %d + failed %d != 20", out.Summary.Succeeded, out.Summary.Failed)
	}
	if len(out.Stats) != 2 {
		t.Errorf("len(Stats) = %d, want 2", len(out.Stats))
	}
	if out.Message == "" {
		t.Error("Message is empty")
	}
}

func TestHandleSimulate_Overrides(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleSimulate(context.Background(), nil, SimulateInput{Config: fastConfig, N: 7, Seed: 99})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if out.Summary.Particles != 7 {
		t.Errorf("Particles = %d, want 7", out.Summary.Particles)
	}
	if out.Seed != 99 {
		t.Errorf("Seed = %d, want 99", out.Seed)
	}
}

func TestHandleSimulate_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	server.maxParticles = 100

	tests := []struct {
		name string
		args SimulateInput
		want string
	}{
		{"unknown scenario", SimulateInput{Scenario: "nope"}, "unknown scenario"},
		{"malformed config", SimulateInput{Config: "simulation: [1, 2"}, "invalid config"},
		{"too many particles", SimulateInput{Scenario: "default", N: 101}, "exceeds the limit"},
		{"negative n", SimulateInput{Scenario: "default", N: -1}, "must be positive"},
		{"grid outside field dir", SimulateInput{Config: "field:\n  grid: ../../etc/field.arrow\n"}, "outside allowed directories"},
		{"missing grid", SimulateInput{Config: "field:\n  grid: missing.arrow\n"}, "simulation failed"},
		{"invalid simulation", SimulateInput{Config: "simulation:\n  dt: -1\n"}, "simulation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleSimulate(context.Background(), nil, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}

	runs, _ := server.store.ListRuns(context.Background(), 0)
	if len(runs) != 0 {
		t.Errorf("failed calls stored %d runs", len(runs))
	}
}

func TestHandleSimulate_Grid(t *testing.T) {
	server, dir := setupTestServer(t)

	// Uniform D = 1 and downward drift on a grid covering the whole walk.
	r := []float64{0, 30, 60}
	z := []float64{-60, -10, 40}
	n := len(r) * len(z)
	dn, dt, fr, fz := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range n {
		dn[i], dt[i], fz[i] = 1, 1, -4.1
	}
	g, err := field.NewGrid(r, z, dn, dt, fr, fz)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	fieldsDir := filepath.Join(dir, pathutil.FieldsDir)
	if err := os.MkdirAll(fieldsDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := field.WriteGrid(filepath.Join(fieldsDir, "uniform.arrow"), g); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}

	_, out, err := server.handleSimulate(context.Background(), nil, SimulateInput{
		Config: fastConfig + "  grid: uniform.arrow\n",
	})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if out.Summary.Particles != 20 || out.Summary.Active != 0 {
		t.Errorf("Summary = %+v", out.Summary)
	}
}

func TestHandleSimulate_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	server.toolLimiters = ratelimit.NewToolLimiters(map[string]ratelimit.Limit{
		"porewalk_simulate": {PerMinute: 1, Burst: 1},
	})

	simulate(t, server)
	_, _, err := server.handleSimulate(context.Background(), nil, SimulateInput{Config: fastConfig})
	if err == nil || !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("second call error = %v, want rate limit", err)
	}
	if _, _, err := server.handleRuns(context.Background(), nil, RunsInput{}); err != nil {
		t.Errorf("unlimited tool was limited: %v", err)
	}
}

func TestHandleSimulate_Cancelled(t *testing.T) {
	server, _ := setupTestServer(t)

	// Occupy the only simulation slot so the call waits on the context.
	server.sims <- struct{}{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := server.handleSimulate(ctx, nil, SimulateInput{Config: fastConfig})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestHandleRuns(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleRuns(context.Background(), nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 0 || len(out.Runs) != 0 {
		t.Errorf("empty store listed %d runs", out.Count)
	}

	first := simulate(t, server)
	second := simulate(t, server)

	_, out, err = server.handleRuns(context.Background(), nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2", out.Count)
	}
	if out.Runs[0].ID != second.RunID || out.Runs[1].ID != first.RunID {
		t.Errorf("runs not newest first: %s, %s", out.Runs[0].ID, out.Runs[1].ID)
	}
	if out.Runs[0].Particles != 20 {
		t.Errorf("Particles = %d, want 20", out.Runs[0].Particles)
	}

	_, out, err = server.handleRuns(context.Background(), nil, RunsInput{Limit: 1})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("Count with limit 1 = %d", out.Count)
	}
}

func TestHandleOutcomes(t *testing.T) {
	server, _ := setupTestServer(t)
	run := simulate(t, server)

	// Dwell times of tens of ns, histogrammed in ns.
	_, out, err := server.handleOutcomes(context.Background(), nil, OutcomesInput{
		RunID: run.RunID, A: 0, B: 4, Bins: 40, Unit: 1e-9,
	})
	if err != nil {
		t.Fatalf("handleOutcomes failed: %v", err)
	}
	if len(out.Stats) != 2 {
		t.Fatalf("len(Stats) = %d, want 2", len(out.Stats))
	}
	var samples int
	for _, d := range out.Distributions {
		samples += d.Samples
		if len(d.Hist.Counts) != 40 || len(d.Hist.Edges) != 41 {
			t.Errorf("%s: %d counts, %d edges", d.Outcome, len(d.Hist.Counts), len(d.Hist.Edges))
		}
		if len(d.Reference.T) == 0 {
			t.Errorf("%s: empty reference curve", d.Outcome)
		}
	}
	if samples != 20 {
		t.Errorf("distributions cover %d samples, want 20", samples)
	}
}

func TestHandleOutcomes_Defaults(t *testing.T) {
	server, _ := setupTestServer(t)
	run := simulate(t, server)

	_, out, err := server.handleOutcomes(context.Background(), nil, OutcomesInput{RunID: run.RunID})
	if err != nil {
		t.Fatalf("handleOutcomes failed: %v", err)
	}
	if out.Unit != 1e-6 {
		t.Errorf("Unit = %g, want 1e-6", out.Unit)
	}
	for _, d := range out.Distributions {
		if len(d.Hist.Counts) != 100 {
			t.Errorf("%s: %d bins, want 100", d.Outcome, len(d.Hist.Counts))
		}
	}
}

func TestHandleOutcomes_Errors(t *testing.T) {
	server, _ := setupTestServer(t)

	if _, _, err := server.handleOutcomes(context.Background(), nil, OutcomesInput{}); err == nil {
		t.Error("expected error for missing run_id")
	}
	_, _, err := server.handleOutcomes(context.Background(), nil, OutcomesInput{RunID: "run-missing"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHandleScenarios(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleScenarios(context.Background(), nil, ScenariosInput{})
	if err != nil {
		t.Fatalf("handleScenarios failed: %v", err)
	}
	names := make(map[string]ScenarioItem)
	for _, sc := range out.Scenarios {
		names[sc.Name] = sc
	}
	for _, want := range []string{"default", "receptor", "wei"} {
		if _, ok := names[want]; !ok {
			t.Errorf("scenario %q missing", want)
		}
	}
	if names["wei"].Particles != 100 || names["wei"].Domains != 1 {
		t.Errorf("wei = %+v", names["wei"])
	}
}

func TestHandleRunResource(t *testing.T) {
	server, _ := setupTestServer(t)
	run := simulate(t, server)

	uri := runURIPrefix + run.RunID
	res, err := server.handleRunResource(context.Background(), &sdk.ReadResourceRequest{
		Params: &sdk.ReadResourceParams{URI: uri},
	})
	if err != nil {
		t.Fatalf("handleRunResource failed: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("len(Contents) = %d, want 1", len(res.Contents))
	}
	text := res.Contents[0].Text
	for _, want := range []string{"# Run: " + run.RunID, "**Seed:** 5", "```yaml"} {
		if !strings.Contains(text, want) {
			t.Errorf("resource missing %q:\n%s", want, text)
		}
	}

	for _, bad := range []string{"porewalk://other/x", runURIPrefix, runURIPrefix + "run-missing"} {
		_, err := server.handleRunResource(context.Background(), &sdk.ReadResourceRequest{
			Params: &sdk.ReadResourceParams{URI: bad},
		})
		if err == nil {
			t.Errorf("handleRunResource(%q) succeeded", bad)
		}
	}
}

func TestAuditLog(t *testing.T) {
	server, dir := setupTestServer(t)
	simulate(t, server)
	server.handleSimulate(context.Background(), nil, SimulateInput{Scenario: "nope"})
	server.Close()

	data, err := os.ReadFile(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit log has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"status":"success"`) || !strings.Contains(lines[0], `"config":"(set)"`) {
		t.Errorf("first entry = %s", lines[0])
	}
	if strings.Contains(lines[0], "simulation:") {
		t.Errorf("audit log leaked the configuration: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"status":"error"`) || !strings.Contains(lines[1], "unknown scenario") {
		t.Errorf("second entry = %s", lines[1])
	}
}
