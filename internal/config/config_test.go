package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/field"
	"github.com/nvandessel/porewalk/internal/geometry"
	"github.com/nvandessel/porewalk/internal/randomwalk"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Simulation.N != constants.DefaultParticles {
		t.Errorf("expected N %d, got %d", constants.DefaultParticles, config.Simulation.N)
	}
	if config.Simulation.Extrapolation != "zero" {
		t.Errorf("expected extrapolation 'zero', got '%s'", config.Simulation.Extrapolation)
	}
	if config.Simulation.Initial != "disc" {
		t.Errorf("expected initial 'disc', got '%s'", config.Simulation.Initial)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	wc, err := config.RandomWalk()
	if err != nil {
		t.Fatalf("RandomWalk() error = %v", err)
	}
	if want := randomwalk.KT(constants.DefaultTemperature); wc.KT != want {
		t.Errorf("expected kT %g from temperature, got %g", want, wc.KT)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sim.yaml")

	configContent := `
simulation:
  n: 500
  dt: 0.5
  particle_radius: 3
  kT: 4.1
  seed: 99
  extrapolation: fail
  initial: point
  start_point: [0, 0, -5]

pore:
  profile:
    - [15, 0]
    - [10, -20]
    - [12, -40]
  outer: 60

field:
  grid: fields/wei.arrow

domains:
  - name: receptor
    radius: 8
    anchor: {height: 0.5, offset: 1}
    binding: true
    probability: 0.1
    mean_bound_time: 1e6
  - shape: polygon
    exclusion: false
    nodes: [[0, -60], [5, -60], [5, -70]]

logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	s := config.Simulation
	if s.N != 500 || s.Dt != 0.5 || s.ParticleRadius != 3 || s.Seed != 99 {
		t.Errorf("simulation = %+v", s)
	}
	// Unset fields keep their defaults.
	if s.MarginTop != constants.DefaultMarginTop {
		t.Errorf("expected default margin_top, got %g", s.MarginTop)
	}
	if want := filepath.Join(tmpDir, "fields", "wei.arrow"); config.Field.Grid != want {
		t.Errorf("expected grid path %s, got %s", want, config.Field.Grid)
	}
	if len(config.Domains) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(config.Domains))
	}

	receptor := config.Domains[0]
	if receptor.Shape != "ball" || !receptor.Exclusion || !receptor.Binding {
		t.Errorf("receptor = %+v", receptor)
	}
	if receptor.Probability == nil || *receptor.Probability != 0.1 {
		t.Errorf("expected probability 0.1, got %v", receptor.Probability)
	}
	if receptor.WallDistance != constants.DefaultDomainWallDistance || receptor.ReattemptMargin != constants.DefaultReattemptMargin {
		t.Errorf("domain defaults not applied: %+v", receptor)
	}
	if config.Domains[1].Exclusion {
		t.Error("expected explicit exclusion: false to override the default")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	wc, err := config.RandomWalk()
	if err != nil {
		t.Fatalf("RandomWalk() error = %v", err)
	}
	if wc.KT != 4.1 || wc.StartPoint != (r3.Vec{Z: -5}) || wc.Extrapolation != constants.ExtrapolateFail {
		t.Errorf("RandomWalk() = %+v", wc)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("simulation: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero particles", mutate: func(c *Config) { c.Simulation.N = 0 }, wantErr: "n must be positive"},
		{name: "unknown policy", mutate: func(c *Config) { c.Simulation.Extrapolation = "clamp" }, wantErr: "extrapolation"},
		{name: "short start point", mutate: func(c *Config) { c.Simulation.StartPoint = []float64{1} }, wantErr: "start_point"},
		{name: "no pore", mutate: func(c *Config) { c.Pore.Radius = 0 }, wantErr: "pore"},
		{name: "negative D", mutate: func(c *Config) { c.Field.D = -1 }, wantErr: "D must be non-negative"},
		{name: "unknown shape", mutate: func(c *Config) { c.Domains = []DomainConfig{{Shape: "cube"}} }, wantErr: "invalid shape"},
		{name: "ball without center", mutate: func(c *Config) { c.Domains = []DomainConfig{{Shape: "ball", Radius: 1}} }, wantErr: "center"},
		{name: "small polygon", mutate: func(c *Config) { c.Domains = []DomainConfig{{Shape: "polygon"}} }, wantErr: "3 nodes"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POREWALK_N", "42")
	t.Setenv("POREWALK_DT", "0.25")
	t.Setenv("POREWALK_SEED", "7")
	t.Setenv("POREWALK_WORKERS", "3")
	t.Setenv("POREWALK_EXTRAPOLATION", "abort")
	t.Setenv("POREWALK_OUTPUT_DIR", "/tmp/porewalk-test")
	t.Setenv("POREWALK_LOG_LEVEL", "trace")

	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  n: 5\n"), 0600); err != nil {
		t.Fatal(err)
	}
	config, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}

	s := config.Simulation
	if s.N != 42 || s.Dt != 0.25 || s.Seed != 7 || s.Workers != 3 || s.Extrapolation != "abort" {
		t.Errorf("env overrides not applied: %+v", s)
	}
	if config.Output.Dir != "/tmp/porewalk-test" || config.Logging.Level != "trace" {
		t.Errorf("output/logging overrides not applied: %+v %+v", config.Output, config.Logging)
	}
}

func TestEnvOverrides_IgnoresMalformed(t *testing.T) {
	t.Setenv("POREWALK_N", "many")
	config := Default()
	ApplyEnvOverrides(config)
	if config.Simulation.N != constants.DefaultParticles {
		t.Errorf("malformed POREWALK_N changed N to %d", config.Simulation.N)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	config := Default()
	config.Domains = []DomainConfig{DefaultDomain()}
	config.Domains[0].Center = []float64{0, 0, -20}
	config.Domains[0].Radius = 3

	text, err := config.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	parsed, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Simulation.N != config.Simulation.N || parsed.Simulation.Temperature != config.Simulation.Temperature {
		t.Errorf("simulation changed: %+v", parsed.Simulation)
	}
	if len(parsed.Domains) != 1 || parsed.Domains[0].Radius != 3 || parsed.Domains[0].Center[2] != -20 {
		t.Errorf("domains changed: %+v", parsed.Domains)
	}
}

func TestBuild(t *testing.T) {
	config := Default()
	pore, err := config.Pore.BuildPore()
	if err != nil {
		t.Fatalf("BuildPore() error = %v", err)
	}
	if pore.RadiusTop() != constants.DefaultPoreRadius || pore.ZMin() != constants.DefaultPoreZMin {
		t.Errorf("default pore = top %g zmin %g", pore.RadiusTop(), pore.ZMin())
	}

	provider, err := config.Field.Provider()
	if err != nil {
		t.Fatalf("Provider() error = %v", err)
	}
	if u, ok := provider.(field.Uniform); !ok || u.D != constants.DefaultDiffusivity {
		t.Errorf("Provider() = %#v, want uniform default", provider)
	}

	dc := DefaultDomain()
	dc.Radius = 4
	dc.Anchor = &AnchorConfig{Height: 0.5, Offset: 1}
	shape, wdc, err := dc.Build(pore)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ball, ok := shape.(*geometry.Ball)
	if !ok {
		t.Fatalf("Build() shape = %T, want *geometry.Ball", shape)
	}
	if want := (r3.Vec{X: constants.DefaultPoreRadius - 1, Z: -25}); ball.Center != want {
		t.Errorf("anchored center = %v, want %v", ball.Center, want)
	}
	if !wdc.Exclusion || wdc.BindType != randomwalk.BindCollision {
		t.Errorf("engine domain config = %+v", wdc)
	}

	bad := DefaultDomain()
	bad.Shape = "polygon"
	if _, _, err := bad.Build(pore); !errors.Is(err, geometry.ErrInvalidShape) {
		t.Errorf("Build() empty polygon = %v, want ErrInvalidShape", err)
	}

	missing := Default()
	missing.Field.Grid = filepath.Join(t.TempDir(), "missing.arrow")
	if _, err := missing.Field.Provider(); err == nil {
		t.Error("expected error loading a missing grid")
	}
}
