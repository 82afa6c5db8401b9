// Package config provides unified configuration loading for porewalk.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/field"
	"github.com/nvandessel/porewalk/internal/geometry"
	"github.com/nvandessel/porewalk/internal/randomwalk"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Config contains all porewalk configuration settings.
type Config struct {
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Pore       PoreConfig       `json:"pore" yaml:"pore"`
	Field      FieldConfig      `json:"field" yaml:"field"`
	Domains    []DomainConfig   `json:"domains,omitempty" yaml:"domains,omitempty"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Output     OutputConfig     `json:"output" yaml:"output"`
}

// SimulationConfig configures the random walk engine.
type SimulationConfig struct {
	N              int     `json:"n" yaml:"n"`
	Dt             float64 `json:"dt" yaml:"dt"`                           // ns
	ParticleRadius float64 `json:"particle_radius" yaml:"particle_radius"` // nm
	WallDistance   float64 `json:"wall_distance" yaml:"wall_distance"`     // multiples of particle_radius
	Tolerance      float64 `json:"tolerance" yaml:"tolerance"`             // nm
	MarginTop      float64 `json:"margin_top" yaml:"margin_top"`           // nm
	MarginBottom   float64 `json:"margin_bottom" yaml:"margin_bottom"`     // nm

	// Temperature in kelvin. Ignored when KT is set.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// KT overrides the thermal energy in pN*nm.
	KT float64 `json:"kT,omitempty" yaml:"kT,omitempty"`

	// Seed of the random source; 0 draws one.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Workers bounds parallel field sampling; 0 uses all CPUs.
	Workers int `json:"workers" yaml:"workers"`

	// Extrapolation is "zero", "fail" or "abort".
	Extrapolation string `json:"extrapolation" yaml:"extrapolation"`

	// MaxExtrapolatedSteps fails a particle after this many consecutive
	// steps outside the field under the "zero" policy.
	MaxExtrapolatedSteps int `json:"max_extrapolated_steps" yaml:"max_extrapolated_steps"`

	// Initial is "disc", "sphere" or "point".
	Initial     string    `json:"initial" yaml:"initial"`
	StartRadius float64   `json:"start_radius,omitempty" yaml:"start_radius,omitempty"`
	StartPoint  []float64 `json:"start_point,omitempty" yaml:"start_point,omitempty"`
}

// PoreConfig describes the pore. A non-empty Profile takes precedence over
// the cylinder parameters.
type PoreConfig struct {
	// Profile lists [r, z] points of the inner wall from top to bottom.
	Profile [][2]float64 `json:"profile,omitempty" yaml:"profile,omitempty"`

	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	ZMin   float64 `json:"zmin" yaml:"zmin"`
	ZMax   float64 `json:"zmax" yaml:"zmax"`

	Outer float64 `json:"outer" yaml:"outer"`
}

// FieldConfig selects the force and diffusivity field. A non-empty Grid
// takes precedence over the uniform values.
type FieldConfig struct {
	// Grid is an Arrow IPC file with columns r, z, dn, dt, fr, fz. Relative
	// paths are resolved against the directory of the config file.
	Grid string `json:"grid,omitempty" yaml:"grid,omitempty"`

	D  float64 `json:"D" yaml:"D"`   // nm^2/ns
	Fr float64 `json:"fr" yaml:"fr"` // pN
	Fz float64 `json:"fz" yaml:"fz"` // pN
}

// DomainConfig describes an additional exclusion or binding domain.
type DomainConfig struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Shape is "ball" or "polygon".
	Shape string `json:"shape" yaml:"shape"`

	// Center of a ball. Ignored when Anchor is set.
	Center []float64     `json:"center,omitempty" yaml:"center,omitempty"`
	Anchor *AnchorConfig `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Radius float64       `json:"radius,omitempty" yaml:"radius,omitempty"`

	// Nodes of a polygon as [r, z] points.
	Nodes [][2]float64 `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	Exclusion       bool     `json:"exclusion" yaml:"exclusion"`
	Binding         bool     `json:"binding" yaml:"binding"`
	WallDistance    float64  `json:"wall_distance" yaml:"wall_distance"`
	Tolerance       float64  `json:"tolerance" yaml:"tolerance"`
	Probability     *float64 `json:"probability,omitempty" yaml:"probability,omitempty"`
	MeanBoundTime   float64  `json:"mean_bound_time,omitempty" yaml:"mean_bound_time,omitempty"` // ns
	ReattemptMargin float64  `json:"reattempt_margin" yaml:"reattempt_margin"`
	BindType        string   `json:"bind_type" yaml:"bind_type"`
	ZoneRadius      float64  `json:"zone_radius,omitempty" yaml:"zone_radius,omitempty"`
	AssociationRate float64  `json:"association_rate,omitempty" yaml:"association_rate,omitempty"` // 1/(M*s)
	UseForce        bool     `json:"use_force" yaml:"use_force"`
	BarrierWidth    float64  `json:"barrier_width" yaml:"barrier_width"`
}

// AnchorConfig places a ball against the pore wall.
type AnchorConfig struct {
	// Height along the pore, 0 = bottom, 1 = top.
	Height float64 `json:"height" yaml:"height"`

	// Offset of the ball centre from the wall towards the axis, in nm.
	Offset float64 `json:"offset" yaml:"offset"`
}

// LoggingConfig configures porewalk's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" and "trace" enable the event trace in the output directory.
	Level string `json:"level" yaml:"level"`
}

// OutputConfig configures where results go.
type OutputConfig struct {
	// Dir holds the run store and event trace. Empty means ~/.porewalk.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Arrow is an optional path for the per-particle outcome table.
	Arrow string `json:"arrow,omitempty" yaml:"arrow,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	wc := randomwalk.DefaultConfig()
	return &Config{
		Simulation: SimulationConfig{
			N:                    wc.N,
			Dt:                   wc.Dt,
			ParticleRadius:       wc.ParticleRadius,
			WallDistance:         wc.WallDistance,
			Tolerance:            wc.Tolerance,
			MarginTop:            wc.MarginTop,
			MarginBottom:         wc.MarginBottom,
			Temperature:          constants.DefaultTemperature,
			Extrapolation:        string(constants.ExtrapolateZero),
			MaxExtrapolatedSteps: wc.MaxExtrapolatedSteps,
			Initial:              string(constants.PlacementDisc),
		},
		Pore: PoreConfig{
			Radius: constants.DefaultPoreRadius,
			ZMin:   constants.DefaultPoreZMin,
			ZMax:   constants.DefaultPoreZMax,
			Outer:  constants.DefaultOuterRadius,
		},
		Field: FieldConfig{
			D: constants.DefaultDiffusivity,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDomain returns the defaults applied to every configured domain.
func DefaultDomain() DomainConfig {
	dc := randomwalk.DefaultDomainConfig()
	return DomainConfig{
		Shape:           "ball",
		Exclusion:       dc.Exclusion,
		WallDistance:    dc.WallDistance,
		Tolerance:       dc.Tolerance,
		ReattemptMargin: dc.ReattemptMargin,
		BindType:        string(dc.BindType),
		BarrierWidth:    dc.BarrierWidth,
	}
}

// UnmarshalYAML fills unset domain fields with DefaultDomain values.
func (d *DomainConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain DomainConfig
	p := plain(DefaultDomain())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = DomainConfig(p)
	return nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.porewalk/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".porewalk", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	ApplyEnvOverrides(config)
	return config, nil
}

// LoadPath loads configuration from path, or the default locations when path
// is empty, and applies environment variable overrides.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if g := config.Field.Grid; g != "" && !filepath.IsAbs(g) {
		config.Field.Grid = filepath.Join(filepath.Dir(path), g)
	}
	config.Output.Dir = expandEnvVars(config.Output.Dir)
	return config, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// YAML returns the configuration encoded as YAML.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(data), nil
}

// Validate checks that the configuration is valid. Geometry and domain
// parameters are checked further when the simulation is built.
func (c *Config) Validate() error {
	if _, err := c.RandomWalk(); err != nil {
		return err
	}

	if len(c.Pore.Profile) == 0 && !(c.Pore.Radius > 0) {
		return errors.New("pore: either profile or a positive radius is required")
	}

	if c.Field.Grid == "" && c.Field.D < 0 {
		return fmt.Errorf("field: D must be non-negative, got %g", c.Field.D)
	}

	for i, d := range c.Domains {
		switch d.Shape {
		case "ball":
			if d.Anchor == nil && len(d.Center) != 3 {
				return fmt.Errorf("domain %d: ball needs a 3-element center or an anchor", i)
			}
		case "polygon":
			if len(d.Nodes) < 3 {
				return fmt.Errorf("domain %d: polygon needs at least 3 nodes", i)
			}
		default:
			return fmt.Errorf("domain %d: invalid shape: %s (valid: ball, polygon)", i, d.Shape)
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// RandomWalk converts the simulation section to an engine configuration.
func (c *Config) RandomWalk() (randomwalk.Config, error) {
	s := c.Simulation
	kT := s.KT
	if kT == 0 {
		kT = randomwalk.KT(s.Temperature)
	}
	wc := randomwalk.Config{
		N:                    s.N,
		Dt:                   s.Dt,
		ParticleRadius:       s.ParticleRadius,
		WallDistance:         s.WallDistance,
		Tolerance:            s.Tolerance,
		MarginTop:            s.MarginTop,
		MarginBottom:         s.MarginBottom,
		KT:                   kT,
		Seed:                 s.Seed,
		Workers:              s.Workers,
		Extrapolation:        constants.Extrapolation(s.Extrapolation),
		MaxExtrapolatedSteps: s.MaxExtrapolatedSteps,
		Placement:            constants.Placement(s.Initial),
		StartRadius:          s.StartRadius,
	}
	if len(s.StartPoint) > 0 {
		if len(s.StartPoint) != 3 {
			return wc, fmt.Errorf("%w: start_point needs 3 coordinates, got %d", randomwalk.ErrInvalidConfig, len(s.StartPoint))
		}
		wc.StartPoint = r3.Vec{X: s.StartPoint[0], Y: s.StartPoint[1], Z: s.StartPoint[2]}
	}
	return wc, wc.Validate()
}

// BuildPore constructs the pore geometry.
func (p PoreConfig) BuildPore() (*geometry.ProfilePore, error) {
	if len(p.Profile) == 0 {
		return geometry.NewCylinder(p.Radius, p.ZMin, p.ZMax, p.Outer)
	}
	return geometry.NewProfilePore(toR2(p.Profile), p.Outer)
}

// Provider constructs the field provider.
func (f FieldConfig) Provider() (field.Provider, error) {
	if f.Grid != "" {
		return field.LoadGrid(f.Grid)
	}
	return field.Uniform{D: f.D, Fr: f.Fr, Fz: f.Fz}, nil
}

// Build constructs the domain shape, resolving wall anchors against pore,
// and the engine domain configuration.
func (d DomainConfig) Build(pore geometry.Pore) (geometry.Shape, randomwalk.DomainConfig, error) {
	dc := randomwalk.DomainConfig{
		Name:            d.Name,
		Exclusion:       d.Exclusion,
		Binding:         d.Binding,
		WallDistance:    d.WallDistance,
		Tolerance:       d.Tolerance,
		Probability:     d.Probability,
		MeanBoundTime:   d.MeanBoundTime,
		ReattemptMargin: d.ReattemptMargin,
		BindType:        randomwalk.BindType(d.BindType),
		ZoneRadius:      d.ZoneRadius,
		AssociationRate: d.AssociationRate,
		UseForce:        d.UseForce,
		BarrierWidth:    d.BarrierWidth,
	}

	switch d.Shape {
	case "ball":
		var center r3.Vec
		switch {
		case d.Anchor != nil:
			center = geometry.WallAnchor(pore, d.Anchor.Height, d.Anchor.Offset, d.Radius)
		case len(d.Center) == 3:
			center = r3.Vec{X: d.Center[0], Y: d.Center[1], Z: d.Center[2]}
		default:
			return nil, dc, fmt.Errorf("%w: ball %q needs a 3-element center or an anchor", geometry.ErrInvalidShape, d.Name)
		}
		ball, err := geometry.NewBall(center, d.Radius)
		if err != nil {
			return nil, dc, err
		}
		return ball, dc, nil
	case "polygon":
		poly, err := geometry.NewPolygon(toR2(d.Nodes))
		if err != nil {
			return nil, dc, err
		}
		return poly, dc, nil
	}
	return nil, dc, fmt.Errorf("%w: unknown shape %q", geometry.ErrInvalidShape, d.Shape)
}

func toR2(pts [][2]float64) []r2.Vec {
	out := make([]r2.Vec, len(pts))
	for i, p := range pts {
		out[i] = r2.Vec{X: p[0], Y: p[1]}
	}
	return out
}

// ApplyEnvOverrides applies POREWALK_* environment variable overrides to config.
func ApplyEnvOverrides(config *Config) {
	if v := os.Getenv("POREWALK_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.N = n
		}
	}
	if v := os.Getenv("POREWALK_DT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Dt = f
		}
	}
	if v := os.Getenv("POREWALK_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}
	if v := os.Getenv("POREWALK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}
	if v := os.Getenv("POREWALK_EXTRAPOLATION"); v != "" {
		config.Simulation.Extrapolation = v
	}
	if v := os.Getenv("POREWALK_FIELD_GRID"); v != "" {
		config.Field.Grid = v
	}
	if v := os.Getenv("POREWALK_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := os.Getenv("POREWALK_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
