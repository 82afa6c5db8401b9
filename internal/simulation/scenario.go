package simulation

import (
	"slices"

	"github.com/nvandessel/porewalk/internal/config"
	"github.com/nvandessel/porewalk/internal/constants"
)

// Scenario is a named, ready-made experiment configuration.
type Scenario struct {
	Name        string
	Description string

	// Config returns a fresh configuration; callers may modify it.
	Config func() *config.Config
}

var scenarios = []Scenario{
	{
		Name:        "default",
		Description: "free diffusion through a straight 20 nm pore",
		Config:      config.Default,
	},
	{
		Name:        "receptor",
		Description: "straight pore with an excluding receptor ball that binds on contact",
		Config:      receptorScenario,
	},
	{
		Name:        "wei",
		Description: "conical solid-state pore with a wall receptor binding in its association zone",
		Config:      weiScenario,
	},
}

// Scenarios returns all built-in scenarios.
func Scenarios() []Scenario {
	return slices.Clone(scenarios)
}

// LookupScenario returns the scenario with the given name.
func LookupScenario(name string) (Scenario, bool) {
	i := slices.IndexFunc(scenarios, func(s Scenario) bool { return s.Name == name })
	if i < 0 {
		return Scenario{}, false
	}
	return scenarios[i], true
}

func receptorScenario() *config.Config {
	cfg := config.Default()

	receptor := config.DefaultDomain()
	receptor.Name = "receptor"
	receptor.Center = []float64{9, 0, -30}
	receptor.Radius = 8
	receptor.WallDistance = 1
	receptor.Binding = true
	receptor.Probability = probability(0.1)
	receptor.MeanBoundTime = 1e6
	receptor.ReattemptMargin = 1
	cfg.Domains = []config.DomainConfig{receptor}
	return cfg
}

func weiScenario() *config.Config {
	const (
		particleRadius = 1.25
		receptorRadius = 0.5
		// Distance of the receptor centre from the wall.
		receptorOffset = 4 - particleRadius - receptorRadius
	)

	cfg := config.Default()
	cfg.Simulation.N = 100
	cfg.Simulation.ParticleRadius = particleRadius
	cfg.Simulation.MarginTop = 60
	cfg.Simulation.MarginBottom = 0
	cfg.Simulation.Initial = string(constants.PlacementSphere)
	cfg.Simulation.StartRadius = 30

	cfg.Pore = config.PoreConfig{
		Profile: [][2]float64{{22.5, 46.5}, {12.5, 20}, {9.5, 0}},
		Outer:   constants.DefaultOuterRadius,
	}
	cfg.Field = config.FieldConfig{D: 0.196, Fz: -1}

	receptor := config.DefaultDomain()
	receptor.Name = "receptor"
	receptor.Radius = receptorRadius
	receptor.Anchor = &config.AnchorConfig{Height: 0.99, Offset: receptorOffset}
	receptor.Exclusion = false
	receptor.WallDistance = 1
	receptor.Binding = true
	receptor.Probability = probability(0.0187)
	receptor.MeanBoundTime = 3.82e9
	receptor.ReattemptMargin = 0
	receptor.BindType = "zone"
	receptor.ZoneRadius = receptorOffset - receptorRadius
	receptor.UseForce = true
	receptor.BarrierWidth = 0.1
	cfg.Domains = []config.DomainConfig{receptor}
	return cfg
}

func probability(p float64) *float64 { return &p }
