package randomwalk

import (
	"fmt"
	"math"
	"runtime"

	"github.com/nvandessel/porewalk/internal/constants"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds the parameters of a random walk run.
type Config struct {
	// N is the number of simultaneous random walks.
	N int

	// Dt is the timestep in ns.
	Dt float64

	// ParticleRadius is the particle radius in nm.
	ParticleRadius float64

	// WallDistance is the pore wall collision radius in multiples of
	// ParticleRadius. Should be >= 1.
	WallDistance float64

	// Tolerance is the bisection accuracy at the pore wall in nm.
	Tolerance float64

	// MarginTop and MarginBottom extend the termination planes beyond the
	// pore extrema, in nm.
	MarginTop    float64
	MarginBottom float64

	// KT is the thermal energy in pN*nm.
	KT float64

	// Seed seeds the random source. Zero draws a random seed.
	Seed uint64

	// Workers bounds the goroutines sampling fields within a step.
	// Zero means GOMAXPROCS.
	Workers int

	// Extrapolation is the policy for field samples outside the valid domain.
	Extrapolation constants.Extrapolation

	// MaxExtrapolatedSteps bounds the consecutive zero-field steps a particle
	// may take under ExtrapolateZero; the next one fails it. Zero means
	// constants.DefaultMaxExtrapolatedSteps.
	MaxExtrapolatedSteps int

	// Placement selects initial positions. StartRadius is the hemisphere
	// radius for PlacementSphere, StartPoint the position for PlacementPoint.
	Placement   constants.Placement
	StartRadius float64
	StartPoint  r3.Vec
}

// DefaultConfig returns the default random walk configuration.
func DefaultConfig() Config {
	return Config{
		N:                    constants.DefaultParticles,
		Dt:                   constants.DefaultTimestep,
		ParticleRadius:       constants.DefaultParticleRadius,
		WallDistance:         constants.DefaultWallDistance,
		Tolerance:            constants.DefaultTolerance,
		MarginTop:            constants.DefaultMarginTop,
		MarginBottom:         constants.DefaultMarginBottom,
		KT:                   KT(constants.DefaultTemperature),
		Workers:              runtime.GOMAXPROCS(0),
		Extrapolation:        constants.ExtrapolateZero,
		MaxExtrapolatedSteps: constants.DefaultMaxExtrapolatedSteps,
		Placement:            constants.PlacementDisc,
	}
}

// KT returns the thermal energy in pN*nm at temperature kelvin.
func KT(kelvin float64) float64 {
	return constants.BoltzmannPNNM * kelvin
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"dt", c.Dt},
		{"particle_radius", c.ParticleRadius},
		{"wall_distance", c.WallDistance},
		{"tolerance", c.Tolerance},
		{"kT", c.KT},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidConfig, p.name, p.v)
		}
	}
	if c.N <= 0 {
		return fmt.Errorf("%w: n must be positive, got %d", ErrInvalidConfig, c.N)
	}
	if c.MarginTop < 0 || c.MarginBottom < 0 {
		return fmt.Errorf("%w: margins must be non-negative, got top=%g bottom=%g", ErrInvalidConfig, c.MarginTop, c.MarginBottom)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxExtrapolatedSteps < 0 {
		return fmt.Errorf("%w: max_extrapolated_steps must be non-negative, got %d", ErrInvalidConfig, c.MaxExtrapolatedSteps)
	}
	if !c.Extrapolation.Valid() {
		return fmt.Errorf("%w: unknown extrapolation policy %q", ErrInvalidConfig, c.Extrapolation)
	}
	if !c.Placement.Valid() {
		return fmt.Errorf("%w: unknown placement %q", ErrInvalidConfig, c.Placement)
	}
	if c.Placement == constants.PlacementSphere && c.StartRadius <= 0 {
		return fmt.Errorf("%w: sphere placement needs a positive start radius", ErrInvalidConfig)
	}
	return nil
}

// Thresholds are the termination planes derived from the pore extrema.
type Thresholds struct {
	RTop, ZTop float64
	RBot, ZBot float64

	MarginTop    float64
	MarginBottom float64
}

// Classify returns the status implied by position p. A particle fails when
// it escapes back above the pore top and succeeds when it clears the pore
// bottom; otherwise it remains active.
func Classify(p r3.Vec, th Thresholds) Status {
	r, z := math.Hypot(p.X, p.Y), p.Z
	if z > th.ZTop+th.MarginTop || (r > th.RTop+th.MarginTop && z > th.ZTop) {
		return Failed
	}
	if z < th.ZBot-th.MarginBottom || (r > th.RBot+th.MarginBottom && z < th.ZBot) {
		return Succeeded
	}
	return Active
}
