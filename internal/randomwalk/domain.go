package randomwalk

import (
	"fmt"
	"math"

	"github.com/nvandessel/porewalk/internal/collision"
	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/geometry"
)

// BindType selects what counts as a binding attempt.
type BindType string

const (
	// BindCollision attempts binding whenever the particle collides with the domain.
	BindCollision BindType = "collision"

	// BindZone attempts binding whenever the particle enters the
	// association zone around the domain.
	BindZone BindType = "zone"
)

// DomainConfig configures exclusion and binding for one domain.
type DomainConfig struct {
	Name string

	// Exclusion truncates steps that end inside the domain.
	Exclusion bool

	// Binding enables stochastic association/dissociation.
	Binding bool

	// WallDistance is the collision radius in multiples of the particle radius.
	WallDistance float64

	// Tolerance is the bisection accuracy in nm.
	Tolerance float64

	// Probability is the binding probability of one attempt. It may be left
	// nil when AssociationRate is set.
	Probability *float64

	// MeanBoundTime is the mean of the exponentially distributed bound
	// duration, in ns.
	MeanBoundTime float64

	// ReattemptMargin is added to the attempt radius to form the shell a
	// particle must leave before it may attempt again, in nm.
	ReattemptMargin float64

	BindType BindType

	// ZoneRadius is the radius of the association zone beyond the domain
	// surface, not counting the particle radius, in nm.
	ZoneRadius float64

	// AssociationRate is the bulk association rate constant in 1/(M*s).
	// When set and Probability is nil, the per-step probability follows
	// from the rate and the association zone volume.
	AssociationRate float64

	// UseForce scales the mean bound time by exp(-|F|*BarrierWidth/kT).
	UseForce     bool
	BarrierWidth float64
}

// Probability returns a pointer to p for DomainConfig.Probability.
func Probability(p float64) *float64 {
	return &p
}

// DefaultDomainConfig returns an excluding, non-binding domain configuration.
func DefaultDomainConfig() DomainConfig {
	return DomainConfig{
		Exclusion:       true,
		WallDistance:    constants.DefaultDomainWallDistance,
		Tolerance:       constants.DefaultTolerance,
		ReattemptMargin: constants.DefaultReattemptMargin,
		BindType:        BindCollision,
		BarrierWidth:    constants.DefaultBarrierWidth,
	}
}

// Domain is a registered geometric region with its exclusion and binding
// policy. Domains are read-only during a step.
type Domain struct {
	shape geometry.Shape
	cfg   DomainConfig

	// prob is the resolved binding probability per attempt.
	prob float64

	// slot indexes the ensemble's binding eligibility rows, -1 without binding.
	slot int
}

// Name returns the domain name.
func (d *Domain) Name() string { return d.cfg.Name }

// Config returns the domain configuration.
func (d *Domain) Config() DomainConfig { return d.cfg }

// BindingProbability returns the resolved binding probability per attempt.
func (d *Domain) BindingProbability() float64 { return d.prob }

// Slot returns the binding eligibility slot, or -1 without binding.
func (d *Domain) Slot() int { return d.slot }

func validateDomain(shape geometry.Shape, cfg DomainConfig) error {
	if shape == nil {
		return fmt.Errorf("%w: %q has no shape", ErrInvalidDomain, cfg.Name)
	}
	if !(cfg.WallDistance > 0) {
		return fmt.Errorf("%w: %q wall distance must be positive, got %g", ErrInvalidDomain, cfg.Name, cfg.WallDistance)
	}
	if cfg.Exclusion && !(cfg.Tolerance > 0) {
		return fmt.Errorf("%w: %q tolerance must be positive, got %g", ErrInvalidDomain, cfg.Name, cfg.Tolerance)
	}
	if !cfg.Binding {
		return nil
	}

	if cfg.ReattemptMargin < 0 {
		return fmt.Errorf("%w: %q re-attempt margin must be non-negative, got %g", ErrInvalidDomain, cfg.Name, cfg.ReattemptMargin)
	}
	if !(cfg.MeanBoundTime > 0) {
		return fmt.Errorf("%w: %q binding needs a positive mean bound time", ErrInvalidDomain, cfg.Name)
	}
	switch cfg.BindType {
	case BindCollision:
	case BindZone:
		if !(cfg.ZoneRadius > 0) {
			return fmt.Errorf("%w: %q zone binding needs a positive zone radius", ErrInvalidDomain, cfg.Name)
		}
	default:
		return fmt.Errorf("%w: %q unknown bind type %q", ErrInvalidDomain, cfg.Name, cfg.BindType)
	}
	if cfg.Probability == nil {
		if !(cfg.AssociationRate > 0) {
			return fmt.Errorf("%w: %q binding needs a probability or an association rate", ErrInvalidDomain, cfg.Name)
		}
		if _, ok := shape.(geometry.ShellVolumer); !ok {
			return fmt.Errorf("%w: %q association rate needs a shape with a zone volume (ball)", ErrInvalidDomain, cfg.Name)
		}
	}
	if p := cfg.Probability; p != nil && (*p < 0 || *p > 1 || math.IsNaN(*p)) {
		return fmt.Errorf("%w: %q binding probability must be in [0, 1], got %g", ErrInvalidDomain, cfg.Name, *p)
	}
	if cfg.UseForce && !(cfg.BarrierWidth > 0) {
		return fmt.Errorf("%w: %q force-dependent dissociation needs a positive barrier width", ErrInvalidDomain, cfg.Name)
	}
	return nil
}

// attemptRadius is the radius at which a particle attempts binding.
func (d *Domain) attemptRadius(particleRadius float64) float64 {
	if d.cfg.BindType == BindZone {
		return d.cfg.ZoneRadius + particleRadius
	}
	return particleRadius * d.cfg.WallDistance
}

// associationProbability converts a bulk association rate into a per-step
// probability for a single particle confined to an association zone of the
// given volume in nm^3.
func associationProbability(rate, volume, dt float64) float64 {
	conc := 1 / (constants.Avogadro * volume * constants.LitersPerCubicNM)
	return 1 - math.Exp(-rate*conc*dt*constants.SecondsPerNS)
}

// Collide resolves collisions of the currently active particles with the
// domain: steps ending within the collision radius are truncated to the
// boundary when exclusion is enabled, then binding kinetics are applied.
func (d *Domain) Collide(e *Engine) error {
	active := e.ens.active()
	if len(active) == 0 {
		return nil
	}

	radius := e.cfg.ParticleRadius * d.cfg.WallDistance
	collided := d.shape.Inside(e.ens.positions(active), radius)

	if d.cfg.Exclusion {
		for k, i := range active {
			if !collided[k] {
				continue
			}
			x, err := collision.Bisect(d.shape, e.ens.XOld[i], e.ens.X[i], radius, d.cfg.Tolerance)
			if err != nil {
				return fmt.Errorf("domain %q: particle %d: %w", d.cfg.Name, i, err)
			}
			e.ens.X[i] = x
		}
	}

	if d.cfg.Binding {
		attempt := collided
		if d.cfg.BindType == BindZone {
			attempt = d.shape.Inside(e.ens.positions(active), d.attemptRadius(e.cfg.ParticleRadius))
		}
		d.bind(e, active, attempt)
	}
	return nil
}
