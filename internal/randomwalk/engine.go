// Package randomwalk implements the stochastic trajectory engine: Brownian
// dynamics integration of an ensemble of particles under position-dependent
// drift and diffusivity, exclusion from solid domains, binding kinetics and
// terminal classification of every trajectory.
package randomwalk

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/field"
	"github.com/nvandessel/porewalk/internal/geometry"
	"github.com/nvandessel/porewalk/internal/logging"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream is the second PCG seed word derived from the run seed.
const pcgStream = 0x9e3779b97f4a7c15

// Engine advances an ensemble of particles through a pore. All active
// particles move together once per Step; domains are resolved afterwards in
// registration order. An Engine is not safe for concurrent use.
type Engine struct {
	cfg     Config
	pore    geometry.Pore
	field   field.Provider
	ens     *Ensemble
	domains []*Domain
	th      Thresholds

	t     float64
	steps int

	seed   uint64
	src    rand.Source
	normal distuv.Normal

	log    *slog.Logger
	events *logging.EventLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventLogger sets the trajectory event trace.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(e *Engine) { e.events = el }
}

// WithSource replaces the seeded random source.
func WithSource(src rand.Source) Option {
	return func(e *Engine) { e.src = src }
}

// New creates an engine with cfg.N particles seeded at the pore entrance and
// registers the pore wall as the first, excluding domain.
func New(pore geometry.Pore, provider field.Provider, cfg Config, opts ...Option) (*Engine, error) {
	if pore == nil || provider == nil {
		return nil, fmt.Errorf("%w: pore and field provider are required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.MaxExtrapolatedSteps == 0 {
		cfg.MaxExtrapolatedSteps = constants.DefaultMaxExtrapolatedSteps
	}

	e := &Engine{
		cfg:   cfg,
		pore:  pore,
		field: provider,
		ens:   newEnsemble(cfg.N),
		log:   logging.Discard(),
		th: Thresholds{
			RTop:         pore.RadiusTop() - cfg.ParticleRadius,
			ZTop:         pore.ZMax(),
			RBot:         pore.RadiusBottom() - cfg.ParticleRadius,
			ZBot:         pore.ZMin(),
			MarginTop:    cfg.MarginTop,
			MarginBottom: cfg.MarginBottom,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.seed = cfg.Seed
		if e.seed == 0 {
			e.seed = rand.Uint64()
		}
		e.src = rand.NewPCG(e.seed, e.seed^pcgStream)
	}
	e.normal = distuv.Normal{Mu: 0, Sigma: 1, Src: e.src}

	if err := e.place(); err != nil {
		return nil, err
	}

	wall := DomainConfig{
		Name:         "pore",
		Exclusion:    true,
		WallDistance: cfg.WallDistance,
		Tolerance:    cfg.Tolerance,
	}
	if _, err := e.AddDomain(pore, wall); err != nil {
		return nil, err
	}

	e.log.Debug("random walk initialized",
		"particles", cfg.N, "dt", cfg.Dt, "seed", e.seed,
		"rtop", e.th.RTop, "ztop", e.th.ZTop, "rbot", e.th.RBot, "zbot", e.th.ZBot)
	return e, nil
}

// AddDomain registers a domain. It takes part in resolution from the next
// step onward, after all previously registered domains.
func (e *Engine) AddDomain(shape geometry.Shape, cfg DomainConfig) (*Domain, error) {
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("domain-%d", len(e.domains))
	}
	if cfg.Binding && cfg.BindType == "" {
		cfg.BindType = BindCollision
	}
	if err := validateDomain(shape, cfg); err != nil {
		return nil, err
	}

	d := &Domain{shape: shape, cfg: cfg, slot: -1}
	if cfg.Exclusion {
		radius := e.cfg.ParticleRadius * cfg.WallDistance
		for _, i := range e.ens.active() {
			if shape.InsideSingle(e.ens.X[i], radius) {
				return nil, fmt.Errorf("%w: %q overlaps particle %d at %v", ErrInvalidDomain, cfg.Name, i, e.ens.X[i])
			}
		}
	}
	if cfg.Binding {
		if cfg.Probability != nil {
			d.prob = *cfg.Probability
		} else {
			// The zone is the shell within the attempt radius of the surface.
			volume := shape.(geometry.ShellVolumer).ShellVolume(d.attemptRadius(e.cfg.ParticleRadius))
			d.prob = associationProbability(cfg.AssociationRate, volume, e.cfg.Dt)
		}
		d.slot = e.ens.addBindingSlot()
	}

	e.domains = append(e.domains, d)
	e.log.Debug("domain registered", "name", cfg.Name, "exclusion", cfg.Exclusion, "binding", cfg.Binding, "p", d.prob)
	return d, nil
}

// Domains returns the registered domains in resolution order.
func (e *Engine) Domains() []*Domain { return e.domains }

// Ensemble returns the particle state. Callers must not mutate it.
func (e *Engine) Ensemble() *Ensemble { return e.ens }

// Thresholds returns the termination planes.
func (e *Engine) Thresholds() Thresholds { return e.th }

// Time returns the elapsed simulated time in ns.
func (e *Engine) Time() float64 { return e.t }

// Steps returns the number of completed steps.
func (e *Engine) Steps() int { return e.steps }

// Seed returns the seed of the random source, or zero if the source was
// supplied through WithSource.
func (e *Engine) Seed() uint64 { return e.seed }

// Finished reports whether every particle has reached a terminal status.
func (e *Engine) Finished() bool { return e.ens.alive == 0 }

// Step advances all active particles by one timestep: sample the fields,
// integrate positions, classify termination and resolve every domain.
func (e *Engine) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	active := e.ens.active()
	if len(active) == 0 {
		return nil
	}

	noise := make([]r3.Vec, len(active))
	for k := range noise {
		noise[k] = r3.Vec{X: e.normal.Rand(), Y: e.normal.Rand(), Z: e.normal.Rand()}
	}

	dx, lost, err := e.increments(ctx, active, noise)
	if err != nil {
		return e.stepError(err)
	}

	e.t += e.cfg.Dt
	e.steps++
	for k, i := range active {
		e.ens.XOld[i] = e.ens.X[i]
		e.ens.FreeTime[i] = e.t
		if lost[k] {
			e.terminate(i, Failed, "extrapolation")
			continue
		}
		e.ens.X[i] = r3.Add(e.ens.X[i], dx[k])
		if s := Classify(e.ens.X[i], e.th); s != Active {
			e.terminate(i, s, "threshold")
		}
	}

	for _, d := range e.domains {
		if err := d.Collide(e); err != nil {
			return e.stepError(err)
		}
	}

	e.log.Log(ctx, logging.LevelTrace, "step", "step", e.steps, "t", e.t, "active", e.ens.alive)
	return nil
}

// Walk returns a lazy sequence of elapsed-time checkpoints. It yields the
// initial time, then once after every completed step until all particles are
// terminal. A fatal error is yielded once and ends the sequence. The caller
// may stop consuming at any checkpoint; the engine stays consistent and can
// be stepped further. Walk does not restart a finished run.
func (e *Engine) Walk(ctx context.Context) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		if !yield(e.t, nil) {
			return
		}
		for !e.Finished() {
			if err := e.Step(ctx); err != nil {
				yield(e.t, err)
				return
			}
			if !yield(e.t, nil) {
				return
			}
		}
	}
}

// Run steps the engine until every particle is terminal or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for _, err := range e.Walk(ctx) {
		if err != nil {
			return err
		}
	}
	return nil
}

// increments samples the fields for the active particles in parallel and
// returns their displacements. lost flags particles the extrapolation
// policy marks as failed.
func (e *Engine) increments(ctx context.Context, active []int, noise []r3.Vec) ([]r3.Vec, []bool, error) {
	dx := make([]r3.Vec, len(active))
	lost := make([]bool, len(active))

	workers := max(1, e.cfg.Workers)
	chunk := (len(active) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(active); lo += chunk {
		hi := min(lo+chunk, len(active))
		g.Go(func() error {
			for k := lo; k < hi; k++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := active[k]
				d, force, err := e.increment(e.ens.X[i], noise[k])
				if err == nil {
					dx[k] = d
					e.ens.force[i] = force
					e.ens.extrapolated[i] = 0
					continue
				}
				if !errors.Is(err, field.ErrExtrapolation) || e.cfg.Extrapolation == constants.ExtrapolateAbort {
					return fmt.Errorf("particle %d: %w", i, err)
				}
				e.ens.force[i] = 0
				e.ens.extrapolated[i]++
				lost[k] = e.cfg.Extrapolation == constants.ExtrapolateFail ||
					e.ens.extrapolated[i] > e.cfg.MaxExtrapolatedSteps
				if !e.ens.warned[i] {
					e.ens.warned[i] = true
					e.log.Warn("field extrapolation", "particle", i, "x", e.ens.X[i], "policy", e.cfg.Extrapolation, "err", err)
				}
				e.events.Log("extrapolation", map[string]any{"particle": i, "t": e.t, "policy": e.cfg.Extrapolation.String()})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return dx, lost, nil
}

// increment computes one Euler-Maruyama displacement at x:
// sqrt(2 dt D) * noise + dt D F / kT + dt div D.
func (e *Engine) increment(x, noise r3.Vec) (r3.Vec, float64, error) {
	s, err := e.field.Evaluate(geometry.Project(x))
	if err != nil {
		return r3.Vec{}, 0, err
	}
	d, f, div := field.Expand(s, x)
	dt := e.cfg.Dt

	brownian := r3.Vec{
		X: math.Sqrt(2*dt*math.Max(d.X, 0)) * noise.X,
		Y: math.Sqrt(2*dt*math.Max(d.Y, 0)) * noise.Y,
		Z: math.Sqrt(2*dt*math.Max(d.Z, 0)) * noise.Z,
	}
	drift := r3.Scale(dt/e.cfg.KT, r3.Vec{X: d.X * f.X, Y: d.Y * f.Y, Z: d.Z * f.Z})
	return r3.Add(r3.Add(brownian, drift), r3.Scale(dt, div)), r3.Norm(f), nil
}

func (e *Engine) terminate(i int, s Status, reason string) {
	if !e.ens.settle(i, s) {
		return
	}
	e.log.Debug("particle terminated", "particle", i, "status", s, "t", e.t, "reason", reason)
	e.events.Log("terminate", map[string]any{
		"particle": i,
		"status":   s.String(),
		"reason":   reason,
		"t":        e.t,
		"x":        []float64{e.ens.X[i].X, e.ens.X[i].Y, e.ens.X[i].Z},
	})
}

func (e *Engine) stepError(err error) error {
	return &StepError{Step: e.steps, Time: e.t, Wrapped: err}
}
