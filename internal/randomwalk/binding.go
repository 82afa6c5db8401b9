package randomwalk

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// bind applies association/dissociation kinetics to the active particles.
//
// A particle eligible to bind that is flagged in attempt makes one attempt:
// with the domain's probability it binds for an exponentially distributed
// duration that is added to its bound time. Any attempt, successful or not,
// clears eligibility until the particle leaves the re-attempt shell.
// Particles that were ineligible at the start of the call and now lie
// outside the shell become eligible again.
func (d *Domain) bind(e *Engine, active []int, attempt []bool) {
	canBind := e.ens.canBind[d.slot]
	eligible := make([]bool, len(active))
	for k, i := range active {
		eligible[k] = canBind[i]
	}

	trial := distuv.Bernoulli{P: d.prob, Src: e.src}
	for k, i := range active {
		if !eligible[k] || !attempt[k] {
			continue
		}
		e.ens.Attempts[i]++
		canBind[i] = false
		if trial.Rand() == 0 {
			e.events.Log("attempt", map[string]any{"domain": d.cfg.Name, "particle": i, "t": e.t})
			continue
		}

		mean := d.meanBoundTime(e, i)
		dwell := distuv.Exponential{Rate: 1 / mean, Src: e.src}.Rand()
		e.ens.BoundTime[i] += dwell
		e.ens.Bindings[i]++
		e.events.Log("bind", map[string]any{"domain": d.cfg.Name, "particle": i, "t": e.t, "duration": dwell})
	}

	shell := d.attemptRadius(e.cfg.ParticleRadius) + d.cfg.ReattemptMargin
	for k, i := range active {
		if eligible[k] || d.shape.InsideSingle(e.ens.X[i], shell) {
			continue
		}
		canBind[i] = true
		e.events.Log("release", map[string]any{"domain": d.cfg.Name, "particle": i, "t": e.t})
	}
}

// meanBoundTime returns the mean dwell for particle i, shortened by the
// force acting on it when force-dependent dissociation is enabled.
func (d *Domain) meanBoundTime(e *Engine, i int) float64 {
	if !d.cfg.UseForce {
		return d.cfg.MeanBoundTime
	}
	return d.cfg.MeanBoundTime * math.Exp(-e.ens.force[i]*d.cfg.BarrierWidth/e.cfg.KT)
}
