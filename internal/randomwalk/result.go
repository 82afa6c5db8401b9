package randomwalk

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// ParticleOutcome is the final record of one trajectory.
type ParticleOutcome struct {
	Index     int     `json:"index"`
	Status    Status  `json:"-"`
	Outcome   string  `json:"outcome"`
	TotalTime float64 `json:"total_time"`
	FreeTime  float64 `json:"free_time"`
	BoundTime float64 `json:"bound_time"`
	Attempts  int     `json:"attempts"`
	Bindings  int     `json:"bindings"`
}

// Summary aggregates the ensemble.
type Summary struct {
	Particles int `json:"particles"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Active    int `json:"active"`

	MeanAttempts float64 `json:"mean_attempts"`
	MeanBindings float64 `json:"mean_bindings"`

	// MeanDwell is the mean total time of all particles; MeanFreeDwell the
	// mean free time, i.e. the dwell had no binding occurred.
	MeanDwell     float64 `json:"mean_dwell"`
	MeanFreeDwell float64 `json:"mean_free_dwell"`

	MeanDwellSucceeded float64 `json:"mean_dwell_succeeded"`
	MeanDwellFailed    float64 `json:"mean_dwell_failed"`
}

// Result is the finalized outcome of a run.
type Result struct {
	Seed      uint64            `json:"seed"`
	Dt        float64           `json:"dt"`
	Steps     int               `json:"steps"`
	Time      float64           `json:"time"`
	Elapsed   time.Duration     `json:"elapsed"`
	Particles []ParticleOutcome `json:"particles"`
	Summary   Summary           `json:"summary"`
}

// TotalTimes returns the total time of every particle with status s.
func (r *Result) TotalTimes(s Status) []float64 {
	var out []float64
	for _, p := range r.Particles {
		if p.Status == s {
			out = append(out, p.TotalTime)
		}
	}
	return out
}

// Active returns the number of active particles.
func (e *Engine) Active() int { return e.ens.alive }

// Snapshot is a copy of the particle positions and statuses at a checkpoint.
type Snapshot struct {
	Time   float64
	Step   int
	X      []r3.Vec
	Status []Status
}

// Snapshot copies the current positions and statuses.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Time:   e.t,
		Step:   e.steps,
		X:      append([]r3.Vec(nil), e.ens.X...),
		Status: append([]Status(nil), e.ens.Status...),
	}
}

// Finalize collects per-particle outcomes and summary statistics. It may be
// called at any point; particles still active are reported as such.
func (e *Engine) Finalize(elapsed time.Duration) Result {
	en := e.ens
	n := en.Len()
	res := Result{
		Seed:      e.seed,
		Dt:        e.cfg.Dt,
		Steps:     e.steps,
		Time:      e.t,
		Elapsed:   elapsed,
		Particles: make([]ParticleOutcome, n),
	}

	total := make([]float64, n)
	attempts := make([]float64, n)
	bindings := make([]float64, n)
	var succ, fail []float64
	for i := range n {
		total[i] = en.FreeTime[i] + en.BoundTime[i]
		attempts[i] = float64(en.Attempts[i])
		bindings[i] = float64(en.Bindings[i])
		res.Particles[i] = ParticleOutcome{
			Index:     i,
			Status:    en.Status[i],
			Outcome:   en.Status[i].String(),
			TotalTime: total[i],
			FreeTime:  en.FreeTime[i],
			BoundTime: en.BoundTime[i],
			Attempts:  en.Attempts[i],
			Bindings:  en.Bindings[i],
		}
		switch en.Status[i] {
		case Succeeded:
			succ = append(succ, total[i])
		case Failed:
			fail = append(fail, total[i])
		}
	}

	res.Summary = Summary{
		Particles:          n,
		Succeeded:          len(succ),
		Failed:             len(fail),
		Active:             en.alive,
		MeanAttempts:       mean(attempts),
		MeanBindings:       mean(bindings),
		MeanDwell:          mean(total),
		MeanFreeDwell:      mean(en.FreeTime),
		MeanDwellSucceeded: mean(succ),
		MeanDwellFailed:    mean(fail),
	}

	s := res.Summary
	e.log.Info("random walk finished",
		"steps", e.steps, "t", e.t, "elapsed", elapsed,
		"succeeded", s.Succeeded, "failed", s.Failed, "active", s.Active)
	e.log.Debug("random walk summary",
		"mean_attempts", s.MeanAttempts, "mean_bindings", s.MeanBindings,
		"mean_dwell", s.MeanDwell, "mean_free_dwell", s.MeanFreeDwell,
		"mean_dwell_succeeded", s.MeanDwellSucceeded, "mean_dwell_failed", s.MeanDwellFailed)
	return res
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}
