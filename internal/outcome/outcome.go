// Package outcome aggregates finalized random walk results: dwell time
// partitions, logarithmic histograms with an exponential reference curve,
// per-outcome statistics and columnar export.
package outcome

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/nvandessel/porewalk/internal/constants"
	"github.com/nvandessel/porewalk/internal/randomwalk"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoSamples is returned when an aggregate needs at least one dwell time.
	ErrNoSamples = errors.New("outcome: no samples")

	// ErrInvalidRange is returned for an empty or inverted histogram range.
	ErrInvalidRange = errors.New("outcome: invalid histogram range")
)

// Record is the outcome of one particle.
type Record struct {
	Particle  int     `json:"particle"`
	Outcome   string  `json:"outcome"`
	TotalTime float64 `json:"total_time"`
	FreeTime  float64 `json:"free_time"`
	BoundTime float64 `json:"bound_time"`
	Attempts  int     `json:"attempts"`
	Bindings  int     `json:"bindings"`
}

// FromResult flattens a finalized run into records.
func FromResult(res randomwalk.Result) []Record {
	out := make([]Record, len(res.Particles))
	for i, p := range res.Particles {
		out[i] = Record{
			Particle:  p.Index,
			Outcome:   p.Status.String(),
			TotalTime: p.TotalTime,
			FreeTime:  p.FreeTime,
			BoundTime: p.BoundTime,
			Attempts:  p.Attempts,
			Bindings:  p.Bindings,
		}
	}
	return out
}

// Partition splits total times by outcome. Active particles are dropped.
func Partition(records []Record) (succeeded, failed []float64) {
	for _, r := range records {
		switch r.Outcome {
		case randomwalk.Succeeded.String():
			succeeded = append(succeeded, r.TotalTime)
		case randomwalk.Failed.String():
			failed = append(failed, r.TotalTime)
		}
	}
	return succeeded, failed
}

// Rescale converts times in ns to the given unit, expressed in seconds
// (1e-6 for microseconds).
func Rescale(times []float64, unit float64) []float64 {
	out := slices.Clone(times)
	floats.Scale(constants.SecondsPerNS/unit, out)
	return out
}

// Hist is a histogram over logarithmically spaced bins.
type Hist struct {
	// Edges holds len(Counts)+1 bin boundaries.
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// Histogram counts times into bins logarithmic bins spanning 10^a to 10^b.
// The last bin is closed; times outside the range are ignored.
func Histogram(times []float64, a, b float64, bins int) (Hist, error) {
	if !(a < b) || bins < 1 {
		return Hist{}, fmt.Errorf("%w: 10^%g..10^%g with %d bins", ErrInvalidRange, a, b, bins)
	}
	lo, hi := math.Pow(10, a), math.Pow(10, b)
	edges := floats.LogSpan(make([]float64, bins+1), lo, hi)
	edges[0], edges[bins] = lo, hi

	x := make([]float64, 0, len(times))
	var top float64
	for _, t := range times {
		switch {
		case t == hi:
			top++
		case t >= lo && t < hi:
			x = append(x, t)
		}
	}
	slices.Sort(x)

	counts := stat.Histogram(make([]float64, bins), edges, x, nil)
	counts[bins-1] += top
	return Hist{Edges: edges, Counts: counts}, nil
}

// Area returns the integral of the histogram, sum of count times bin width.
func (h Hist) Area() float64 {
	var area float64
	for i, n := range h.Counts {
		area += n * (h.Edges[i+1] - h.Edges[i])
	}
	return area
}

// Total returns the number of counted samples.
func (h Hist) Total() float64 {
	return floats.Sum(h.Counts)
}

// Curve is a sampled function.
type Curve struct {
	T []float64 `json:"t"`
	F []float64 `json:"f"`
}

// ExponentialReference samples f(T) = exp(-T/tmean) T/tmean, with tmean the
// mean of times, on points logarithmically spaced from 10^(a-3) to 10^b, and
// scales it so that its trapezoidal integral equals the histogram area.
func ExponentialReference(times []float64, h Hist, a, b float64, points int) (Curve, error) {
	if len(times) == 0 {
		return Curve{}, ErrNoSamples
	}
	if !(a < b) || points < 2 {
		return Curve{}, fmt.Errorf("%w: 10^%g..10^%g with %d points", ErrInvalidRange, a, b, points)
	}
	tmean := stat.Mean(times, nil)
	T := floats.LogSpan(make([]float64, points), math.Pow(10, a-3), math.Pow(10, b))
	F := make([]float64, points)
	for i, t := range T {
		F[i] = math.Exp(-t/tmean) * t / tmean
	}
	if integral := trapezoid(T, F); integral > 0 {
		floats.Scale(h.Area()/integral, F)
	}
	return Curve{T: T, F: F}, nil
}

func trapezoid(x, y []float64) float64 {
	var sum float64
	for i := 1; i < len(x); i++ {
		sum += 0.5 * (y[i-1] + y[i]) * (x[i] - x[i-1])
	}
	return sum
}

// Distribution is the dwell time histogram of one outcome with its
// exponential reference curve.
type Distribution struct {
	Outcome   string `json:"outcome"`
	Samples   int    `json:"samples"`
	Hist      Hist   `json:"histogram"`
	Reference Curve  `json:"reference"`
}

// Distributions histograms the total times of succeeded and failed
// particles, rescaled to unit seconds, over 10^a..10^b. Outcomes without
// samples are skipped.
func Distributions(records []Record, a, b float64, bins int, unit float64) ([]Distribution, error) {
	if !(unit > 0) {
		return nil, fmt.Errorf("%w: time unit must be positive, got %g", ErrInvalidRange, unit)
	}
	succeeded, failed := Partition(records)

	var out []Distribution
	for _, part := range []struct {
		status randomwalk.Status
		times  []float64
	}{
		{randomwalk.Succeeded, succeeded},
		{randomwalk.Failed, failed},
	} {
		if len(part.times) == 0 {
			continue
		}
		times := Rescale(part.times, unit)
		h, err := Histogram(times, a, b, bins)
		if err != nil {
			return nil, err
		}
		ref, err := ExponentialReference(times, h, a, b, constants.ReferenceCurvePoints)
		if err != nil {
			return nil, err
		}
		out = append(out, Distribution{
			Outcome:   part.status.String(),
			Samples:   len(times),
			Hist:      h,
			Reference: ref,
		})
	}
	return out, nil
}

// Stats summarizes the dwell times of one outcome.
type Stats struct {
	Outcome string  `json:"outcome"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`

	MeanAttempts float64 `json:"mean_attempts"`
	MeanBindings float64 `json:"mean_bindings"`
}

// Summarize returns statistics of the total time for succeeded and failed
// particles, in that order. Outcomes without samples report zeros; the
// standard deviation needs at least two samples.
func Summarize(records []Record) []Stats {
	out := make([]Stats, 0, 2)
	for _, s := range []randomwalk.Status{randomwalk.Succeeded, randomwalk.Failed} {
		var times, attempts, bindings []float64
		for _, r := range records {
			if r.Outcome != s.String() {
				continue
			}
			times = append(times, r.TotalTime)
			attempts = append(attempts, float64(r.Attempts))
			bindings = append(bindings, float64(r.Bindings))
		}
		st := Stats{Outcome: s.String(), Count: len(times)}
		if len(times) > 0 {
			st.Mean = stat.Mean(times, nil)
			st.MeanAttempts = stat.Mean(attempts, nil)
			st.MeanBindings = stat.Mean(bindings, nil)
		}
		if len(times) > 1 {
			st.StdDev = stat.StdDev(times, nil)
		}
		out = append(out, st)
	}
	return out
}
