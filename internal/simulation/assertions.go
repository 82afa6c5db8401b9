package simulation

import (
	"math"
	"testing"
)

// AssertAllTerminal asserts that no particle of the report is still active.
func AssertAllTerminal(t *testing.T, report *Report) {
	t.Helper()
	for _, r := range report.Records {
		if r.Outcome == "active" {
			t.Errorf("AssertAllTerminal: particle %d still active", r.Particle)
		}
	}
}

// AssertTimeDecomposition asserts that every particle's total time is its
// free time plus its bound time, and that bound time only accrues with a
// binding.
func AssertTimeDecomposition(t *testing.T, report *Report) {
	t.Helper()
	for _, r := range report.Records {
		if math.Abs(r.TotalTime-(r.FreeTime+r.BoundTime)) > 1e-9*math.Max(1, r.TotalTime) {
			t.Errorf("AssertTimeDecomposition: particle %d: total %g != free %g + bound %g",
				r.Particle, r.TotalTime, r.FreeTime, r.BoundTime)
		}
		if r.Bindings == 0 && r.BoundTime != 0 {
			t.Errorf("AssertTimeDecomposition: particle %d bound for %g without a binding", r.Particle, r.BoundTime)
		}
		if r.Bindings > r.Attempts {
			t.Errorf("AssertTimeDecomposition: particle %d: %d bindings from %d attempts", r.Particle, r.Bindings, r.Attempts)
		}
	}
}

// AssertSucceededFraction asserts that the fraction of translocated
// particles lies in [min, max].
func AssertSucceededFraction(t *testing.T, report *Report, min, max float64) {
	t.Helper()
	n := len(report.Records)
	if n == 0 {
		t.Error("AssertSucceededFraction: no particles")
		return
	}
	frac := float64(report.Result.Summary.Succeeded) / float64(n)
	if frac < min || frac > max {
		t.Errorf("AssertSucceededFraction: %.3f not in [%.3f, %.3f]", frac, min, max)
	}
}
