// Package collision locates the boundary of a solid shape along a particle's
// last step so the step can be truncated instead of penetrating the solid.
package collision

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/porewalk/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxIterations bounds the bisection loop. Each iteration halves the
// segment, so this exceeds the precision of any float64 segment.
const maxIterations = 128

var (
	// ErrGeometryInconsistency indicates the start of a step already lies
	// inside the shape, so a previous step breached the exclusion invariant.
	ErrGeometryInconsistency = errors.New("collision: starting point already inside domain")

	// ErrInvalidTolerance is returned for a non-positive bisection tolerance.
	ErrInvalidTolerance = errors.New("collision: tolerance must be positive")

	// ErrNoConvergence is returned when the segment does not shrink below
	// the tolerance within maxIterations.
	ErrNoConvergence = errors.New("collision: bisection did not converge")
)

// GeometryError carries the segment that violated the bisection precondition.
type GeometryError struct {
	Outside r3.Vec
	Inside  r3.Vec
	Radius  float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%v: x0=%v x1=%v radius=%g", ErrGeometryInconsistency, e.Outside, e.Inside, e.Radius)
}

func (e *GeometryError) Unwrap() error {
	return ErrGeometryInconsistency
}

// Bisect searches the segment from outside to inside for the boundary of
// shape at the given exclusion radius. It returns the last point known to be
// outside once the bracketing segment is shorter than tol, so the result
// tests outside and lies within tol of the boundary along the segment.
// A tol finer than the float64 spacing at the endpoints is raised to that
// spacing, since the segment cannot shrink further.
func Bisect(shape geometry.Shape, outside, inside r3.Vec, radius, tol float64) (r3.Vec, error) {
	if tol <= 0 {
		return outside, fmt.Errorf("%w: got %g", ErrInvalidTolerance, tol)
	}
	if shape.InsideSingle(outside, radius) {
		return outside, &GeometryError{Outside: outside, Inside: inside, Radius: radius}
	}

	tol = math.Max(tol, spacing(outside, inside))
	tol2 := tol * tol
	for i := 0; i < maxIterations && r3.Norm2(r3.Sub(inside, outside)) >= tol2; i++ {
		mid := r3.Scale(0.5, r3.Add(outside, inside))
		if shape.InsideSingle(mid, radius) {
			inside = mid
		} else {
			outside = mid
		}
	}
	if d2 := r3.Norm2(r3.Sub(inside, outside)); !(d2 < tol2) {
		return outside, fmt.Errorf("%w: segment %g longer than tolerance %g after %d iterations", ErrNoConvergence, math.Sqrt(d2), tol, maxIterations)
	}
	return outside, nil
}

// spacing is a length below which a segment between points of the
// magnitude of a and b stops shrinking under bisection. Adjacent endpoints
// differ by at most one ulp per coordinate.
func spacing(a, b r3.Vec) float64 {
	m := 0.0
	for _, v := range []float64{a.X, a.Y, a.Z, b.X, b.Y, b.Z} {
		m = math.Max(m, math.Abs(v))
	}
	return 4 * (math.Nextafter(m, math.Inf(1)) - m)
}
