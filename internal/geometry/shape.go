// Package geometry provides the solid shapes particles are excluded from and
// the pore queries used to classify trajectories.
//
// All shapes share one collision contract: a point is inside a shape at a
// given radius when it lies within the solid or closer than radius to its
// surface. Axisymmetric shapes are described in the (r, z) half-plane and
// revolved about the z axis.
package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidShape is returned when shape parameters cannot describe a solid.
var ErrInvalidShape = errors.New("geometry: invalid shape")

// Shape is the collision capability shared by every domain geometry.
type Shape interface {
	// Inside reports, for each point, whether it is inside the shape at radius.
	Inside(points []r3.Vec, radius float64) []bool

	// InsideSingle reports whether p is inside the shape at radius.
	InsideSingle(p r3.Vec, radius float64) bool
}

// ShellVolumer is implemented by shapes whose surrounding shell of a given
// thickness has a closed-form volume in nm^3.
type ShellVolumer interface {
	ShellVolume(thickness float64) float64
}

// Pore is a rotationally symmetric channel through a membrane. Besides the
// collision contract it answers the extent queries used to place particles
// and classify their termination.
type Pore interface {
	Shape

	RadiusTop() float64
	RadiusBottom() float64
	ZMax() float64
	ZMin() float64

	// RadiusAt returns the open radius of the channel at height z.
	RadiusAt(z float64) float64
}

// Project maps a Cartesian point to its (r, z) coordinates, with r stored in
// X and z in Y.
func Project(p r3.Vec) r2.Vec {
	return r2.Vec{X: math.Hypot(p.X, p.Y), Y: p.Z}
}

// insideAll evaluates a scalar membership test over a batch of points.
func insideAll(s Shape, points []r3.Vec, radius float64) []bool {
	out := make([]bool, len(points))
	for i, p := range points {
		out[i] = s.InsideSingle(p, radius)
	}
	return out
}
