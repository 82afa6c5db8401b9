package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Ball is a solid sphere, tested in Cartesian coordinates.
type Ball struct {
	Center r3.Vec
	Radius float64
}

// NewBall creates a ball with the given centre and radius.
func NewBall(center r3.Vec, radius float64) (*Ball, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("%w: ball radius must be positive, got %g", ErrInvalidShape, radius)
	}
	return &Ball{Center: center, Radius: radius}, nil
}

// InsideSingle implements Shape.
func (b *Ball) InsideSingle(p r3.Vec, radius float64) bool {
	return r3.Norm(r3.Sub(p, b.Center)) < b.Radius+radius
}

// Inside implements Shape.
func (b *Ball) Inside(points []r3.Vec, radius float64) []bool {
	return insideAll(b, points, radius)
}

// Distance returns the signed distance from p to the sphere surface.
func (b *Ball) Distance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, b.Center)) - b.Radius
}

// ShellVolume returns the volume of the spherical shell of the given
// thickness around the ball surface.
func (b *Ball) ShellVolume(thickness float64) float64 {
	outer := b.Radius + thickness
	return 4. / 3. * math.Pi * (outer*outer*outer - b.Radius*b.Radius*b.Radius)
}
