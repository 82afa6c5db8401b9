package geometry

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ProfilePore is a channel whose inner wall follows a profile of (r, z)
// points from the top opening to the bottom opening. The solid is the
// polygon enclosed by the profile and the outer membrane radius.
type ProfilePore struct {
	*Polygon
	profile []r2.Vec
	outer   float64
	radius  interp.PiecewiseLinear
}

// NewProfilePore builds a pore from its inner-wall profile, ordered top to
// bottom with strictly decreasing heights, and the outer membrane radius.
func NewProfilePore(profile []r2.Vec, outer float64) (*ProfilePore, error) {
	if len(profile) < 2 {
		return nil, fmt.Errorf("%w: pore profile needs at least 2 points, got %d", ErrInvalidShape, len(profile))
	}
	zs := make([]float64, len(profile))
	rs := make([]float64, len(profile))
	for i, p := range profile {
		if p.X <= 0 {
			return nil, fmt.Errorf("%w: pore profile point %d has non-positive radius %g", ErrInvalidShape, i, p.X)
		}
		if p.X >= outer {
			return nil, fmt.Errorf("%w: pore profile point %d radius %g exceeds outer radius %g", ErrInvalidShape, i, p.X, outer)
		}
		if i > 0 && p.Y >= profile[i-1].Y {
			return nil, fmt.Errorf("%w: pore profile heights must strictly decrease (point %d)", ErrInvalidShape, i)
		}
		// interp needs increasing abscissae, so store bottom to top.
		zs[len(profile)-1-i] = p.Y
		rs[len(profile)-1-i] = p.X
	}

	pp := &ProfilePore{
		profile: append([]r2.Vec(nil), profile...),
		outer:   outer,
	}
	if err := pp.radius.Fit(zs, rs); err != nil {
		return nil, fmt.Errorf("%w: fitting pore profile: %v", ErrInvalidShape, err)
	}

	top, bot := profile[0], profile[len(profile)-1]
	nodes := slices.Clone(profile)
	nodes = append(nodes, r2.Vec{X: outer, Y: bot.Y}, r2.Vec{X: outer, Y: top.Y})
	poly, err := NewPolygon(nodes)
	if err != nil {
		return nil, err
	}
	pp.Polygon = poly
	return pp, nil
}

// NewCylinder builds a straight pore of constant radius between zmin and zmax.
func NewCylinder(radius, zmin, zmax, outer float64) (*ProfilePore, error) {
	if zmax <= zmin {
		return nil, fmt.Errorf("%w: cylinder zmax %g must exceed zmin %g", ErrInvalidShape, zmax, zmin)
	}
	return NewProfilePore([]r2.Vec{{X: radius, Y: zmax}, {X: radius, Y: zmin}}, outer)
}

// RadiusTop implements Pore.
func (pp *ProfilePore) RadiusTop() float64 { return pp.profile[0].X }

// RadiusBottom implements Pore.
func (pp *ProfilePore) RadiusBottom() float64 { return pp.profile[len(pp.profile)-1].X }

// ZMax implements Pore.
func (pp *ProfilePore) ZMax() float64 { return pp.profile[0].Y }

// ZMin implements Pore.
func (pp *ProfilePore) ZMin() float64 { return pp.profile[len(pp.profile)-1].Y }

// RadiusAt implements Pore. Heights outside the pore return the radius of
// the nearest opening.
func (pp *ProfilePore) RadiusAt(z float64) float64 {
	return pp.radius.Predict(z)
}

// OuterRadius returns the radial extent of the membrane.
func (pp *ProfilePore) OuterRadius() float64 { return pp.outer }

// WallAnchor returns the centre of a ball of radius ballRadius placed
// against the pore wall. height is relative to the pore length (0 = bottom,
// 1 = top, clamped so the ball stays within the pore), wallOffset is the
// distance of the centre from the wall towards the axis.
func WallAnchor(p Pore, height, wallOffset, ballRadius float64) r3.Vec {
	height = math.Max(0, math.Min(1, height))
	z := p.ZMin() + ballRadius + (p.ZMax()-p.ZMin()-2*ballRadius)*height
	return r3.Vec{X: p.RadiusAt(z) - wallOffset, Y: 0, Z: z}
}
