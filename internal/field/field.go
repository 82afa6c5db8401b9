// Package field supplies drift force and diffusivity samples to the random
// walk. Fields are axisymmetric: they are sampled in the (r, z) half-plane
// and re-expanded to Cartesian components by the particle's angular position.
package field

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrExtrapolation is returned when a position lies outside the sampled domain.
var ErrExtrapolation = errors.New("field: position outside sampled domain")

// Sample is the field state at one (r, z) position.
type Sample struct {
	Dn float64 // diffusivity normal to the axis (radial), nm^2/ns
	Dt float64 // diffusivity tangential to the axis (axial), nm^2/ns

	Fr float64 // radial force, pN
	Fz float64 // axial force, pN

	DivDr float64 // radial derivative of Dn, nm/ns
	DivDz float64 // axial derivative of Dt, nm/ns
}

// Provider evaluates the field at an (r, z) position.
type Provider interface {
	Evaluate(rz r2.Vec) (Sample, error)
}

// Uniform is a constant isotropic field.
type Uniform struct {
	D  float64
	Fr float64
	Fz float64
}

// Evaluate implements Provider.
func (u Uniform) Evaluate(r2.Vec) (Sample, error) {
	return Sample{Dn: u.D, Dt: u.D, Fr: u.Fr, Fz: u.Fz}, nil
}

// Expand re-expands an axisymmetric sample to Cartesian diffusivity
// (diagonal), force and divergence vectors at p. On the axis the radial
// direction is undefined and only axial force and divergence survive.
func Expand(s Sample, p r3.Vec) (d, f, div r3.Vec) {
	var xbar, ybar float64
	if r := math.Hypot(p.X, p.Y); r > 0 {
		xbar, ybar = p.X/r, p.Y/r
	}
	d = r3.Vec{
		X: s.Dn*xbar*xbar + s.Dt*(1-xbar*xbar),
		Y: s.Dn*ybar*ybar + s.Dt*(1-ybar*ybar),
		Z: s.Dt,
	}
	f = r3.Vec{X: s.Fr * xbar, Y: s.Fr * ybar, Z: s.Fz}
	div = r3.Vec{X: s.DivDr * xbar, Y: s.DivDr * ybar, Z: s.DivDz}
	return d, f, div
}
