package field

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// Grid is a field sampled on a rectilinear (r, z) grid and evaluated by
// bilinear interpolation. Values are stored row-major with z as the outer
// index: value[iz*len(R)+ir].
type Grid struct {
	R []float64
	Z []float64

	Dn, Dt []float64
	Fr, Fz []float64

	divDr, divDz []float64
}

// NewGrid validates the node layout and precomputes the divergence of the
// diffusivity by finite differences.
func NewGrid(r, z, dn, dt, fr, fz []float64) (*Grid, error) {
	if len(r) < 2 || len(z) < 2 {
		return nil, fmt.Errorf("field: grid needs at least 2 nodes per axis, got %dx%d", len(r), len(z))
	}
	if !strictlyIncreasing(r) || !strictlyIncreasing(z) {
		return nil, fmt.Errorf("field: grid axes must be strictly increasing")
	}
	n := len(r) * len(z)
	for name, v := range map[string][]float64{"dn": dn, "dt": dt, "fr": fr, "fz": fz} {
		if len(v) != n {
			return nil, fmt.Errorf("field: grid column %s has %d values, want %d", name, len(v), n)
		}
	}

	g := &Grid{R: r, Z: z, Dn: dn, Dt: dt, Fr: fr, Fz: fz}
	g.divDr = make([]float64, n)
	g.divDz = make([]float64, n)
	for iz := range z {
		for ir := range r {
			k := g.index(ir, iz)
			g.divDr[k] = derivative(r, ir, func(i int) float64 { return dn[g.index(i, iz)] })
			g.divDz[k] = derivative(z, iz, func(i int) float64 { return dt[g.index(ir, i)] })
		}
	}
	return g, nil
}

// Evaluate implements Provider.
func (g *Grid) Evaluate(rz r2.Vec) (Sample, error) {
	ir, tr, ok := locate(g.R, rz.X)
	if !ok {
		return Sample{}, fmt.Errorf("%w: r=%g z=%g", ErrExtrapolation, rz.X, rz.Y)
	}
	iz, tz, ok := locate(g.Z, rz.Y)
	if !ok {
		return Sample{}, fmt.Errorf("%w: r=%g z=%g", ErrExtrapolation, rz.X, rz.Y)
	}

	at := func(v []float64) float64 {
		v00 := v[g.index(ir, iz)]
		v10 := v[g.index(ir+1, iz)]
		v01 := v[g.index(ir, iz+1)]
		v11 := v[g.index(ir+1, iz+1)]
		return (1-tr)*(1-tz)*v00 + tr*(1-tz)*v10 + (1-tr)*tz*v01 + tr*tz*v11
	}
	return Sample{
		Dn:    at(g.Dn),
		Dt:    at(g.Dt),
		Fr:    at(g.Fr),
		Fz:    at(g.Fz),
		DivDr: at(g.divDr),
		DivDz: at(g.divDz),
	}, nil
}

func (g *Grid) index(ir, iz int) int {
	return iz*len(g.R) + ir
}

// locate returns the lower cell index and the fractional position of x
// within that cell.
func locate(axis []float64, x float64) (int, float64, bool) {
	last := len(axis) - 1
	if x < axis[0] || x > axis[last] {
		return 0, 0, false
	}
	i := sort.SearchFloat64s(axis, x) - 1
	i = max(0, min(i, last-1))
	return i, (x - axis[i]) / (axis[i+1] - axis[i]), true
}

// derivative is a central difference in the interior and one-sided at the ends.
func derivative(axis []float64, i int, v func(int) float64) float64 {
	lo, hi := max(i-1, 0), min(i+1, len(axis)-1)
	return (v(hi) - v(lo)) / (axis[hi] - axis[lo])
}

func strictlyIncreasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}
