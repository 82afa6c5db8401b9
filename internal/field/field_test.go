package field

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-12

// linearGrid builds a 3x3 grid where dn = r, dt = 2z, fr = 1, fz = -z.
func linearGrid(t *testing.T) *Grid {
	t.Helper()
	r := []float64{0, 1, 2}
	z := []float64{-1, 0, 1}
	n := len(r) * len(z)
	dn, dt, fr, fz := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for iz, zv := range z {
		for ir, rv := range r {
			k := iz*len(r) + ir
			dn[k] = rv
			dt[k] = 2 * zv
			fr[k] = 1
			fz[k] = -zv
		}
	}
	g, err := NewGrid(r, z, dn, dt, fr, fz)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestUniform_Evaluate(t *testing.T) {
	s, err := Uniform{D: 0.5, Fz: -2}.Evaluate(r2.Vec{X: 3, Y: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Dn != 0.5 || s.Dt != 0.5 || s.Fz != -2 || s.Fr != 0 {
		t.Errorf("Evaluate() = %+v", s)
	}
	if s.DivDr != 0 || s.DivDz != 0 {
		t.Errorf("uniform field should have zero divergence, got %+v", s)
	}
}

func TestExpand(t *testing.T) {
	s := Sample{Dn: 2, Dt: 1, Fr: 3, Fz: 4, DivDr: 5, DivDz: 6}

	t.Run("on x axis", func(t *testing.T) {
		d, f, div := Expand(s, r3.Vec{X: 2})
		if d != (r3.Vec{X: 2, Y: 1, Z: 1}) {
			t.Errorf("d = %v", d)
		}
		if f != (r3.Vec{X: 3, Y: 0, Z: 4}) {
			t.Errorf("f = %v", f)
		}
		if div != (r3.Vec{X: 5, Y: 0, Z: 6}) {
			t.Errorf("div = %v", div)
		}
	})

	t.Run("diagonal", func(t *testing.T) {
		d, f, _ := Expand(s, r3.Vec{X: 1, Y: 1})
		if math.Abs(d.X-1.5) > eps || math.Abs(d.Y-1.5) > eps {
			t.Errorf("d = %v, want 1.5 in plane", d)
		}
		if math.Abs(f.X-3/math.Sqrt2) > eps || math.Abs(f.Y-3/math.Sqrt2) > eps {
			t.Errorf("f = %v", f)
		}
	})

	t.Run("on axis", func(t *testing.T) {
		d, f, div := Expand(s, r3.Vec{Z: 7})
		if d != (r3.Vec{X: 1, Y: 1, Z: 1}) {
			t.Errorf("d = %v", d)
		}
		if f != (r3.Vec{Z: 4}) || div != (r3.Vec{Z: 6}) {
			t.Errorf("f = %v div = %v", f, div)
		}
	})
}

func TestGrid_Evaluate(t *testing.T) {
	g := linearGrid(t)

	s, err := g.Evaluate(r2.Vec{X: 1.5, Y: 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(s.Dn-1.5) > eps {
		t.Errorf("Dn = %g, want 1.5", s.Dn)
	}
	if math.Abs(s.Dt-0.5) > eps {
		t.Errorf("Dt = %g, want 0.5", s.Dt)
	}
	if math.Abs(s.Fz+0.25) > eps || math.Abs(s.Fr-1) > eps {
		t.Errorf("F = (%g, %g), want (1, -0.25)", s.Fr, s.Fz)
	}
	if math.Abs(s.DivDr-1) > eps {
		t.Errorf("DivDr = %g, want 1", s.DivDr)
	}
	if math.Abs(s.DivDz-2) > eps {
		t.Errorf("DivDz = %g, want 2", s.DivDz)
	}
}

func TestGrid_EvaluateNodes(t *testing.T) {
	g := linearGrid(t)
	for _, rz := range []r2.Vec{{X: 0, Y: -1}, {X: 2, Y: 1}, {X: 1, Y: 0}} {
		s, err := g.Evaluate(rz)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", rz, err)
		}
		if math.Abs(s.Dn-rz.X) > eps || math.Abs(s.Dt-2*rz.Y) > eps {
			t.Errorf("Evaluate(%v) = %+v", rz, s)
		}
	}
}

func TestGrid_Extrapolation(t *testing.T) {
	g := linearGrid(t)
	for _, rz := range []r2.Vec{{X: 2.5, Y: 0}, {X: 1, Y: 1.01}, {X: 1, Y: -3}} {
		if _, err := g.Evaluate(rz); !errors.Is(err, ErrExtrapolation) {
			t.Errorf("Evaluate(%v): expected ErrExtrapolation, got %v", rz, err)
		}
	}
}

func TestNewGrid_Invalid(t *testing.T) {
	tests := []struct {
		name string
		r, z []float64
		n    int
	}{
		{name: "single r node", r: []float64{0}, z: []float64{0, 1}, n: 2},
		{name: "unsorted axis", r: []float64{1, 0}, z: []float64{0, 1}, n: 4},
		{name: "short column", r: []float64{0, 1}, z: []float64{0, 1}, n: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := make([]float64, tt.n)
			if _, err := NewGrid(tt.r, tt.z, v, v, v, v); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWriteLoadGrid(t *testing.T) {
	g := linearGrid(t)
	path := filepath.Join(t.TempDir(), "field.arrow")

	if err := WriteGrid(path, g); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}
	loaded, err := LoadGrid(path)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}

	for _, rz := range []r2.Vec{{X: 0.3, Y: -0.7}, {X: 1.9, Y: 0.9}} {
		want, _ := g.Evaluate(rz)
		got, err := loaded.Evaluate(rz)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", rz, err)
		}
		if math.Abs(got.Dn-want.Dn) > eps || math.Abs(got.DivDz-want.DivDz) > eps || math.Abs(got.Fz-want.Fz) > eps {
			t.Errorf("loaded grid at %v = %+v, want %+v", rz, got, want)
		}
	}
}

func TestGridFromRows_Unordered(t *testing.T) {
	cols := map[string][]float64{
		"r":  {1, 0, 1, 0},
		"z":  {1, 1, 0, 0},
		"dn": {4, 3, 2, 1},
		"dt": {1, 1, 1, 1},
		"fr": {0, 0, 0, 0},
		"fz": {0, 0, 0, 0},
	}
	g, err := gridFromRows(cols)
	if err != nil {
		t.Fatalf("gridFromRows: %v", err)
	}
	s, err := g.Evaluate(r2.Vec{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if s.Dn != 4 {
		t.Errorf("Dn at (1,1) = %g, want 4", s.Dn)
	}
}

func TestGridFromRows_Duplicate(t *testing.T) {
	cols := map[string][]float64{
		"r":  {0, 0, 1, 1},
		"z":  {0, 0, 0, 1},
		"dn": {1, 1, 1, 1},
		"dt": {1, 1, 1, 1},
		"fr": {0, 0, 0, 0},
		"fz": {0, 0, 0, 0},
	}
	if _, err := gridFromRows(cols); err == nil {
		t.Error("expected error for duplicate node")
	}
}
