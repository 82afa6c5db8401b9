package geometry

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestProject(t *testing.T) {
	got := Project(r3.Vec{X: 3, Y: 4, Z: -2})
	if got.X != 5 || got.Y != -2 {
		t.Errorf("Project() = %v, want {5 -2}", got)
	}
}

func TestBall_InsideSingle(t *testing.T) {
	b, err := NewBall(r3.Vec{X: 1, Y: 0, Z: 0}, 2)
	if err != nil {
		t.Fatalf("NewBall: %v", err)
	}

	tests := []struct {
		name   string
		p      r3.Vec
		radius float64
		want   bool
	}{
		{name: "centre", p: r3.Vec{X: 1}, radius: 0, want: true},
		{name: "outside", p: r3.Vec{X: 4}, radius: 0, want: false},
		{name: "within collision radius", p: r3.Vec{X: 4}, radius: 1.5, want: true},
		{name: "exactly at collision radius", p: r3.Vec{X: 4}, radius: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.InsideSingle(tt.p, tt.radius); got != tt.want {
				t.Errorf("InsideSingle(%v, %g) = %v, want %v", tt.p, tt.radius, got, tt.want)
			}
		})
	}
}

func TestNewBall_InvalidRadius(t *testing.T) {
	if _, err := NewBall(r3.Vec{}, 0); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestBall_ShellVolume(t *testing.T) {
	b, err := NewBall(r3.Vec{Z: -60}, 5)
	if err != nil {
		t.Fatalf("NewBall: %v", err)
	}
	want := 4. / 3. * math.Pi * (15*15*15 - 5*5*5)
	if got := b.ShellVolume(10); math.Abs(got-want) > 1e-9 {
		t.Errorf("ShellVolume(10) = %g, want %g", got, want)
	}
	if got := b.ShellVolume(0); got != 0 {
		t.Errorf("ShellVolume(0) = %g, want 0", got)
	}

	var _ ShellVolumer = b
	var s Shape = &Polygon{}
	if _, ok := s.(ShellVolumer); ok {
		t.Error("Polygon should not report a shell volume")
	}
}

func TestPolygon_Inside(t *testing.T) {
	// Square ring from r=2..4, z=0..2.
	pg, err := NewPolygon([]r2.Vec{{X: 2, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2}, {X: 2, Y: 2}})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}

	points := []r3.Vec{
		{X: 3, Y: 0, Z: 1},  // inside
		{X: 0, Y: -3, Z: 1}, // inside after rotation
		{X: 1, Y: 0, Z: 1},  // 1 from inner wall
		{X: 0, Y: 0, Z: 1},  // on axis
		{X: 3, Y: 0, Z: 5},  // far above
	}
	got := pg.Inside(points, 0)
	want := []bool{true, true, false, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Inside(radius=0)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	got = pg.Inside(points, 1.5)
	want = []bool{true, true, true, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Inside(radius=1.5)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPolygon_Distance(t *testing.T) {
	pg, err := NewPolygon([]r2.Vec{{X: 2, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2}, {X: 2, Y: 2}})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	if d := pg.Distance(r3.Vec{X: 0, Y: 0.5, Z: 1}); math.Abs(d-1.5) > 1e-12 {
		t.Errorf("Distance() = %g, want 1.5", d)
	}
}

func TestNewPolygon_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		nodes []r2.Vec
	}{
		{name: "too few nodes", nodes: []r2.Vec{{X: 1}, {X: 2}}},
		{name: "negative radius", nodes: []r2.Vec{{X: -1}, {X: 2}, {X: 2, Y: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPolygon(tt.nodes); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
		})
	}
}

func TestCylinder_Extents(t *testing.T) {
	c, err := NewCylinder(5, -10, 10, 50)
	if err != nil {
		t.Fatalf("NewCylinder: %v", err)
	}
	if c.RadiusTop() != 5 || c.RadiusBottom() != 5 {
		t.Errorf("radii = %g/%g, want 5/5", c.RadiusTop(), c.RadiusBottom())
	}
	if c.ZMax() != 10 || c.ZMin() != -10 {
		t.Errorf("extrema = %g/%g, want 10/-10", c.ZMax(), c.ZMin())
	}
	if r := c.RadiusAt(3); r != 5 {
		t.Errorf("RadiusAt(3) = %g, want 5", r)
	}

	// The channel is open, the membrane solid.
	if c.InsideSingle(r3.Vec{X: 1, Z: 0}, 1) {
		t.Error("point on the channel axis should be outside the solid")
	}
	if !c.InsideSingle(r3.Vec{X: 4.5, Z: 0}, 1) {
		t.Error("point within 1 of the wall should collide")
	}
	if !c.InsideSingle(r3.Vec{X: 20, Z: 0}, 0) {
		t.Error("point inside the membrane should be inside")
	}
	if c.InsideSingle(r3.Vec{X: 20, Z: 15}, 1) {
		t.Error("point above the membrane should be outside")
	}
}

func TestProfilePore_RadiusAt(t *testing.T) {
	// Funnel narrowing from 10 at the top to 4 at the bottom.
	pp, err := NewProfilePore([]r2.Vec{{X: 10, Y: 20}, {X: 4, Y: 0}, {X: 4, Y: -5}}, 40)
	if err != nil {
		t.Fatalf("NewProfilePore: %v", err)
	}

	tests := []struct {
		z    float64
		want float64
	}{
		{z: 20, want: 10},
		{z: 10, want: 7},
		{z: 0, want: 4},
		{z: -3, want: 4},
		{z: 100, want: 10},
		{z: -100, want: 4},
	}
	for _, tt := range tests {
		if got := pp.RadiusAt(tt.z); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("RadiusAt(%g) = %g, want %g", tt.z, got, tt.want)
		}
	}
}

func TestNewProfilePore_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		profile []r2.Vec
		outer   float64
	}{
		{name: "single point", profile: []r2.Vec{{X: 1, Y: 1}}, outer: 10},
		{name: "increasing height", profile: []r2.Vec{{X: 1, Y: 0}, {X: 1, Y: 1}}, outer: 10},
		{name: "radius beyond outer", profile: []r2.Vec{{X: 12, Y: 1}, {X: 1, Y: 0}}, outer: 10},
		{name: "zero radius", profile: []r2.Vec{{X: 0, Y: 1}, {X: 1, Y: 0}}, outer: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProfilePore(tt.profile, tt.outer); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
		})
	}
}

func TestWallAnchor(t *testing.T) {
	c, err := NewCylinder(5, 0, 20, 50)
	if err != nil {
		t.Fatalf("NewCylinder: %v", err)
	}

	got := WallAnchor(c, 1, 2, 0.5)
	want := r3.Vec{X: 3, Y: 0, Z: 19.5}
	if r3.Norm(r3.Sub(got, want)) > 1e-12 {
		t.Errorf("WallAnchor(top) = %v, want %v", got, want)
	}

	got = WallAnchor(c, -1, 2, 0.5)
	if got.Z != 0.5 {
		t.Errorf("WallAnchor(clamped) z = %g, want 0.5", got.Z)
	}
}
