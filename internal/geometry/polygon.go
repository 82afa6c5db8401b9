package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Polygon is a closed polygon in the (r, z) half-plane revolved about the z
// axis. Node X is the radial coordinate, Y the height.
type Polygon struct {
	Nodes []r2.Vec
}

// NewPolygon creates a polygon of revolution. The closing edge from the last
// node back to the first is implicit.
func NewPolygon(nodes []r2.Vec) (*Polygon, error) {
	if len(nodes) < 3 {
		return nil, fmt.Errorf("%w: polygon needs at least 3 nodes, got %d", ErrInvalidShape, len(nodes))
	}
	for i, n := range nodes {
		if n.X < 0 {
			return nil, fmt.Errorf("%w: polygon node %d has negative radius %g", ErrInvalidShape, i, n.X)
		}
	}
	return &Polygon{Nodes: append([]r2.Vec(nil), nodes...)}, nil
}

// InsideSingle implements Shape.
func (pg *Polygon) InsideSingle(p r3.Vec, radius float64) bool {
	return pg.insideRZ(Project(p), radius)
}

// Inside implements Shape.
func (pg *Polygon) Inside(points []r3.Vec, radius float64) []bool {
	return insideAll(pg, points, radius)
}

// Distance returns the unsigned distance from p to the polygon boundary in
// the (r, z) half-plane.
func (pg *Polygon) Distance(p r3.Vec) float64 {
	return pg.boundaryDistance(Project(p))
}

func (pg *Polygon) insideRZ(q r2.Vec, radius float64) bool {
	if pg.contains(q) {
		return true
	}
	return radius > 0 && pg.boundaryDistance(q) < radius
}

// contains is an even-odd ray cast towards +r.
func (pg *Polygon) contains(q r2.Vec) bool {
	in := false
	n := len(pg.Nodes)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pg.Nodes[i], pg.Nodes[j]
		if (a.Y > q.Y) != (b.Y > q.Y) {
			x := a.X + (q.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if q.X < x {
				in = !in
			}
		}
	}
	return in
}

func (pg *Polygon) boundaryDistance(q r2.Vec) float64 {
	d := math.Inf(1)
	n := len(pg.Nodes)
	for i := 0; i < n; i++ {
		d = math.Min(d, segmentDistance(q, pg.Nodes[i], pg.Nodes[(i+1)%n]))
	}
	return d
}

func segmentDistance(q, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(q, a))
	}
	t := r2.Dot(r2.Sub(q, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return r2.Norm(r2.Sub(q, r2.Add(a, r2.Scale(t, ab))))
}
