package geom

import (
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Path is an ordered sequence of points describing a centerline.
type Path []Point

// ValidatePath rejects paths with fewer than two points, repeated
// consecutive points or zero total length.
func ValidatePath(p Path) error {
	if len(p) < 2 {
		return pdkerr.New(pdkerr.CodeDegeneratePath, "path has %d point(s), need at least 2", len(p))
	}
	for i := 1; i < len(p); i++ {
		if p[i].Eq(p[i-1], Epsilon) {
			return pdkerr.New(pdkerr.CodeDegeneratePath, "path repeats point %v at index %d", p[i], i)
		}
	}
	if p.Length() <= Epsilon {
		return pdkerr.New(pdkerr.CodeDegeneratePath, "path has zero length")
	}
	return nil
}

// Length returns the total arc length.
func (p Path) Length() float64 {
	var l float64
	for i := 1; i < len(p); i++ {
		l += p[i].Dist(p[i-1])
	}
	return l
}

// Fractions returns the normalized cumulative arc length at each vertex,
// from 0 at the first point to 1 at the last.
func (p Path) Fractions() []float64 {
	t := make([]float64, len(p))
	total := p.Length()
	if total == 0 {
		return t
	}
	var acc float64
	for i := 1; i < len(p); i++ {
		acc += p[i].Dist(p[i-1])
		t[i] = acc / total
	}
	t[len(p)-1] = 1
	return t
}

// Reverse returns the path walked backwards.
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// Transform maps every point through t.
func (p Path) Transform(t Transform) Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[i] = t.Apply(pt)
	}
	return out
}

// Simplify drops repeated points and interior points that are collinear
// with their neighbours and do not reverse direction.
func (p Path) Simplify() Path {
	out := make(Path, 0, len(p))
	for _, pt := range p {
		if n := len(out); n > 0 && out[n-1].Eq(pt, Epsilon) {
			continue
		}
		out = append(out, pt)
		for len(out) >= 3 {
			a, b, c := out[len(out)-3], out[len(out)-2], out[len(out)-1]
			d0, d1 := b.Sub(a), c.Sub(b)
			if abs(d0.Cross(d1)) > Epsilon*d0.Norm()*d1.Norm() || d0.Dot(d1) < 0 {
				break
			}
			out[len(out)-2] = c
			out = out[:len(out)-1]
		}
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// ManhattanIntersection returns the corner that shares its x coordinate
// with vertical and its y coordinate with horizontal.
func ManhattanIntersection(vertical, horizontal Point) Point {
	return Point{vertical.X, horizontal.Y}
}

// IsManhattan reports whether every segment of p is horizontal or
// vertical.
func (p Path) IsManhattan() bool {
	for i := 1; i < len(p); i++ {
		d := p[i].Sub(p[i-1])
		if abs(d.X) > Epsilon && abs(d.Y) > Epsilon {
			return false
		}
	}
	return true
}
