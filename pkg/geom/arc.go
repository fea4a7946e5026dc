package geom

import (
	"math"

	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/go-gl/mathgl/mgl64"
)

// Direction is the sweep direction of an arc.
type Direction int

const (
	CCW Direction = iota
	CW
)

func (d Direction) String() string {
	if d == CW {
		return "cw"
	}
	return "ccw"
}

// ArcOptions bounds the point density of sampled arcs.
type ArcOptions struct {
	// MaxStep is the largest angular step between samples, in degrees.
	MaxStep float64
	// Tolerance is the largest allowed distance between a chord and the
	// true arc (the sagitta), in layout units.
	Tolerance float64
}

// DefaultArcOptions returns the arc sampling used when none is
// configured: 5 degree steps and a 2 nm sagitta.
func DefaultArcOptions() ArcOptions {
	return ArcOptions{MaxStep: 5, Tolerance: 0.002}
}

// Step returns the angular step in degrees used for an arc of radius r.
func (o ArcOptions) Step(r float64) float64 {
	step := o.MaxStep
	if step <= 0 || step > 90 {
		step = 90
	}
	if o.Tolerance > 0 && o.Tolerance < r {
		// sagitta = r(1 - cos(θ/2))
		byTol := mgl64.RadToDeg(2 * math.Acos(1-o.Tolerance/r))
		if byTol < step {
			step = byTol
		}
	}
	return step
}

// Arc samples the circle of the given radius around center from startDeg
// to endDeg. CCW sweeps increase the angle and CW sweeps decrease it;
// equal start and end angles produce a full turn. The first and last
// points lie exactly at the requested angles and every sample lies on
// the circle.
func Arc(center Point, radius, startDeg, endDeg float64, dir Direction, opts ArcOptions) (Path, error) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "arc radius must be positive, got %g", radius)
	}
	sweep := Sweep(startDeg, endDeg, dir)
	n := int(math.Ceil(math.Abs(sweep)/opts.Step(radius) - 1e-9))
	if n < 1 {
		n = 1
	}
	pts := make(Path, 0, n+1)
	for i := 0; i <= n; i++ {
		a := startDeg + sweep*float64(i)/float64(n)
		if i == n {
			a = startDeg + sweep
		}
		pts = append(pts, center.Add(Dir(a).Scale(radius)))
	}
	return pts, nil
}

// Sweep returns the signed angle swept going from start to end in the
// given direction, in (0, 360] for CCW and [-360, 0) for CW.
func Sweep(startDeg, endDeg float64, dir Direction) float64 {
	d := NormalizeAngle(endDeg - startDeg)
	if dir == CW {
		if d == 0 {
			return -360
		}
		return d - 360
	}
	if d == 0 {
		return 360
	}
	return d
}

// FindArc returns the center and radius of the circle through a, b and c.
// ok is false when the points are collinear.
func FindArc(a, b, c Point) (center Point, radius float64, ok bool) {
	ab, bc := b.Sub(a), c.Sub(b)
	den := 2 * ab.Cross(bc)
	if math.Abs(den) < Epsilon {
		return Point{}, math.Inf(1), false
	}
	// Perpendicular bisector intersection.
	a2, b2, c2 := a.Dot(a), b.Dot(b), c.Dot(c)
	ux := (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / den
	uy := (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / den
	center = Point{ux, uy}
	return center, center.Dist(a), true
}
