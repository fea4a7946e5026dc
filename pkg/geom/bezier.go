package geom

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/siphon/pkg/pdkerr"
)

// Bezier is a cubic Bezier curve through control points P0..P3.
type Bezier struct {
	P0, P1, P2, P3 Point
}

// At returns the point of the curve at parameter t in [0, 1].
func (b Bezier) At(t float64) Point {
	return fromVec(mgl64.CubicBezierCurve2D(t, b.P0.vec(), b.P1.vec(), b.P2.vec(), b.P3.vec()))
}

// Derivative returns the tangent vector at t.
func (b Bezier) Derivative(t float64) Point {
	u := 1 - t
	return b.P1.Sub(b.P0).Scale(3 * u * u).
		Add(b.P2.Sub(b.P1).Scale(6 * u * t)).
		Add(b.P3.Sub(b.P2).Scale(3 * t * t))
}

func (b Bezier) second(t float64) Point {
	return b.P2.Sub(b.P1.Scale(2)).Add(b.P0).Scale(6 * (1 - t)).
		Add(b.P3.Sub(b.P2.Scale(2)).Add(b.P1).Scale(6 * t))
}

// Curvature returns the signed curvature at t, positive when the curve
// turns counter-clockwise. A vanishing tangent gives +Inf.
func (b Bezier) Curvature(t float64) float64 {
	d, dd := b.Derivative(t), b.second(t)
	den := math.Pow(d.Dot(d), 1.5)
	if den == 0 {
		return math.Inf(1)
	}
	return d.Cross(dd) / den
}

// MaxCurvature returns the largest absolute curvature over n+1 evenly
// spaced parameters.
func (b Bezier) MaxCurvature(n int) float64 {
	if n < 1 {
		n = 1
	}
	var m float64
	for i := 0; i <= n; i++ {
		m = math.Max(m, math.Abs(b.Curvature(float64(i)/float64(n))))
	}
	return m
}

// MinRadius is the smallest bend radius of the curve.
func (b Bezier) MinRadius() float64 {
	return 1 / b.MaxCurvature(300)
}

// Sample returns a polyline within tol of the curve. Extra points just
// after the start and just before the end make the first and last
// segments follow the end tangents.
func (b Bezier) Sample(tol float64) Path {
	if tol <= 0 {
		tol = DefaultArcOptions().Tolerance
	}
	const (
		initial  = 8
		maxDepth = 12
	)
	ts := []float64{0}
	var split func(t0, t1 float64, depth int)
	split = func(t0, t1 float64, depth int) {
		tm := (t0 + t1) / 2
		if depth < maxDepth && deviation(b.At(tm), b.At(t0), b.At(t1)) > tol {
			split(t0, tm, depth+1)
			split(tm, t1, depth+1)
			return
		}
		ts = append(ts, t1)
	}
	for i := 0; i < initial; i++ {
		split(float64(i)/initial, float64(i+1)/initial, 0)
	}

	if scale := b.P3.Dist(b.P0); scale > 0 {
		e := math.Min(1e-3/scale, 1e-3)
		if ts[1] > e {
			ts = slices.Insert(ts, 1, e)
		}
		if n := len(ts); ts[n-2] < 1-e {
			ts = slices.Insert(ts, n-1, 1-e)
		}
	}

	out := make(Path, 0, len(ts))
	for _, t := range ts {
		p := b.At(t)
		if n := len(out); n > 0 && out[n-1].Eq(p, Epsilon) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// deviation is the distance from p to the segment ab.
func deviation(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Dist(a)
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Dist(a.Add(ab.Scale(t)))
}

// OptimalBezier returns the cubic from p0 to p3 that leaves p0 along
// angle0 and arrives at p3 travelling along angle3 (degrees) with the
// gentlest bends. The handle lengths minimize the peak curvature plus the
// curvature at both ends.
func OptimalBezier(p0, p3 Point, angle0, angle3 float64) (Bezier, error) {
	v := p3.Sub(p0)
	scale := v.Norm()
	if scale <= Epsilon {
		return Bezier{}, pdkerr.New(pdkerr.CodeDegeneratePath, "bezier between coincident points %v", p0)
	}
	chord := v.Angle()
	a, b := bezierHandles(
		mgl64.DegToRad(NormalizeAngle(angle0-chord+180)-180),
		mgl64.DegToRad(NormalizeAngle(angle3-chord+180)-180),
	)
	return Bezier{
		P0: p0,
		P1: p0.Add(Dir(angle0).Scale(a * scale)),
		P2: p3.Sub(Dir(angle3).Scale(b * scale)),
		P3: p3,
	}, nil
}

type handleKey struct{ a0, a3 float64 }

var handleCache sync.Map // handleKey -> [2]float64

// bezierHandles solves the unit problem P0 = (0, 0), P3 = (1, 0) for end
// angles in radians within [-pi, pi) and returns the handle lengths.
func bezierHandles(a0, a3 float64) (float64, float64) {
	key := handleKey{a0, a3}
	if v, ok := handleCache.Load(key); ok {
		h := v.([2]float64)
		return h[0], h[1]
	}

	const limit = 1.5
	u0, u3 := Pt(math.Cos(a0), math.Sin(a0)), Pt(math.Cos(a3), math.Sin(a3))
	p0, p3 := Pt(0, 0), Pt(1, 0)

	// Handles that both reach the crossing of the end tangents make a
	// loop; cap them below it when the tangents cross ahead.
	cross := a0*a3 < 0 && math.Abs(a3-a0) < math.Pi
	amax, bmax := limit, limit
	start := 0.3
	if cross {
		third := math.Pi - math.Abs(a3) - math.Abs(a0)
		amax = math.Min(2*math.Abs(math.Sin(a3))/math.Sin(third), 3*limit)
		bmax = math.Min(2*math.Abs(math.Sin(a0))/math.Sin(third), 3*limit)
		start = 0.05
	}

	energy := func(x Point) float64 {
		a, b := x.X, x.Y
		c := Bezier{p0, p0.Add(u0.Scale(a)), p3.Sub(u3.Scale(b)), p3}
		j := curvaturePenalty(c) + math.Exp(-a/0.05) + math.Exp(-b/0.05)
		if cross {
			j -= math.Log(math.Max(1e-3, math.Min(amax-a, bmax-b)))
		} else {
			j += math.Exp((a-amax)/0.05) + math.Exp((b-bmax)/0.05)
		}
		if math.IsNaN(j) {
			return math.Inf(1)
		}
		return j
	}
	x := nelderMead(energy, Pt(start, start))
	handleCache.Store(key, [2]float64{x.X, x.Y})
	return x.X, x.Y
}

// curvaturePenalty weighs the peak curvature against the curvature at
// the ends so that the bend spreads along the curve.
func curvaturePenalty(b Bezier) float64 {
	const n = 300
	var peak float64
	for i := 0; i <= n; i++ {
		peak = math.Max(peak, math.Abs(b.Curvature(float64(i)/n)))
	}
	return peak + 2*(math.Abs(b.Curvature(0))+math.Abs(b.Curvature(1)))
}

// nelderMead minimizes f over the plane from a simplex around x0 that is
// 10% wider along each axis.
func nelderMead(f func(Point) float64, x0 Point) Point {
	const (
		maxIter = 400
		xtol    = 1e-4
		ftol    = 1e-4
	)
	type vertex struct {
		x Point
		f float64
	}
	eval := func(x Point) vertex { return vertex{x, f(x)} }
	s := []vertex{eval(x0), eval(Pt(x0.X*1.1, x0.Y)), eval(Pt(x0.X, x0.Y*1.1))}
	order := func() {
		slices.SortStableFunc(s, func(a, b vertex) int { return cmp.Compare(a.f, b.f) })
	}

	for iter := 0; iter < maxIter; iter++ {
		order()
		spread := math.Max(s[1].x.Dist(s[0].x), s[2].x.Dist(s[0].x))
		if spread <= xtol && math.Abs(s[2].f-s[0].f) <= ftol {
			break
		}
		c := s[0].x.Lerp(s[1].x, 0.5)
		worst := s[2]
		r := eval(c.Add(c.Sub(worst.x)))
		switch {
		case r.f < s[0].f:
			if e := eval(c.Add(c.Sub(worst.x).Scale(2))); e.f < r.f {
				s[2] = e
			} else {
				s[2] = r
			}
			continue
		case r.f < s[1].f:
			s[2] = r
			continue
		case r.f < worst.f:
			if k := eval(c.Add(r.x.Sub(c).Scale(0.5))); k.f <= r.f {
				s[2] = k
				continue
			}
		default:
			if k := eval(c.Add(worst.x.Sub(c).Scale(0.5))); k.f < worst.f {
				s[2] = k
				continue
			}
		}
		for i := 1; i < len(s); i++ {
			s[i] = eval(s[0].x.Lerp(s[i].x, 0.5))
		}
	}
	order()
	return s[0].x
}
