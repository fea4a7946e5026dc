// Package waveguide turns centerline paths into outline polygons:
// constant and tapered waveguides, offset rails, layer stacks and
// rounded polylines. Every function is pure; callers insert the result
// into a layout cell.
package waveguide

import (
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Join selects how the outer rail is closed at a corner.
type Join int

const (
	// JoinMiter extends both edges until they meet. Corners whose miter
	// would be longer than MiterLimit half-widths are rounded instead.
	JoinMiter Join = iota
	JoinRound
	JoinBevel
)

func (j Join) String() string {
	switch j {
	case JoinRound:
		return "round"
	case JoinBevel:
		return "bevel"
	default:
		return "miter"
	}
}

// ParseJoin maps "miter", "round" or "bevel" to a Join.
func ParseJoin(s string) (Join, error) {
	switch s {
	case "", "miter":
		return JoinMiter, nil
	case "round":
		return JoinRound, nil
	case "bevel":
		return JoinBevel, nil
	}
	return JoinMiter, pdkerr.New(pdkerr.CodeInvalidArgument, "unknown join %q", s)
}

// Options controls corner handling.
type Options struct {
	Join Join

	// MiterLimit is the largest allowed ratio of miter length to half
	// width. Values below 1 disable miters.
	MiterLimit float64

	// Arc flattens round joins.
	Arc geom.ArcOptions
}

// DefaultOptions returns miter joins capped at 4 with the default arc
// sampling.
func DefaultOptions() Options {
	return Options{Join: JoinMiter, MiterLimit: 4, Arc: geom.DefaultArcOptions()}
}

// Polygon outlines path with the given width, offsetting each vertex by
// half the width along the local normal on both sides.
func Polygon(path geom.Path, width Width, opts Options) (geom.Polygon, error) {
	return Offset(path, 0, width, opts)
}

// Offset outlines a strip of the given width whose center runs at a
// signed distance from path; positive offsets are on the left.
func Offset(path geom.Path, offset float64, width Width, opts Options) (geom.Polygon, error) {
	if err := geom.ValidatePath(path); err != nil {
		return nil, err
	}
	if width == nil {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "nil width")
	}
	ws, err := width.Widths(path.Fractions())
	if err != nil {
		return nil, err
	}
	lo := make([]float64, len(ws))
	hi := make([]float64, len(ws))
	for i, w := range ws {
		hi[i] = offset + w/2
		lo[i] = offset - w/2
	}
	left, err := rail(path, hi, opts)
	if err != nil {
		return nil, err
	}
	right, err := rail(path, lo, opts)
	if err != nil {
		return nil, err
	}
	return closeRails(left, right), nil
}

// Angled outlines path with normals fixed to the direction interpolated
// from fromDeg at the start to toDeg at the end, instead of following
// the path. Useful where a waveguide must end square to a facet.
func Angled(path geom.Path, width Width, fromDeg, toDeg float64) (geom.Polygon, error) {
	if err := geom.ValidatePath(path); err != nil {
		return nil, err
	}
	if width == nil {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "nil width")
	}
	t := path.Fractions()
	ws, err := width.Widths(t)
	if err != nil {
		return nil, err
	}
	left := make(geom.Path, len(path))
	right := make(geom.Path, len(path))
	for i, p := range path {
		n := geom.Dir(fromDeg + (toDeg-fromDeg)*t[i] + 90)
		left[i] = p.Add(n.Scale(ws[i] / 2))
		right[i] = p.Sub(n.Scale(ws[i] / 2))
	}
	return closeRails(left, right), nil
}

// Draw outlines path and inserts the polygon into cell on layer.
func Draw(cell layout.Cell, layer layout.Layer, path geom.Path, width Width, opts Options) (geom.Polygon, error) {
	poly, err := Polygon(path, width, opts)
	if err != nil {
		return nil, err
	}
	return poly, cell.InsertPolygon(layer, poly)
}

func closeRails(left, right geom.Path) geom.Polygon {
	out := make(geom.Polygon, 0, len(left)+len(right))
	push := func(p geom.Point) {
		if n := len(out); n > 0 && out[n-1].Eq(p, geom.Epsilon) {
			return
		}
		out = append(out, p)
	}
	for _, p := range left {
		push(p)
	}
	for i := len(right) - 1; i >= 0; i-- {
		push(right[i])
	}
	if n := len(out); n > 1 && out[0].Eq(out[n-1], geom.Epsilon) {
		out = out[:n-1]
	}
	return out
}

const (
	// parallelEps is the sine below which two segments count as parallel.
	parallelEps = 1e-9

	// innerLimit caps the inner miter; sharper inner corners keep both
	// offset points.
	innerLimit = 16
)

// rail offsets path by d[i] at vertex i along the left normal.
func rail(path geom.Path, d []float64, opts Options) (geom.Path, error) {
	n := len(path)
	normals := make([]geom.Point, n-1)
	dirs := make([]geom.Point, n-1)
	for i := 0; i < n-1; i++ {
		dirs[i] = path[i+1].Sub(path[i]).Normalize()
		normals[i] = dirs[i].Rot90()
	}

	out := make(geom.Path, 0, n+2)
	out = append(out, path[0].Add(normals[0].Scale(d[0])))
	for i := 1; i < n-1; i++ {
		pts, err := corner(path[i], dirs[i-1], dirs[i], d[i], opts)
		if err != nil {
			return nil, err
		}
		out = append(out, pts...)
	}
	out = append(out, path[n-1].Add(normals[n-2].Scale(d[n-1])))
	return out, nil
}

// corner returns the rail points at vertex p between the incoming
// direction u0 and the outgoing direction u1, at signed offset s.
func corner(p, u0, u1 geom.Point, s float64, opts Options) ([]geom.Point, error) {
	if s == 0 {
		return []geom.Point{p}, nil
	}
	n0, n1 := u0.Rot90(), u1.Rot90()
	cross := u0.Cross(u1)
	cos := n0.Dot(n1)

	if math.Abs(cross) < parallelEps && cos > 0 {
		return []geom.Point{p.Add(n0.Scale(s))}, nil
	}

	back, fwd := p.Add(n0.Scale(s)), p.Add(n1.Scale(s))
	antiparallel := math.Abs(cross) < parallelEps
	outer := antiparallel || s*cross < 0

	// Both offset lines meet at p + s(n0+n1)/(1+cos). Its distance from p
	// is |s|/cos(θ/2), so the ratio to |s| is sqrt(2/(1+cos)).
	var miter geom.Point
	ratio := math.Inf(1)
	if !antiparallel {
		miter = p.Add(n0.Add(n1).Scale(s / (1 + cos)))
		ratio = math.Sqrt(2 / (1 + cos))
	}

	if !outer {
		if ratio <= innerLimit {
			return []geom.Point{miter}, nil
		}
		return []geom.Point{back, fwd}, nil
	}

	switch opts.Join {
	case JoinBevel:
		return []geom.Point{back, fwd}, nil
	case JoinMiter:
		if ratio <= opts.MiterLimit {
			return []geom.Point{miter}, nil
		}
	}
	return roundJoin(p, back, fwd, s, opts.Arc)
}

// roundJoin sweeps around p from back to fwd on the outside of the turn.
func roundJoin(p, back, fwd geom.Point, s float64, arc geom.ArcOptions) ([]geom.Point, error) {
	dir := geom.CCW
	if s > 0 {
		dir = geom.CW
	}
	a0 := back.Sub(p).Angle()
	a1 := fwd.Sub(p).Angle()
	pts, err := geom.Arc(p, math.Abs(s), a0, a1, dir, arc)
	if err != nil {
		return nil, err
	}
	// Snap the ends so neighbouring rail points line up exactly.
	pts[0], pts[len(pts)-1] = back, fwd
	return pts, nil
}
