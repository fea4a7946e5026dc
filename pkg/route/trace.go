package route

import (
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/waveguide"
)

// Waypoint is one vertex of a multi-layer trace. Layer is the layer of
// the segment leaving the point; a change of layer puts a via there.
type Waypoint struct {
	Point geom.Point
	Layer layout.Layer
	Width float64
}

// ViaPlacer draws a via at a layer change of a trace.
type ViaPlacer func(cell layout.Cell, at geom.Point, width float64, from, to layout.Layer) error

// LayoutTrace outlines a trace through path. Each run of equal layer is
// one polygon with per-vertex widths; place is called at every layer
// change and may be nil. End with a point on a different layer to
// finish on a via.
func LayoutTrace(cell layout.Cell, path []Waypoint, place ViaPlacer, opts waveguide.Options) error {
	if len(path) < 2 {
		return pdkerr.New(pdkerr.CodeDegeneratePath, "trace has %d waypoint(s), need at least 2", len(path))
	}
	var (
		pts    geom.Path
		widths waveguide.PerVertex
	)
	add := func(w Waypoint) {
		if n := len(pts); n > 0 && pts[n-1].Eq(w.Point, geom.Epsilon) {
			widths[n-1] = math.Max(widths[n-1], w.Width)
			return
		}
		pts = append(pts, w.Point)
		widths = append(widths, w.Width)
	}
	flush := func(layer layout.Layer) error {
		if len(pts) < 2 {
			return nil
		}
		_, err := waveguide.Draw(cell, layer, pts, widths, opts)
		return err
	}

	prev := path[0].Layer
	for _, w := range path {
		add(w)
		if w.Layer == prev {
			continue
		}
		if err := flush(prev); err != nil {
			return err
		}
		if place != nil {
			if err := place(cell, w.Point, w.Width, prev, w.Layer); err != nil {
				return err
			}
		}
		pts, widths = pts[len(pts)-1:], widths[len(widths)-1:]
		prev = w.Layer
	}
	return flush(prev)
}

// AppendL extends path to next through one corner, travelling vertically
// first. The corner segment uses middle and the narrower width.
func AppendL(path []Waypoint, next Waypoint, middle layout.Layer) []Waypoint {
	if len(path) == 0 {
		return append(path, next)
	}
	last := path[len(path)-1]
	corner := Waypoint{
		Point: geom.ManhattanIntersection(last.Point, next.Point),
		Layer: middle,
		Width: math.Min(last.Width, next.Width),
	}
	return append(path, corner, next)
}

// AppendZ extends path to next with a vertical-horizontal-vertical Z.
// The horizontal run sits height above the last point, towards next.
// When the horizontal run is shorter than the two widths both corners
// take the narrower width.
func AppendZ(path []Waypoint, next Waypoint, height float64) []Waypoint {
	if len(path) == 0 {
		return append(path, next)
	}
	last := path[len(path)-1]
	height = math.Abs(height)
	if next.Point.Y < last.Point.Y {
		height = -height
	}
	p1 := last.Point.Add(geom.Pt(0, height))
	p2 := geom.Pt(next.Point.X, p1.Y)

	w1, w2 := last.Width, next.Width
	if p1.Dist(p2) <= w1+w2 {
		w1 = math.Min(w1, w2)
		w2 = w1
	}
	return append(path,
		Waypoint{Point: p1, Layer: last.Layer, Width: w1},
		Waypoint{Point: p2, Layer: next.Layer, Width: w2},
		next,
	)
}
