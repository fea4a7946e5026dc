// Package route builds axis-aligned connections between ports and lays
// out multi-layer traces with vias.
package route

import (
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/waveguide"
)

// Endpoint is one end of a route. Orientation is the outward direction
// of the port: the route leaves the start along it and reaches the end
// travelling against it.
type Endpoint struct {
	Position    geom.Point
	Orientation float64
}

// FromPort returns the endpoint of a port.
func FromPort(p pcell.Port) Endpoint {
	return Endpoint{Position: p.Position, Orientation: p.Orientation}
}

// Options tunes route shapes.
type Options struct {
	// Clearance is the shortest straight run leaving or entering a port
	// before a bend.
	Clearance float64

	// Radius rounds every corner of a drawn route when positive.
	Radius float64
}

// DefaultOptions returns a 10 unit clearance and sharp corners.
func DefaultOptions() Options {
	return Options{Clearance: 10}
}

// Manhattan returns a path of horizontal and vertical segments from
// from to to. The shape follows from the port directions:
//
//   - perpendicular ports get an L when the corner lies ahead of both,
//     otherwise a four bend escape around them;
//   - opposed ports get a straight line when aligned, otherwise a Z
//     bending halfway;
//   - ports facing the same way get a U beyond the farther one.
//
// Orientations off the axes, opposed ports without room for a Z and
// collinear ports facing the same way fail with UNROUTABLE, as does any
// shape whose first or last segment would not follow its port.
func Manhattan(from, to Endpoint, opts Options) (geom.Path, error) {
	a, b := from.Position, to.Position
	if a.Eq(b, geom.Epsilon) {
		return nil, pdkerr.New(pdkerr.CodeDegeneratePath, "route endpoints coincide at %v", a)
	}
	da, err := axis(from.Orientation)
	if err != nil {
		return nil, err
	}
	db, err := axis(to.Orientation)
	if err != nil {
		return nil, err
	}
	c := math.Max(opts.Clearance, 0)
	d := b.Sub(a)

	var path geom.Path
	switch dot := da.Dot(db); {
	case dot == 0:
		path = perpendicular(a, b, da, db, c)
	case dot < 0:
		ahead, lateral := d.Dot(da), d.Dot(da.Rot90())
		switch {
		case math.Abs(lateral) < geom.Epsilon && ahead > 0:
			path = geom.Path{a, b}
		case ahead >= 2*c && ahead > 0:
			mid := a.Add(da.Scale(ahead / 2))
			path = geom.Path{a, mid, mid.Add(da.Rot90().Scale(lateral)), b}
		default:
			return nil, pdkerr.New(pdkerr.CodeUnroutable,
				"opposed ports %v and %v are %g apart along %v, need %g for a Z", a, b, ahead, da, 2*c)
		}
	default:
		if math.Abs(d.Dot(da.Rot90())) < geom.Epsilon {
			return nil, pdkerr.New(pdkerr.CodeUnroutable, "ports %v and %v face the same way on one line", a, b)
		}
		reach := math.Max(a.Dot(da), b.Dot(da)) + c
		path = geom.Path{
			a,
			a.Add(da.Scale(reach - a.Dot(da))),
			b.Add(da.Scale(reach - b.Dot(da))),
			b,
		}
	}

	path = path.Simplify()
	if n := len(path); path[1].Sub(path[0]).Dot(da) < geom.Epsilon || path[n-1].Sub(path[n-2]).Dot(db) > -geom.Epsilon {
		return nil, pdkerr.New(pdkerr.CodeUnroutable,
			"ports %v and %v need a clearance above %g to leave and arrive along their orientations", a, b, c)
	}
	for i := 2; i < len(path); i++ {
		if path[i-1].Sub(path[i-2]).Dot(path[i].Sub(path[i-1])) < 0 {
			return nil, pdkerr.New(pdkerr.CodeUnroutable, "route from %v to %v doubles back at %v", a, b, path[i-1])
		}
	}
	return path, nil
}

func perpendicular(a, b, da, db geom.Point, c float64) geom.Path {
	// Corner where the two port rays meet.
	s := b.Sub(a).Dot(da)
	t := a.Sub(b).Dot(db)
	if s >= c && t >= c && s > 0 && t > 0 {
		return geom.Path{a, a.Add(da.Scale(s)), b}
	}
	ea, eb := a.Add(da.Scale(c)), b.Add(db.Scale(c))
	k := ea.Add(db.Scale(eb.Sub(ea).Dot(db)))
	return geom.Path{a, ea, k, eb, b}
}

// axis returns the unit vector of an orientation that is a multiple of
// 90 degrees.
func axis(deg float64) (geom.Point, error) {
	a := geom.NormalizeAngle(deg)
	q := math.Round(a / 90)
	if math.Abs(a-q*90) > 1e-9 {
		return geom.Point{}, pdkerr.New(pdkerr.CodeUnroutable, "orientation %g is not axis aligned", deg)
	}
	return geom.Dir(q * 90), nil
}

// Draw routes between two ports and outlines the route on the first
// port's layer, tapering between the port widths. Ports must share kind
// and layer.
func Draw(cell layout.Cell, from, to pcell.Port, opts Options, wg waveguide.Options) (geom.Path, error) {
	if from.Kind != to.Kind || from.Profile.Layer != to.Profile.Layer {
		return nil, pdkerr.New(pdkerr.CodeIncompatibleProfile,
			"cannot route %s on %s to %s on %s", from.Name, from.Profile.Layer, to.Name, to.Profile.Layer)
	}
	path, err := Manhattan(FromPort(from), FromPort(to), opts)
	if err != nil {
		return nil, err
	}
	if opts.Radius > 0 {
		if path, err = waveguide.Round(path, opts.Radius, wg.Arc); err != nil {
			return nil, err
		}
	}
	_, err = waveguide.Draw(cell, from.Profile.Layer, path, waveguide.Linear(from.Profile.Width, to.Profile.Width), wg)
	return path, err
}
