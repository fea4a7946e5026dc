package route

import (
	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/waveguide"
)

// SmoothPath returns the centerline of a curved connection between two
// ports. Optical ports get the gentlest cubic Bezier that leaves from
// along its orientation and enters to against its orientation, sampled
// to the arc tolerance. Electrical ports are joined by a straight line.
func SmoothPath(from, to pcell.Port, arc geom.ArcOptions) (geom.Path, error) {
	if from.Kind == pcell.Electrical || to.Kind == pcell.Electrical {
		path := geom.Path{from.Position, to.Position}
		if err := geom.ValidatePath(path); err != nil {
			return nil, err
		}
		return path, nil
	}
	b, err := geom.OptimalBezier(from.Position, to.Position, from.Orientation, to.Orientation+180)
	if err != nil {
		return nil, err
	}
	return b.Sample(arc.Tolerance), nil
}

// Smooth draws a curved connection between two ports on the first port's
// layer, tapering between the port widths.
func Smooth(cell layout.Cell, from, to pcell.Port, wg waveguide.Options) (geom.Path, error) {
	if from.Kind != to.Kind || from.Profile.Layer != to.Profile.Layer {
		return nil, pdkerr.New(pdkerr.CodeIncompatibleProfile,
			"cannot connect %s on %s to %s on %s", from.Name, from.Profile.Layer, to.Name, to.Profile.Layer)
	}
	path, err := SmoothPath(from, to, wg.Arc)
	if err != nil {
		return nil, err
	}
	_, err = waveguide.Draw(cell, from.Profile.Layer, path, waveguide.Linear(from.Profile.Width, to.Profile.Width), wg)
	return path, err
}
