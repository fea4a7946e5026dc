package library

import (
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/waveguide"
)

func straightType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        Straight,
		Parent:      Oriented,
		Description: "Straight waveguide along +x. Ports: opt1, opt2",
		Params: []pcell.Param{
			pcell.Float("length", 10, "Waveguide length").WithUnit("um"),
			pcell.Float("width", 0.5, "Waveguide width").WithUnit("um"),
			pcell.Layer("layer", "Si", "Waveguide layer"),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			l, w, layer := p.Float("length"), p.Float("width"), p.Layer("layer")
			if err := d.waveguide(layer, geom.Path{{}, geom.Pt(l, 0)}, waveguide.Constant(w)); err != nil {
				return err
			}
			return d.ports(
				opticalPort("opt1", geom.Point{}, 180, w, layer),
				opticalPort("opt2", geom.Pt(l, 0), 0, w, layer),
			)
		},
	}
}

// Taper extends Straight: width is the start width.
func taperType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        Taper,
		Parent:      Straight,
		Description: "Linear taper from width to width_end. Ports: opt1, opt2",
		Params: []pcell.Param{
			pcell.Float("width_end", 3, "Width at the end of the taper").WithUnit("um"),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			l, layer := p.Float("length"), p.Layer("layer")
			w0, w1 := p.Float("width"), p.Float("width_end")
			if err := d.waveguide(layer, geom.Path{{}, geom.Pt(l, 0)}, waveguide.Linear(w0, w1)); err != nil {
				return err
			}
			return d.ports(
				opticalPort("opt1", geom.Point{}, 180, w0, layer),
				opticalPort("opt2", geom.Pt(l, 0), 0, w1, layer),
			)
		},
	}
}

func bendType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        Bend,
		Parent:      Oriented,
		Description: "Circular bend starting along +x; positive sweep turns left. Ports: opt1, opt2",
		Params: []pcell.Param{
			pcell.Float("radius", 10, "Bend radius").WithUnit("um"),
			pcell.Float("sweep", 90, "Turn angle, positive counter-clockwise").WithUnit("deg"),
			pcell.Float("width", 0.5, "Waveguide width").WithUnit("um"),
			pcell.Layer("layer", "Si", "Waveguide layer"),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			r, sweep, w, layer := p.Float("radius"), p.Float("sweep"), p.Float("width"), p.Layer("layer")
			path, err := BendPath(r, sweep, d.opts.Arc)
			if err != nil {
				return err
			}
			if err := d.waveguide(layer, path, waveguide.Constant(w)); err != nil {
				return err
			}
			return d.ports(
				opticalPort("opt1", geom.Point{}, 180, w, layer),
				opticalPort("opt2", path[len(path)-1], geom.NormalizeAngle(sweep), w, layer),
			)
		},
	}
}

// BendPath returns the centerline of a bend of radius r that starts at
// the origin heading along +x and turns by sweep degrees.
func BendPath(r, sweep float64, arc geom.ArcOptions) (geom.Path, error) {
	if sweep == 0 || math.Abs(sweep) > 360 || math.IsNaN(sweep) {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "bend sweep must be in [-360, 0) or (0, 360], got %g", sweep)
	}
	center, start, dir := geom.Pt(0, r), -90.0, geom.CCW
	if sweep < 0 {
		center, start, dir = geom.Pt(0, -r), 90, geom.CW
	}
	path, err := geom.Arc(center, r, start, start+sweep, dir, arc)
	if err != nil {
		return nil, err
	}
	path[0] = geom.Point{}
	return path, nil
}

func ringType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        Ring,
		Parent:      Oriented,
		Description: "All-pass ring resonator above a straight bus. Ports: opt1, opt2",
		Params: []pcell.Param{
			pcell.Float("radius", 10, "Ring centerline radius").WithUnit("um"),
			pcell.Float("width", 0.5, "Waveguide width").WithUnit("um"),
			pcell.Float("gap", 0.2, "Edge-to-edge gap between bus and ring").WithUnit("um"),
			pcell.Float("bus_length", 30, "Bus waveguide length").WithUnit("um"),
			pcell.Layer("layer", "Si", "Waveguide layer"),
		},
		Draw: drawRing,
	}
}

func drawRing(ctx *pcell.DrawContext) error {
	d := newDrawer(ctx)
	p := ctx.Params()
	r, w, gap, bus := p.Float("radius"), p.Float("width"), p.Float("gap"), p.Float("bus_length")
	layer := p.Layer("layer")
	if r <= w/2 {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "ring radius %g must exceed half the width %g", r, w/2)
	}
	if gap < 0 {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "ring gap must not be negative, got %g", gap)
	}

	// The annulus is drawn as two halves so each polygon stays simple.
	center := geom.Pt(0, r+w+gap)
	for _, half := range [][2]float64{{0, 180}, {180, 360}} {
		outer, err := geom.Arc(center, r+w/2, half[0], half[1], geom.CCW, d.opts.Arc)
		if err != nil {
			return err
		}
		inner, err := geom.Arc(center, r-w/2, half[1], half[0], geom.CW, d.opts.Arc)
		if err != nil {
			return err
		}
		if err := d.polygon(layer, append(geom.Polygon(outer), inner...)); err != nil {
			return err
		}
	}

	child, err := ctx.Instantiate(Straight, map[string]any{"length": bus, "width": w, "layer": layer})
	if err != nil {
		return err
	}
	ports, err := d.place(child, geom.Translate(-bus/2, 0))
	if err != nil {
		return err
	}
	return ctx.AddPorts(ports.All()...)
}
