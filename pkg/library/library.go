// Package library provides the default photonic and electrical cells:
// waveguide primitives, rings, DC pads, pad arrays and vias.
//
// Every cell extends Oriented, so it can be drawn at an origin and
// angle of its own in addition to the transform it is placed with.
package library

import (
	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/tech"
	"github.com/chazu/siphon/pkg/waveguide"
)

// Cell type names.
const (
	Oriented   = "Oriented"
	Straight   = "Straight"
	Taper      = "Taper"
	Bend       = "Bend"
	Ring       = "Ring"
	DCPad      = "DCPad"
	DCPadArray = "DCPadArray"
	Via        = "Via"
	Rectangle  = "Rectangle"
)

// Register adds every library cell to reg.
func Register(reg *pcell.Registry) error {
	return reg.RegisterAll(
		pcell.TypeDef{
			Name:        Oriented,
			Description: "Base cell drawn in a local frame at origin, rotated by angle",
			Params: []pcell.Param{
				pcell.Point("origin", geom.Point{}, "Origin of the local frame").WithUnit("um"),
				pcell.Float("angle", 0, "Rotation of the local frame").WithUnit("deg"),
			},
			Draw: func(*pcell.DrawContext) error { return nil },
		},
		straightType(),
		taperType(),
		bendType(),
		ringType(),
		dcPadType(),
		dcPadArrayType(),
		viaType(),
		rectangleType(),
	)
}

// NewRegistry returns a registry holding the library cells.
func NewRegistry() (*pcell.Registry, error) {
	reg := pcell.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// DefaultTech is a small layer table following common SiEPIC EBeam
// numbering, used when no technology file is given.
func DefaultTech() *tech.Technology {
	return tech.New("default", map[string]layout.Layer{
		"Si":         {Number: 1, Datatype: 0},
		"SiN":        {Number: 4, Datatype: 0},
		"M1":         {Number: 41, Datatype: 0},
		"M1_opening": {Number: 13, Datatype: 0},
		"VIA1":       {Number: 44, Datatype: 0},
		"M2":         {Number: 45, Datatype: 0},
		"PinRec":     {Number: 1, Datatype: 10},
		"DevRec":     {Number: 68, Datatype: 0},
	})
}

// Frame is the local frame of an Oriented cell.
func Frame(p *pcell.Params) geom.Transform {
	t := geom.Rotate(p.Float("angle"))
	t.Offset = p.Point("origin")
	return t
}

// drawer writes local-frame geometry through the cell's frame.
type drawer struct {
	ctx   *pcell.DrawContext
	frame geom.Transform
	opts  waveguide.Options
}

func newDrawer(ctx *pcell.DrawContext) drawer {
	return drawer{
		ctx:   ctx,
		frame: Frame(ctx.Params()),
		opts:  ctx.Settings().Waveguide,
	}
}

func (d drawer) polygon(layer layout.Layer, poly geom.Polygon) error {
	return d.ctx.InsertPolygon(layer, poly.Transform(d.frame))
}

func (d drawer) waveguide(layer layout.Layer, path geom.Path, w waveguide.Width) error {
	poly, err := waveguide.Polygon(path, w, d.opts)
	if err != nil {
		return err
	}
	return d.polygon(layer, poly)
}

func (d drawer) port(p pcell.Port) error {
	return d.ctx.AddPort(p.Transform(d.frame))
}

func (d drawer) place(child *pcell.Instance, local geom.Transform) (pcell.PortSet, error) {
	return d.ctx.Place(child, d.frame.Compose(local))
}

func opticalPort(name string, at geom.Point, deg, width float64, layer layout.Layer) pcell.Port {
	return pcell.Port{
		Name:        name,
		Position:    at,
		Orientation: deg,
		Kind:        pcell.Optical,
		Profile:     pcell.Profile{Width: width, Layer: layer},
	}
}

func (d drawer) ports(ps ...pcell.Port) error {
	for _, p := range ps {
		if err := d.port(p); err != nil {
			return err
		}
	}
	return nil
}
