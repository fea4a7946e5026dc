package library

import (
	"fmt"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/route"
)

// openingInset is how far the passivation opening sits inside a pad.
const openingInset = 2.5

func dcPadType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        DCPad,
		Parent:      Oriented,
		Description: "DC probe pad above the origin. Ports: el0",
		Params: []pcell.Param{
			pcell.Float("pad_width", 120, "Width of electrical pad").WithUnit("um"),
			pcell.Float("pad_height", 120, "Height of electrical pad").WithUnit("um"),
			pcell.Float("port_width", 20, "Port width (same as trace width)").WithUnit("um"),
			pcell.Layer("layer_metal", "M1", "Metal layer"),
			pcell.Layer("layer_opening", "M1_opening", "Opening layer"),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			w, h, pw := p.Float("pad_width"), p.Float("pad_height"), p.Float("port_width")
			metal := p.Layer("layer_metal")
			if w <= 2*openingInset || h <= 2*openingInset {
				return pdkerr.New(pdkerr.CodeInvalidArgument, "pad %gx%g is too small for its opening", w, h)
			}
			center := geom.Pt(0, h/2)
			if err := d.polygon(metal, geom.Rectangle(center, w, h)); err != nil {
				return err
			}
			if err := d.polygon(p.Layer("layer_opening"), geom.Rectangle(center, w-2*openingInset, h-2*openingInset)); err != nil {
				return err
			}
			return d.port(pcell.Port{
				Name:        "el0",
				Position:    geom.Pt(0, pw/2),
				Orientation: 270,
				Kind:        pcell.Electrical,
				Profile:     pcell.Profile{Width: pw, Layer: metal},
			})
		},
	}
}

func dcPadArrayType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        DCPadArray,
		Parent:      DCPad,
		Description: "Row of DC pads along +x. Ports: el_0 .. el_<count-1>",
		Params: []pcell.Param{
			pcell.Int("pad_array_count", 10, "Number of pads"),
			pcell.Float("pad_array_pitch", 150, "Pad array pitch").WithUnit("um"),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			n, pitch := p.Int("pad_array_count"), p.Float("pad_array_pitch")
			if n < 1 {
				return pdkerr.New(pdkerr.CodeInvalidArgument, "pad array needs at least one pad, got %d", n)
			}
			pad, err := ctx.Instantiate(DCPad, map[string]any{
				"pad_width":     p.Float("pad_width"),
				"pad_height":    p.Float("pad_height"),
				"port_width":    p.Float("port_width"),
				"layer_metal":   p.Layer("layer_metal"),
				"layer_opening": p.Layer("layer_opening"),
			})
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				ports, err := d.place(pad, geom.Translate(pitch*float64(i), 0))
				if err != nil {
					return err
				}
				el, err := ports.Must("el0")
				if err != nil {
					return err
				}
				if err := ctx.AddPort(el.Rename(fmt.Sprintf("el_%d", i))); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func viaType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        Via,
		Parent:      Oriented,
		Description: "Square via cut with metal enclosure on both layers",
		Params: []pcell.Param{
			pcell.Float("size", 5, "Via cut size").WithUnit("um"),
			pcell.Float("enclosure", 1, "Metal enclosure around the cut").WithUnit("um"),
			pcell.Layer("layer_bottom", "M1", "Lower metal layer"),
			pcell.Layer("layer_top", "M2", "Upper metal layer"),
			pcell.Layer("layer_via", "VIA1", "Via cut layer"),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			s, enc := p.Float("size"), p.Float("enclosure")
			if s <= 0 || enc < 0 {
				return pdkerr.New(pdkerr.CodeInvalidArgument, "via size %g and enclosure %g", s, enc)
			}
			metal := geom.Rectangle(geom.Point{}, s+2*enc, s+2*enc)
			for _, l := range []layout.Layer{p.Layer("layer_bottom"), p.Layer("layer_top")} {
				if err := d.polygon(l, metal); err != nil {
					return err
				}
			}
			return d.polygon(p.Layer("layer_via"), geom.Rectangle(geom.Point{}, s, s))
		},
	}
}

func rectangleType() pcell.TypeDef {
	return pcell.TypeDef{
		Name:        Rectangle,
		Parent:      Oriented,
		Description: "Rectangle centered on the origin",
		Params: []pcell.Param{
			pcell.Float("width", 10, "").WithUnit("um"),
			pcell.Float("height", 5, "").WithUnit("um"),
			pcell.Layer("layer", "Si", ""),
		},
		Draw: func(ctx *pcell.DrawContext) error {
			d := newDrawer(ctx)
			p := ctx.Params()
			w, h := p.Float("width"), p.Float("height")
			if w <= 0 || h <= 0 {
				return pdkerr.New(pdkerr.CodeInvalidArgument, "rectangle %gx%g", w, h)
			}
			return d.polygon(p.Layer("layer"), geom.Rectangle(geom.Point{}, w, h))
		},
	}
}

// ViaPlacer returns a trace via placer that drops a Via cell, sized to
// the trace width, at every layer change.
func ViaPlacer(s *pcell.Session, cut layout.Layer) route.ViaPlacer {
	return func(cell layout.Cell, at geom.Point, width float64, from, to layout.Layer) error {
		v, err := s.Instantiate(Via, map[string]any{
			"size":         width,
			"layer_bottom": from,
			"layer_top":    to,
			"layer_via":    cut,
		})
		if err != nil {
			return err
		}
		_, err = pcell.PlaceInto(cell, v, geom.Translate(at.X, at.Y))
		return err
	}
}
