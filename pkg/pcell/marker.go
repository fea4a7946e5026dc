package pcell

import (
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
)

// DrawPortMarker draws a pin rectangle across the port and an arrow tip
// pointing out of the cell. Electrical pins are as long as they are wide;
// optical pins are short so they stay inside the waveguide end.
func DrawPortMarker(cell layout.Cell, p Port, layer layout.Layer) error {
	pin := p.Profile.Width
	if p.Kind == Optical {
		pin = math.Min(2, p.Profile.Width/10)
	}
	if pin <= 0 || p.Profile.Width <= 0 {
		return nil
	}
	ex := p.Direction()
	ey := ex.Rot90()
	hl, hw := pin/2, p.Profile.Width/2

	rect := geom.Polygon{
		p.Position.Sub(ex.Scale(hl)).Sub(ey.Scale(hw)),
		p.Position.Add(ex.Scale(hl)).Sub(ey.Scale(hw)),
		p.Position.Add(ex.Scale(hl)).Add(ey.Scale(hw)),
		p.Position.Sub(ex.Scale(hl)).Add(ey.Scale(hw)),
	}
	if err := cell.InsertPolygon(layer, rect); err != nil {
		return err
	}
	tip := geom.Polygon{
		p.Position.Add(ex.Scale(0.5 * pin)),
		p.Position.Add(ex.Scale(0.4 * pin)).Add(ey.Scale(0.1 * pin)),
		p.Position.Add(ex.Scale(0.4 * pin)).Sub(ey.Scale(0.1 * pin)),
	}
	return cell.InsertPolygon(layer, tip)
}
