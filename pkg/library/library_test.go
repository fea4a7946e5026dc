package library_test

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/layout/memory"
	"github.com/chazu/siphon/pkg/library"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/route"
)

func newSession(t *testing.T) *pcell.Session {
	t.Helper()
	reg, err := library.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return pcell.NewSession(reg, memory.New(),
		pcell.WithLayers(library.DefaultTech()),
		pcell.WithLogger(log.New(io.Discard)))
}

func layer(t *testing.T, name string) layout.Layer {
	t.Helper()
	l, ok := library.DefaultTech().Layer(name)
	if !ok {
		t.Fatalf("default technology has no %s", name)
	}
	return l
}

func draw(t *testing.T, s *pcell.Session, typ string, params map[string]any) (*pcell.Instance, []layout.Shape) {
	t.Helper()
	inst, err := s.Instantiate(typ, params)
	if err != nil {
		t.Fatalf("Instantiate(%s): %v", typ, err)
	}
	cell, err := inst.Draw()
	if err != nil {
		t.Fatalf("Draw(%s): %v", typ, err)
	}
	shapes, err := layout.Flatten(cell)
	if err != nil {
		t.Fatalf("Flatten(%s): %v", typ, err)
	}
	return inst, shapes
}

func port(t *testing.T, inst *pcell.Instance, name string) pcell.Port {
	t.Helper()
	p, err := inst.Port(name)
	if err != nil {
		t.Fatalf("Port(%s): %v", name, err)
	}
	return p
}

func totalArea(polys []geom.Polygon) float64 {
	var a float64
	for _, p := range polys {
		a += math.Abs(p.Area())
	}
	return a
}

func TestRegistryTypes(t *testing.T) {
	reg, err := library.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, name := range []string{
		library.Oriented, library.Straight, library.Taper, library.Bend, library.Ring,
		library.DCPad, library.DCPadArray, library.Via, library.Rectangle,
	} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("%s is not registered", name)
		}
	}
	if err := library.Register(reg); err == nil {
		t.Error("registering the library twice should fail")
	}
}

func TestStraight(t *testing.T) {
	s := newSession(t)
	inst, shapes := draw(t, s, library.Straight, map[string]any{"length": 20.0, "width": 0.5})

	si := layer(t, "Si")
	byLayer := layout.ByLayer(shapes)
	if got := totalArea(byLayer[si]); math.Abs(got-10) > 1e-9 {
		t.Errorf("area = %g, want 10", got)
	}

	opt1, opt2 := port(t, inst, "opt1"), port(t, inst, "opt2")
	if !opt1.Position.Eq(geom.Pt(0, 0), 1e-9) || opt1.Orientation != 180 {
		t.Errorf("opt1 = %v @ %g", opt1.Position, opt1.Orientation)
	}
	if !opt2.Position.Eq(geom.Pt(20, 0), 1e-9) || opt2.Orientation != 0 {
		t.Errorf("opt2 = %v @ %g", opt2.Position, opt2.Orientation)
	}
	if opt2.Profile.Layer != si || opt2.Profile.Width != 0.5 {
		t.Errorf("opt2 profile = %+v", opt2.Profile)
	}
}

func TestTaperInheritsStraight(t *testing.T) {
	s := newSession(t)
	inst, shapes := draw(t, s, library.Taper, map[string]any{"width_end": 1.5})

	// length and width come from Straight.
	if got := inst.Params().Float("length"); got != 10 {
		t.Errorf("length = %g, want 10", got)
	}
	if w0, w1 := port(t, inst, "opt1").Profile.Width, port(t, inst, "opt2").Profile.Width; w0 != 0.5 || w1 != 1.5 {
		t.Errorf("port widths = %g, %g, want 0.5, 1.5", w0, w1)
	}
	// Trapezoid: (0.5 + 1.5) / 2 * 10.
	if got := totalArea(layout.ByLayer(shapes)[layer(t, "Si")]); math.Abs(got-10) > 1e-9 {
		t.Errorf("area = %g, want 10", got)
	}
}

func TestBend(t *testing.T) {
	tests := []struct {
		sweep   float64
		wantEnd geom.Point
		wantDeg float64
	}{
		{90, geom.Pt(10, 10), 90},
		{-90, geom.Pt(10, -10), 270},
		{180, geom.Pt(0, 20), 180},
	}
	s := newSession(t)
	for _, tt := range tests {
		inst, _ := draw(t, s, library.Bend, map[string]any{"radius": 10.0, "sweep": tt.sweep})
		opt2 := port(t, inst, "opt2")
		if !opt2.Position.Eq(tt.wantEnd, 1e-6) {
			t.Errorf("sweep %g: opt2 at %v, want %v", tt.sweep, opt2.Position, tt.wantEnd)
		}
		if math.Abs(opt2.Orientation-tt.wantDeg) > 1e-9 {
			t.Errorf("sweep %g: opt2 faces %g, want %g", tt.sweep, opt2.Orientation, tt.wantDeg)
		}
	}

	if _, err := library.BendPath(10, 0, geom.DefaultArcOptions()); err == nil {
		t.Error("zero sweep should fail")
	}
	if _, err := library.BendPath(10, 400, geom.DefaultArcOptions()); err == nil {
		t.Error("sweep beyond a full turn should fail")
	}
}

func TestRing(t *testing.T) {
	s := newSession(t)
	inst, shapes := draw(t, s, library.Ring, map[string]any{"radius": 5.0, "width": 0.5, "gap": 0.2, "bus_length": 20.0})

	polys := layout.ByLayer(shapes)[layer(t, "Si")]
	if len(polys) != 3 {
		t.Fatalf("got %d polygons on Si, want 2 ring halves and a bus", len(polys))
	}
	// Annulus area 2*pi*r*w less the chord shortfall of the sampling.
	want := 2*math.Pi*5*0.5 + 20*0.5
	if got := totalArea(polys); math.Abs(got-want) > 0.05 {
		t.Errorf("area = %g, want about %g", got, want)
	}
	if p := port(t, inst, "opt1"); !p.Position.Eq(geom.Pt(-10, 0), 1e-9) {
		t.Errorf("opt1 at %v", p.Position)
	}
	if p := port(t, inst, "opt2"); !p.Position.Eq(geom.Pt(10, 0), 1e-9) {
		t.Errorf("opt2 at %v", p.Position)
	}

	inst, err := s.Instantiate(library.Ring, map[string]any{"radius": 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inst.Draw(); err == nil {
		t.Error("radius below half the width should fail")
	}
}

func TestDCPadArray(t *testing.T) {
	s := newSession(t)
	inst, shapes := draw(t, s, library.DCPadArray, map[string]any{"pad_array_count": 4, "pad_array_pitch": 200.0})

	ports, err := inst.Ports()
	if err != nil {
		t.Fatal(err)
	}
	if ports.Len() != 4 {
		t.Fatalf("got %d ports, want 4", ports.Len())
	}
	for i, name := range []string{"el_0", "el_1", "el_2", "el_3"} {
		p, err := ports.Must(name)
		if err != nil {
			t.Fatal(err)
		}
		if want := geom.Pt(200*float64(i), 10); !p.Position.Eq(want, 1e-9) {
			t.Errorf("%s at %v, want %v", name, p.Position, want)
		}
		if p.Kind != pcell.Electrical || p.Orientation != 270 {
			t.Errorf("%s = %+v", name, p)
		}
	}

	byLayer := layout.ByLayer(shapes)
	if n := len(byLayer[layer(t, "M1")]); n != 4 {
		t.Errorf("%d metal pads, want 4", n)
	}
	if got := totalArea(byLayer[layer(t, "M1_opening")]); math.Abs(got-4*115*115) > 1e-6 {
		t.Errorf("opening area = %g", got)
	}
}

func TestViaPlacerInTrace(t *testing.T) {
	s := newSession(t)
	m1, m2, via := layer(t, "M1"), layer(t, "M2"), layer(t, "VIA1")
	cell := memory.New().NewCell("top")

	path := []route.Waypoint{
		{Point: geom.Pt(0, 0), Layer: m1, Width: 4},
		{Point: geom.Pt(50, 0), Layer: m2, Width: 4},
		{Point: geom.Pt(50, 50), Layer: m2, Width: 4},
	}
	if err := route.LayoutTrace(cell, path, library.ViaPlacer(s, via), s.Settings().Waveguide); err != nil {
		t.Fatalf("LayoutTrace: %v", err)
	}
	shapes, err := layout.Flatten(cell)
	if err != nil {
		t.Fatal(err)
	}
	cuts := layout.ByLayer(shapes)[via]
	if len(cuts) != 1 {
		t.Fatalf("got %d via cuts, want 1", len(cuts))
	}
	bb := cuts[0].BBox()
	if !bb.Center().Eq(geom.Pt(50, 0), 1e-9) || math.Abs(bb.Width()-4) > 1e-9 {
		t.Errorf("via cut %v", bb)
	}
}

func TestFrame(t *testing.T) {
	s := newSession(t)
	inst, _ := draw(t, s, library.Straight, map[string]any{
		"origin": geom.Pt(5, 5),
		"angle":  90.0,
		"length": 10.0,
	})
	opt2 := port(t, inst, "opt2")
	if !opt2.Position.Eq(geom.Pt(5, 15), 1e-9) || opt2.Orientation != 90 {
		t.Errorf("opt2 = %v @ %g, want (5, 15) @ 90", opt2.Position, opt2.Orientation)
	}
	bb, err := inst.BBox()
	if err != nil {
		t.Fatal(err)
	}
	if !bb.Min.Eq(geom.Pt(4.75, 5), 1e-9) || !bb.Max.Eq(geom.Pt(5.25, 15), 1e-9) {
		t.Errorf("bbox = %v", bb)
	}
}
