package route_test

import (
	"math"
	"testing"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/layout/memory"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/route"
	"github.com/chazu/siphon/pkg/waveguide"
)

var si = layout.Layer{Number: 1}

func busPort(x, y, deg, w float64) pcell.Port {
	return pcell.Port{Name: "b", Position: geom.Pt(x, y), Orientation: deg, Kind: pcell.Optical,
		Profile: pcell.Profile{Width: w, Layer: si}}
}

func row(y, deg float64, xs ...float64) []pcell.Port {
	out := make([]pcell.Port, len(xs))
	for i, x := range xs {
		out[i] = busPort(x, y, deg, 0.5)
	}
	return out
}

func TestClusterPorts(t *testing.T) {
	tests := []struct {
		name     string
		from, to []pcell.Port
		want     []route.Bend
		sizes    []int
	}{
		{"fan right", row(0, 90, 0, 1, 2), row(50, 270, 10, 11, 12), []route.Bend{route.BendZ}, []int{3}},
		{"fan left", row(0, 90, 10, 11, 12), row(50, 270, 0, 1, 2), []route.Bend{route.BendS}, []int{3}},
		{"bend changes", row(0, 90, 0, 1, 2), row(50, 270, -10, 10, 11), []route.Bend{route.BendS, route.BendZ}, []int{1, 2}},
		{"far apart", row(0, 90, 0, 40), row(50, 270, 5, 45), []route.Bend{route.BendZ, route.BendZ}, []int{1, 1}},
		{"unsorted input", row(0, 90, 2, 0, 1), row(50, 270, 12, 10, 11), []route.Bend{route.BendZ}, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := route.ClusterPorts(tt.from, tt.to, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("%d clusters, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, c := range got {
				if c.Bend != tt.want[i] || len(c.Pairs) != tt.sizes[i] {
					t.Errorf("cluster %d = %s with %d pairs, want %s with %d", i, c.Bend, len(c.Pairs), tt.want[i], tt.sizes[i])
				}
				for j := 1; j < len(c.Pairs); j++ {
					if c.Pairs[j].From.Position.X < c.Pairs[j-1].From.Position.X {
						t.Errorf("cluster %d is not sorted along the axis", i)
					}
				}
			}
		})
	}

	if _, err := route.ClusterPorts(row(0, 90, 0, 1), row(50, 270, 0), 0); !pdkerr.Is(err, pdkerr.CodeInvalidArgument) {
		t.Errorf("unequal rows error = %v, want INVALID_ARGUMENT", err)
	}
	if c, err := route.ClusterPorts(nil, nil, 0); err != nil || c != nil {
		t.Errorf("empty bus = %v, %v", c, err)
	}
}

func TestBusPathsNest(t *testing.T) {
	from, to := row(0, 90, 0, 1, 2), row(50, 270, 10, 11, 12)
	clusters, err := route.ClusterPorts(from, to, 0)
	if err != nil {
		t.Fatal(err)
	}
	paths, err := route.BusPaths(clusters, route.BusOptions{Pitch: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("%d paths, want 3", len(paths))
	}

	// The outermost pair crosses highest.
	want := map[float64]float64{2: 2, 1: 4, 0: 6}
	for _, p := range paths {
		if len(p) != 4 {
			t.Fatalf("path %v is not a Z", p)
		}
		start, end := p[0].Point, p[3].Point
		if start.Y != 0 || end.Y != 50 {
			t.Errorf("path %v does not join the rows", p)
		}
		if got := p[1].Point.Y; math.Abs(got-want[start.X]) > 1e-9 {
			t.Errorf("pair from x=%g crosses at %g, want %g", start.X, got, want[start.X])
		}
		pts := make(geom.Path, len(p))
		for i, w := range p {
			pts[i] = w.Point
			if w.Layer != si || w.Width != 0.5 {
				t.Errorf("waypoint %+v changed profile", w)
			}
		}
		if !pts.IsManhattan() {
			t.Errorf("path %v is not Manhattan", pts)
		}
	}
}

func TestBusPathsFollowAxis(t *testing.T) {
	rotate := func(ps []pcell.Port) []pcell.Port {
		out := make([]pcell.Port, len(ps))
		for i, p := range ps {
			out[i] = p.Transform(geom.Rotate(90))
		}
		return out
	}
	from, to := row(0, 90, 0, 1, 2), row(50, 270, 10, 11, 12)

	flat, err := route.ClusterPorts(from, to, 0)
	if err != nil {
		t.Fatal(err)
	}
	want, err := route.BusPaths(flat, route.BusOptions{})
	if err != nil {
		t.Fatal(err)
	}
	turned, err := route.ClusterPorts(rotate(from), rotate(to), 90)
	if err != nil {
		t.Fatal(err)
	}
	got, err := route.BusPaths(turned, route.BusOptions{Axis: 90})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("%d paths, want %d", len(got), len(want))
	}
	for i := range got {
		for j := range got[i] {
			if w := want[i][j].Point.Rotate(90); !got[i][j].Point.Eq(w, 1e-9) {
				t.Errorf("path %d point %d = %v, want %v", i, j, got[i][j].Point, w)
			}
		}
	}
}

func TestBus(t *testing.T) {
	from, to := row(0, 90, 0, 1, 2), row(50, 270, 10, 11, 12)
	for _, radius := range []float64{0, 0.5} {
		cell := memory.New().NewCell("bus")
		paths, err := route.Bus(cell, from, to, route.BusOptions{Pitch: 2, Radius: radius}, waveguide.DefaultOptions())
		if err != nil {
			t.Fatalf("radius %g: %v", radius, err)
		}
		if len(paths) != 3 || len(cell.Shapes()) != 3 {
			t.Errorf("radius %g: %d paths, %d shapes", radius, len(paths), len(cell.Shapes()))
		}
		if radius > 0 && len(paths[0]) <= 4 {
			t.Errorf("rounded bus trace has %d points", len(paths[0]))
		}
	}

	crossing := row(50, 270, 10, 11)
	crossing[1].Position.Y = -50
	if _, err := route.Bus(memory.New().NewCell("x"), row(0, 90, 0, 1), crossing, route.BusOptions{}, waveguide.DefaultOptions()); !pdkerr.Is(err, pdkerr.CodeUnroutable) {
		t.Errorf("split rows error = %v, want UNROUTABLE", err)
	}

	other := row(50, 270, 10)
	other[0].Profile.Layer = layout.Layer{Number: 2}
	if _, err := route.Bus(memory.New().NewCell("x"), row(0, 90, 0), other, route.BusOptions{}, waveguide.DefaultOptions()); !pdkerr.Is(err, pdkerr.CodeIncompatibleProfile) {
		t.Errorf("layer mismatch error = %v, want INCOMPATIBLE_PROFILE", err)
	}
}

func TestConnectL(t *testing.T) {
	cell := memory.New().NewCell("l")
	from := []pcell.Port{busPort(0, 0, 90, 0.5)}
	to := []pcell.Port{busPort(20, 10, 180, 1)}
	if err := route.ConnectL(cell, from, to, 0, waveguide.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if n := len(cell.Shapes()); n != 2 {
		t.Fatalf("%d shapes, want 2", n)
	}
	box, err := layout.BBox(cell)
	if err != nil {
		t.Fatal(err)
	}
	want := geom.Rect{Min: geom.Pt(-0.25, 0), Max: geom.Pt(20, 10.5)}
	if !box.Min.Eq(want.Min, 1e-9) || !box.Max.Eq(want.Max, 1e-9) {
		t.Errorf("bbox = %+v, want %+v", box, want)
	}

	along := []pcell.Port{busPort(0, 0, 0, 0.5)}
	if err := route.ConnectL(cell, along, to, 0, waveguide.DefaultOptions()); !pdkerr.Is(err, pdkerr.CodeUnroutable) {
		t.Errorf("port along the axis error = %v, want UNROUTABLE", err)
	}
}

func TestSmooth(t *testing.T) {
	cell := memory.New().NewCell("s")
	from, to := busPort(0, 0, 0, 0.5), busPort(30, 10, 180, 0.5)
	path, err := route.Smooth(cell, from, to, waveguide.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	n := len(path)
	if n < 10 || !path[0].Eq(from.Position, 1e-9) || !path[n-1].Eq(to.Position, 1e-9) {
		t.Fatalf("path %v", path)
	}
	for _, d := range []geom.Point{path[1].Sub(path[0]), path[n-1].Sub(path[n-2])} {
		if a := d.Normalize(); !a.Eq(geom.Pt(1, 0), 1e-3) {
			t.Errorf("end segment along %v, want +x", a)
		}
	}
	if len(cell.Shapes()) != 1 {
		t.Errorf("%d shapes, want 1", len(cell.Shapes()))
	}

	pin := func(x, y float64) pcell.Port {
		p := busPort(x, y, 0, 1)
		p.Kind = pcell.Electrical
		return p
	}
	straight, err := route.SmoothPath(pin(0, 0), pin(10, 5), waveguide.DefaultOptions().Arc)
	if err != nil || len(straight) != 2 {
		t.Errorf("electrical path = %v, %v", straight, err)
	}

	other := to
	other.Profile.Layer = layout.Layer{Number: 2}
	if _, err := route.Smooth(cell, from, other, waveguide.DefaultOptions()); !pdkerr.Is(err, pdkerr.CodeIncompatibleProfile) {
		t.Errorf("layer mismatch error = %v, want INCOMPATIBLE_PROFILE", err)
	}
}
