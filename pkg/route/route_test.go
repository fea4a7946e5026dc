package route_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/layout/memory"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/route"
	"github.com/chazu/siphon/pkg/waveguide"
)

func ep(x, y, deg float64) route.Endpoint {
	return route.Endpoint{Position: geom.Pt(x, y), Orientation: deg}
}

func TestManhattanShapes(t *testing.T) {
	tests := []struct {
		name     string
		from, to route.Endpoint
		want     geom.Path
	}{
		{
			name: "L",
			from: ep(0, 0, 0), to: ep(20, 20, 270),
			want: geom.Path{geom.Pt(0, 0), geom.Pt(20, 0), geom.Pt(20, 20)},
		},
		{
			name: "straight",
			from: ep(0, 0, 0), to: ep(30, 0, 180),
			want: geom.Path{geom.Pt(0, 0), geom.Pt(30, 0)},
		},
		{
			name: "Z",
			from: ep(0, 0, 0), to: ep(30, 10, 180),
			want: geom.Path{geom.Pt(0, 0), geom.Pt(15, 0), geom.Pt(15, 10), geom.Pt(30, 10)},
		},
		{
			name: "vertical Z",
			from: ep(0, 0, 90), to: ep(-8, 40, 270),
			want: geom.Path{geom.Pt(0, 0), geom.Pt(0, 20), geom.Pt(-8, 20), geom.Pt(-8, 40)},
		},
		{
			name: "U",
			from: ep(0, 0, 0), to: ep(5, 10, 0),
			want: geom.Path{geom.Pt(0, 0), geom.Pt(15, 0), geom.Pt(15, 10), geom.Pt(5, 10)},
		},
		{
			name: "escape",
			from: ep(0, 0, 0), to: ep(-20, 20, 90),
			want: geom.Path{geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 30), geom.Pt(-20, 30), geom.Pt(-20, 20)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := route.Manhattan(tt.from, tt.to, route.DefaultOptions())
			if err != nil {
				t.Fatalf("Manhattan: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("path = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Eq(tt.want[i], 1e-9) {
					t.Errorf("point %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestManhattanUnroutable(t *testing.T) {
	tests := []struct {
		name     string
		from, to route.Endpoint
	}{
		{"opposed too close", ep(0, 0, 0), ep(15, 10, 180)},
		{"opposed behind", ep(0, 0, 0), ep(-30, 10, 180)},
		{"opposed aligned behind", ep(0, 0, 0), ep(-30, 0, 180)},
		{"same facing collinear", ep(0, 0, 0), ep(20, 0, 0)},
		{"oblique start", ep(0, 0, 45), ep(20, 20, 270)},
		{"oblique end", ep(0, 0, 0), ep(20, 20, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := route.Manhattan(tt.from, tt.to, route.DefaultOptions())
			if !errors.Is(err, pdkerr.ErrUnroutable) {
				t.Errorf("Manhattan = %v, %v; want UNROUTABLE", path, err)
			}
		})
	}

	if _, err := route.Manhattan(ep(3, 3, 0), ep(3, 3, 180), route.DefaultOptions()); !errors.Is(err, pdkerr.ErrDegeneratePath) {
		t.Errorf("coincident endpoints error = %v, want DEGENERATE_PATH", err)
	}
}

// Every successful route is axis aligned, leaves along the start port
// and arrives against the end port without doubling back.
func TestManhattanInvariants(t *testing.T) {
	coords := []float64{-40, -5, 0, 5, 40}
	angles := []float64{0, 90, 180, 270}
	tests := []struct {
		clearance float64
		minRouted int
	}{
		{clearance: 10, minRouted: 150},
		{clearance: 0, minRouted: 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("clearance %g", tt.clearance), func(t *testing.T) {
			opts := route.Options{Clearance: tt.clearance}
			routed := 0
			for _, x := range coords {
				for _, y := range coords {
					for _, fa := range angles {
						for _, ta := range angles {
							if x == 0 && y == 0 {
								continue
							}
							from, to := ep(0, 0, fa), ep(x, y, ta)
							path, err := route.Manhattan(from, to, opts)
							if err != nil {
								if !pdkerr.Is(err, pdkerr.CodeUnroutable) {
									t.Fatalf("%v -> %v: unexpected error %v", from, to, err)
								}
								continue
							}
							routed++
							name := fmt.Sprintf("%v -> %v", from, to)
							checkRoute(t, name, path, from, to)
						}
					}
				}
			}
			if routed < tt.minRouted {
				t.Errorf("only %d of 384 cases routed", routed)
			}
		})
	}
}

func TestManhattanZeroClearance(t *testing.T) {
	opts := route.Options{}
	tests := []struct {
		name     string
		from, to route.Endpoint
		want     geom.Path
	}{
		{"L", ep(0, 0, 0), ep(20, 20, 270), geom.Path{geom.Pt(0, 0), geom.Pt(20, 0), geom.Pt(20, 20)}},
		{"Z", ep(0, 0, 0), ep(30, 10, 180), geom.Path{geom.Pt(0, 0), geom.Pt(15, 0), geom.Pt(15, 10), geom.Pt(30, 10)}},
		{"escape behind start", ep(0, 0, 180), ep(40, 5, 90), nil},
		{"same facing offset", ep(0, 0, 0), ep(40, 40, 0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := route.Manhattan(tt.from, tt.to, opts)
			if tt.want == nil {
				if !errors.Is(err, pdkerr.ErrUnroutable) {
					t.Errorf("Manhattan = %v, %v; want UNROUTABLE", path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Manhattan: %v", err)
			}
			if len(path) != len(tt.want) {
				t.Fatalf("path = %v, want %v", path, tt.want)
			}
			for i := range path {
				if !path[i].Eq(tt.want[i], 1e-9) {
					t.Errorf("path[%d] = %v, want %v", i, path[i], tt.want[i])
				}
			}
		})
	}
}

func checkRoute(t *testing.T, name string, path geom.Path, from, to route.Endpoint) {
	t.Helper()
	n := len(path)
	if n < 2 {
		t.Fatalf("%s: path %v too short", name, path)
	}
	if !path.IsManhattan() {
		t.Errorf("%s: %v is not Manhattan", name, path)
	}
	if !path[0].Eq(from.Position, 1e-9) || !path[n-1].Eq(to.Position, 1e-9) {
		t.Errorf("%s: %v does not join the endpoints", name, path)
	}
	first := path[1].Sub(path[0]).Normalize()
	if !first.Eq(geom.Dir(from.Orientation), 1e-9) {
		t.Errorf("%s: leaves along %v", name, first)
	}
	last := path[n-1].Sub(path[n-2]).Normalize()
	if !last.Eq(geom.Dir(to.Orientation).Neg(), 1e-9) {
		t.Errorf("%s: arrives along %v", name, last)
	}
	for i := 2; i < n; i++ {
		if path[i-1].Sub(path[i-2]).Dot(path[i].Sub(path[i-1])) < 0 {
			t.Errorf("%s: %v doubles back at %d", name, path, i-1)
		}
	}
}

var (
	m1 = layout.Layer{Number: 41}
	m2 = layout.Layer{Number: 45}
	m3 = layout.Layer{Number: 49}
)

type via struct {
	at       geom.Point
	from, to layout.Layer
}

func TestLayoutTrace(t *testing.T) {
	cell := memory.New().NewCell("trace")
	var vias []via
	placer := func(c layout.Cell, at geom.Point, w float64, from, to layout.Layer) error {
		vias = append(vias, via{at, from, to})
		return c.InsertPolygon(m3, geom.Rectangle(at, w, w))
	}
	path := []route.Waypoint{
		{Point: geom.Pt(0, 0), Layer: m1, Width: 2},
		{Point: geom.Pt(10, 0), Layer: m1, Width: 2},
		{Point: geom.Pt(10, 10), Layer: m2, Width: 2},
		{Point: geom.Pt(30, 10), Layer: m2, Width: 2},
		{Point: geom.Pt(30, 10), Layer: m1, Width: 2},
	}
	if err := route.LayoutTrace(cell, path, placer, waveguide.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	want := []via{{geom.Pt(10, 10), m1, m2}, {geom.Pt(30, 10), m2, m1}}
	if len(vias) != len(want) {
		t.Fatalf("vias = %v, want %v", vias, want)
	}
	for i := range want {
		if vias[i] != want[i] {
			t.Errorf("via %d = %v, want %v", i, vias[i], want[i])
		}
	}

	byLayer := layout.ByLayer(cell.Shapes())
	if len(byLayer[m1]) != 1 || len(byLayer[m2]) != 1 || len(byLayer[m3]) != 2 {
		t.Fatalf("shapes per layer: m1=%d m2=%d via=%d", len(byLayer[m1]), len(byLayer[m2]), len(byLayer[m3]))
	}
	bb := byLayer[m2][0].BBox()
	if !bb.Min.Eq(geom.Pt(10, 9), 1e-9) || !bb.Max.Eq(geom.Pt(30, 11), 1e-9) {
		t.Errorf("m2 run spans %v..%v", bb.Min, bb.Max)
	}

	if err := route.LayoutTrace(cell, path[:1], nil, waveguide.DefaultOptions()); !pdkerr.Is(err, pdkerr.CodeDegeneratePath) {
		t.Errorf("single waypoint error = %v", err)
	}
}

func TestAppendL(t *testing.T) {
	path := []route.Waypoint{{Point: geom.Pt(0, 0), Layer: m1, Width: 2}}
	path = route.AppendL(path, route.Waypoint{Point: geom.Pt(10, 20), Layer: m1, Width: 1}, m2)
	if len(path) != 3 {
		t.Fatalf("path = %v", path)
	}
	if c := path[1]; c.Point != geom.Pt(0, 20) || c.Layer != m2 || c.Width != 1 {
		t.Errorf("corner = %+v", c)
	}
}

func TestAppendZ(t *testing.T) {
	tests := []struct {
		name   string
		last   route.Waypoint
		next   route.Waypoint
		height float64
		want   []geom.Point
		widths []float64
	}{
		{
			name:   "up",
			last:   route.Waypoint{Point: geom.Pt(0, 0), Layer: m1, Width: 1},
			next:   route.Waypoint{Point: geom.Pt(20, 30), Layer: m1, Width: 1},
			height: 10,
			want:   []geom.Point{geom.Pt(0, 10), geom.Pt(20, 10)},
			widths: []float64{1, 1},
		},
		{
			name:   "down",
			last:   route.Waypoint{Point: geom.Pt(0, 0), Layer: m1, Width: 1},
			next:   route.Waypoint{Point: geom.Pt(20, -30), Layer: m1, Width: 3},
			height: 10,
			want:   []geom.Point{geom.Pt(0, -10), geom.Pt(20, -10)},
			widths: []float64{1, 3},
		},
		{
			name:   "short jog",
			last:   route.Waypoint{Point: geom.Pt(0, 0), Layer: m1, Width: 3},
			next:   route.Waypoint{Point: geom.Pt(2, 30), Layer: m1, Width: 1},
			height: 10,
			want:   []geom.Point{geom.Pt(0, 10), geom.Pt(2, 10)},
			widths: []float64{1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := route.AppendZ([]route.Waypoint{tt.last}, tt.next, tt.height)
			if len(path) != 4 || path[3] != tt.next {
				t.Fatalf("path = %v", path)
			}
			for i, p := range tt.want {
				if path[i+1].Point != p || path[i+1].Width != tt.widths[i] {
					t.Errorf("point %d = %+v, want %v width %g", i+1, path[i+1], p, tt.widths[i])
				}
			}
		})
	}
}

func TestDrawBetweenPorts(t *testing.T) {
	port := func(x, y, deg float64) pcell.Port {
		return pcell.Port{Name: "p", Position: geom.Pt(x, y), Orientation: deg, Kind: pcell.Optical,
			Profile: pcell.Profile{Width: 0.5, Layer: si}}
	}

	cell := memory.New().NewCell("link")
	path, err := route.Draw(cell, port(0, 0, 0), port(20, 20, 270), route.DefaultOptions(), waveguide.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 3 || len(cell.Shapes()) != 1 {
		t.Errorf("path %v, %d shapes", path, len(cell.Shapes()))
	}

	opts := route.DefaultOptions()
	opts.Radius = 5
	rounded, err := route.Draw(memory.New().NewCell("bent"), port(0, 0, 0), port(20, 20, 270), opts, waveguide.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(rounded) <= 3 {
		t.Errorf("rounded route has %d points", len(rounded))
	}

	other := port(20, 20, 270)
	other.Profile.Layer = layout.Layer{Number: 2}
	if _, err := route.Draw(cell, port(0, 0, 0), other, route.DefaultOptions(), waveguide.DefaultOptions()); !pdkerr.Is(err, pdkerr.CodeIncompatibleProfile) {
		t.Errorf("layer mismatch error = %v", err)
	}
}
