package engine

import (
	"math"
	"testing"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(pcell "Straight" :length 20)`,
			expect: `(pcell "Straight" "__kw_length" 20)`,
		},
		{
			name:   "multiple keywords",
			input:  `(place r :at p :rotate 90)`,
			expect: `(place r "__kw_at" p "__kw_rotate" 90)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def ring-a r)`,
			expect: `(def ring_a r)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:bus-length`,
			expect: `"__kw_bus-length"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestParamName(t *testing.T) {
	for in, want := range map[string]string{
		"bus-length": "bus_length",
		"bus_length": "bus_length",
		"width":      "width",
	} {
		if got := paramName(in); got != want {
			t.Errorf("paramName(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Builtin tests
// ---------------------------------------------------------------------------

// evalDesign evaluates source and fails the test on any error.
func evalDesign(t *testing.T, source string) *Design {
	t.Helper()
	d, evalErrs, err := newEngine(t).Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return d
}

func topBBox(t *testing.T, d *Design) geom.Rect {
	t.Helper()
	if d.Top() == nil {
		t.Fatal("script declared no cell")
	}
	bb, err := layout.BBox(d.Top())
	if err != nil {
		t.Fatalf("BBox: %v", err)
	}
	return bb
}

func wantBBox(t *testing.T, got geom.Rect, min, max geom.Point) {
	t.Helper()
	wantBBoxWithin(t, got, min, max, 1e-6)
}

// wantBBoxWithin allows for sampled arcs, whose caps and miters stray
// slightly from the ideal outline.
func wantBBoxWithin(t *testing.T, got geom.Rect, min, max geom.Point, tol float64) {
	t.Helper()
	if !got.Min.Eq(min, tol) || !got.Max.Eq(max, tol) {
		t.Errorf("bbox = %v .. %v, want %v .. %v", got.Min, got.Max, min, max)
	}
}

func TestPlaceStraight(t *testing.T) {
	d := evalDesign(t, `(cell "top" (place (pcell "Straight" :length 20) :at (vec2 5 0)))`)

	if c, ok := d.Cell("top"); !ok || c != d.Top() {
		t.Fatal("expected cell named top")
	}
	shapes, err := layout.Flatten(d.Top())
	if err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 1 || shapes[0].Layer != (layout.Layer{Number: 1}) {
		t.Fatalf("shapes = %+v", shapes)
	}
	wantBBox(t, topBBox(t, d), geom.Pt(5, -0.25), geom.Pt(25, 0.25))
}

func TestVariableReference(t *testing.T) {
	d := evalDesign(t, `
(def wglen 30)
(def wg (pcell "Straight" :length wglen :width 2))
(cell "top" wg)
`)
	wantBBox(t, topBBox(t, d), geom.Pt(0, -1), geom.Pt(30, 1))
}

func TestKebabCaseParameters(t *testing.T) {
	d := evalDesign(t, `(cell "top" (pcell "Ring" :radius 5 :bus-length 40))`)
	bb := topBBox(t, d)
	if math.Abs(bb.Min.X+20) > 1e-9 || math.Abs(bb.Max.X-20) > 1e-9 {
		t.Errorf("bus spans %g .. %g, want -20 .. 20", bb.Min.X, bb.Max.X)
	}
}

func TestPlaceRotateAndMirror(t *testing.T) {
	d := evalDesign(t, `(cell "top" (place (pcell "Straight") :rotate 90 :at (vec2 1 2)))`)
	wantBBox(t, topBBox(t, d), geom.Pt(0.75, 2), geom.Pt(1.25, 12))

	d = evalDesign(t, `(cell "top" (place (pcell "Bend" :radius 10 :sweep 90) :mirror true))`)
	wantBBoxWithin(t, topBBox(t, d), geom.Pt(0, -10), geom.Pt(10.25, 0.25), 0.01)
}

func TestConnect(t *testing.T) {
	d := evalDesign(t, `
(def wg (pcell "Straight" :length 10))
(def tp (pcell "Taper" :length 5 :width 0.5 :width-end 2))
(cell "top" wg (connect tp "opt1" (port wg "opt2")))
`)
	wantBBox(t, topBBox(t, d), geom.Pt(0, -1), geom.Pt(15, 1))
}

func TestConnectFollowsPlacement(t *testing.T) {
	d := evalDesign(t, `
(def wg (place (pcell "Straight" :length 10) :rotate 90))
(def tp (pcell "Taper" :length 5 :width 0.5 :width-end 2))
(cell "top" wg (connect tp "opt1" (port wg "opt2")))
`)
	wantBBox(t, topBBox(t, d), geom.Pt(-1, 0), geom.Pt(1, 15))
}

func TestRoute(t *testing.T) {
	d := evalDesign(t, `
(def a (pcell "Straight"))
(def b (place (pcell "Straight") :at (vec2 40 30)))
(cell "top" a b (route (port a "opt2") (port b "opt1")))
`)
	shapes, err := layout.Flatten(d.Top())
	if err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 3 {
		t.Errorf("got %d shapes, want two straights and a route", len(shapes))
	}
	wantBBox(t, topBBox(t, d), geom.Pt(0, -0.25), geom.Pt(50, 30.25))
}

func TestSmoothRoute(t *testing.T) {
	d := evalDesign(t, `
(def a (pcell "Straight"))
(def b (place (pcell "Straight") :at (vec2 40 10)))
(cell "top" a b (route (port a "opt2") (port b "opt1") :smooth true))
`)
	shapes, err := layout.Flatten(d.Top())
	if err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 3 {
		t.Fatalf("got %d shapes, want two straights and a connector", len(shapes))
	}
	most := 0
	for _, sh := range shapes {
		most = max(most, len(sh.Polygon))
	}
	if most < 20 {
		t.Errorf("connector outline has %d vertices, want a sampled curve", most)
	}
	box := topBBox(t, d)
	if box.Min.X < -1e-9 || box.Max.X > 50+1e-9 {
		t.Errorf("bbox %+v leaves the span of the ports", box)
	}
}

func TestBusBuiltin(t *testing.T) {
	d := evalDesign(t, `
(def a0 (pcell "Straight"))
(def a1 (place (pcell "Straight") :at (vec2 0 2)))
(def a2 (place (pcell "Straight") :at (vec2 0 4)))
(def b0 (place (pcell "Straight") :at (vec2 60 20)))
(def b1 (place (pcell "Straight") :at (vec2 60 22)))
(def b2 (place (pcell "Straight") :at (vec2 60 24)))
(cell "top" a0 a1 a2 b0 b1 b2
  (bus (list (port a0 "opt2") (port a1 "opt2") (port a2 "opt2"))
       (list (port b0 "opt1") (port b1 "opt1") (port b2 "opt1"))
       :axis 90 :pitch 2))
`)
	shapes, err := layout.Flatten(d.Top())
	if err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 9 {
		t.Fatalf("got %d shapes, want six straights and three traces", len(shapes))
	}
	wantBBox(t, topBBox(t, d), geom.Pt(0, -0.25), geom.Pt(70, 24.25))
}

func TestNestedCells(t *testing.T) {
	d := evalDesign(t, `
(def sub (cell "sub" (pcell "Rectangle")))
(cell "top" (place sub :at (vec2 100 0)))
`)
	if len(d.Cells) != 2 || d.Top().Name() != "top" {
		t.Fatalf("cells = %d, top = %v", len(d.Cells), d.Top())
	}
	wantBBox(t, topBBox(t, d), geom.Pt(95, -2.5), geom.Pt(105, 2.5))
}

func TestLayerBuiltin(t *testing.T) {
	d := evalDesign(t, `
(cell "top"
  (pcell "Rectangle" :layer (layer "M1"))
  (pcell "Rectangle" :layer (layer 4 0))
  (pcell "Rectangle" :layer "M2")
  (pcell "Rectangle" :layer (layer "7/1")))
`)
	shapes, err := layout.Flatten(d.Top())
	if err != nil {
		t.Fatal(err)
	}
	byLayer := layout.ByLayer(shapes)
	for _, l := range []layout.Layer{{Number: 41}, {Number: 4}, {Number: 45}, {Number: 7, Datatype: 1}} {
		if len(byLayer[l]) != 1 {
			t.Errorf("layer %v has %d shapes, want 1", l, len(byLayer[l]))
		}
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unknown type", `(pcell "Nope")`},
		{"unknown parameter", `(pcell "Straight" :lenght 3)`},
		{"unknown layer", `(layer "Unobtainium")`},
		{"vec2 arity", `(vec2 1)`},
		{"duplicate cell", `(cell "top") (cell "top")`},
		{"unknown port", `(port (pcell "Straight") "opt9")`},
		{"port of a cell", `(port (cell "c") "opt1")`},
		{"incompatible connect", `
(def wg (pcell "Straight"))
(def tp (pcell "Taper" :width 1))
(connect tp "opt1" (port wg "opt2"))`},
		{"unroutable", `
(def a (pcell "Straight"))
(def b (place (pcell "Straight") :at (vec2 20 0)))
(cell "top" (route (port a "opt2") (port b "opt2")))`},
		{"draw failure", `(cell "top" (pcell "Rectangle" :width -1))`},
	}
	eng := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if d != nil || len(evalErrs) == 0 {
				t.Fatalf("expected eval errors, got design %v and %v", d, evalErrs)
			}
		})
	}
}
