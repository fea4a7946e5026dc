package waveguide

import (
	"math"

	"github.com/chazu/siphon/pkg/pdkerr"
)

// Width gives the waveguide width at every vertex of a path. t holds the
// normalized arc length of each vertex, 0 at the start and 1 at the end.
type Width interface {
	Widths(t []float64) ([]float64, error)
}

type constant float64

// Constant is a fixed width.
func Constant(w float64) Width { return constant(w) }

func (c constant) Widths(t []float64) ([]float64, error) {
	out := make([]float64, len(t))
	for i := range out {
		out[i] = float64(c)
	}
	return out, checkWidths(out)
}

type linear struct{ w0, w1 float64 }

// Linear interpolates from w0 at the start to w1 at the end by arc length.
func Linear(w0, w1 float64) Width { return linear{w0, w1} }

func (l linear) Widths(t []float64) ([]float64, error) {
	out := make([]float64, len(t))
	for i, ti := range t {
		out[i] = l.w0 + (l.w1-l.w0)*ti
	}
	return out, checkWidths(out)
}

// Func evaluates an arbitrary width profile at each vertex.
type Func func(t float64) float64

func (f Func) Widths(t []float64) ([]float64, error) {
	if f == nil {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "nil width function")
	}
	out := make([]float64, len(t))
	for i, ti := range t {
		out[i] = f(ti)
	}
	return out, checkWidths(out)
}

// PerVertex lists one width per path vertex.
type PerVertex []float64

func (p PerVertex) Widths(t []float64) ([]float64, error) {
	if len(p) != len(t) {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "got %d widths for %d vertices", len(p), len(t))
	}
	out := append([]float64(nil), p...)
	return out, checkWidths(out)
}

func checkWidths(ws []float64) error {
	for i, w := range ws {
		if !(w > 0) || math.IsInf(w, 0) {
			return pdkerr.New(pdkerr.CodeInvalidArgument, "width at vertex %d must be positive, got %g", i, w)
		}
	}
	return nil
}
