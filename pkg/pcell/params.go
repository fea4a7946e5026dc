package pcell

import (
	"fmt"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
)

// Params is the resolved, read-only parameter set of an instance.
// Values keep the declaration order of the flattened type table.
//
// The typed getters panic when the name is not declared or has another
// type; both are programming errors in a draw function, since every
// declared parameter is guaranteed a value of its declared type.
type Params struct {
	names  []string
	values map[string]any
}

func newParams(n int) *Params {
	return &Params{names: make([]string, 0, n), values: make(map[string]any, n)}
}

func (p *Params) set(name string, v any) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = v
}

// Get returns the value of name.
func (p *Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns parameter names in declaration order.
func (p *Params) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of parameters.
func (p *Params) Len() int { return len(p.names) }

// Map returns a copy of the values.
func (p *Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

func (p *Params) Float(name string) float64 { return must[float64](p, name) }
func (p *Params) Int(name string) int { return must[int](p, name) }
func (p *Params) String(name string) string { return must[string](p, name) }
func (p *Params) Bool(name string) bool { return must[bool](p, name) }
func (p *Params) Layer(name string) layout.Layer { return must[layout.Layer](p, name) }
func (p *Params) Point(name string) geom.Point { return must[geom.Point](p, name) }

func must[T any](p *Params, name string) T {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("pcell: parameter %q is not declared", name))
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("pcell: parameter %q is %T, not %T", name, v, zero))
	}
	return t
}

// pairs returns (name, value) pairs in order, for hashing.
func (p *Params) pairs() [][2]any {
	out := make([][2]any, len(p.names))
	for i, n := range p.names {
		out[i] = [2]any{n, p.values[n]}
	}
	return out
}
