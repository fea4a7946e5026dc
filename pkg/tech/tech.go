// Package tech loads technology descriptions: the named layers of a
// process and their default waveguide profiles. The cell engine only sees
// the read-only LayerTable interface.
package tech

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// LayerTable maps layer names to layer identifiers.
type LayerTable interface {
	Layer(name string) (layout.Layer, bool)
	Names() []string
}

// Profile is a named default cross-section.
type Profile struct {
	Layer string  `toml:"layer"`
	Width float64 `toml:"width"`
}

// Technology is a named layer table plus default profiles.
type Technology struct {
	Name     string
	layers   map[string]layout.Layer
	profiles map[string]Profile
}

var _ LayerTable = (*Technology)(nil)

type fileLayer struct {
	Layer       string `toml:"layer"`
	Description string `toml:"description"`
}

type file struct {
	Name     string               `toml:"name"`
	Layers   map[string]fileLayer `toml:"layers"`
	Profiles map[string]Profile   `toml:"profiles"`
}

// New builds a Technology from a name→layer map.
func New(name string, layers map[string]layout.Layer) *Technology {
	t := &Technology{
		Name:     name,
		layers:   make(map[string]layout.Layer, len(layers)),
		profiles: make(map[string]Profile),
	}
	for k, v := range layers {
		t.layers[k] = v
	}
	return t
}

// Parse decodes a TOML technology description:
//
//	name = "EBeam"
//	[layers.Si]
//	layer = "1/0"
//	[profiles.strip]
//	layer = "Si"
//	width = 0.5
func Parse(data string) (*Technology, error) {
	var f file
	if err := toml.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("tech: decode: %w", err)
	}
	t := New(f.Name, nil)
	for name, l := range f.Layers {
		id, err := layout.ParseLayer(l.Layer)
		if err != nil {
			return nil, fmt.Errorf("tech: layer %s: %w", name, err)
		}
		t.layers[name] = id
	}
	for name, p := range f.Profiles {
		if _, ok := t.layers[p.Layer]; !ok {
			return nil, pdkerr.New(pdkerr.CodeUnknownLayer, "tech: profile %s references unknown layer %q", name, p.Layer)
		}
		if p.Width <= 0 {
			return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "tech: profile %s has width %g", name, p.Width)
		}
		t.profiles[name] = p
	}
	return t, nil
}

// Load reads and parses a technology file.
func Load(path string) (*Technology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tech: %w", err)
	}
	return Parse(string(data))
}

// Layer looks up a layer by name.
func (t *Technology) Layer(name string) (layout.Layer, bool) {
	l, ok := t.layers[name]
	return l, ok
}

// Names returns the layer names in sorted order.
func (t *Technology) Names() []string {
	names := make([]string, 0, len(t.layers))
	for n := range t.layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NameOf returns the name registered for l, if any.
func (t *Technology) NameOf(l layout.Layer) (string, bool) {
	for _, n := range t.Names() {
		if t.layers[n] == l {
			return n, true
		}
	}
	return "", false
}

// Profile returns a named default profile with its resolved layer.
func (t *Technology) Profile(name string) (Profile, layout.Layer, bool) {
	p, ok := t.profiles[name]
	if !ok {
		return Profile{}, layout.Layer{}, false
	}
	return p, t.layers[p.Layer], true
}

// Resolve accepts either a layer name known to table or a "n/d" literal.
func Resolve(table LayerTable, s string) (layout.Layer, error) {
	if table != nil {
		if l, ok := table.Layer(s); ok {
			return l, nil
		}
	}
	l, err := layout.ParseLayer(s)
	if err != nil {
		return layout.Layer{}, pdkerr.Wrap(pdkerr.CodeUnknownLayer, err, "unknown layer %q", s)
	}
	return l, nil
}
