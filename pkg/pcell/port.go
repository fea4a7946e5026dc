package pcell

import (
	"fmt"
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// PortKind separates optical from electrical connection points.
type PortKind int

const (
	Optical PortKind = iota
	Electrical
)

func (k PortKind) String() string {
	switch k {
	case Optical:
		return "optical"
	case Electrical:
		return "electrical"
	default:
		return fmt.Sprintf("PortKind(%d)", int(k))
	}
}

// Profile is the cross-section presented at a port.
type Profile struct {
	Width float64
	Layer layout.Layer
}

// Port is a named connection point. Orientation is the outward direction
// in degrees: a waveguide leaves the cell through the port along it.
type Port struct {
	Name        string
	Position    geom.Point
	Orientation float64
	Kind        PortKind
	Profile     Profile
}

// Direction returns the outward unit vector.
func (p Port) Direction() geom.Point {
	return geom.Dir(p.Orientation)
}

// Transform maps the port into another frame.
func (p Port) Transform(t geom.Transform) Port {
	p.Position = t.Apply(p.Position)
	p.Orientation = t.ApplyAngle(p.Orientation)
	return p
}

// Flip reverses the orientation. Electrical pins are also moved to the
// far end of their pin length, which is their width.
func (p Port) Flip() Port {
	if p.Kind == Electrical {
		p.Position = p.Position.Add(p.Direction().Scale(p.Profile.Width))
	}
	p.Orientation = geom.NormalizeAngle(p.Orientation + 180)
	return p
}

// Rename returns a copy with another name.
func (p Port) Rename(name string) Port {
	p.Name = name
	return p
}

func (p Port) String() string {
	return fmt.Sprintf("%s %s at %v facing %g", p.Name, p.Kind, p.Position, p.Orientation)
}

// PortSet is an ordered, read-only collection of ports.
type PortSet struct {
	ports []Port
}

// NewPortSet builds a set, rejecting duplicate names.
func NewPortSet(ports ...Port) (PortSet, error) {
	var ps PortSet
	for _, p := range ports {
		if _, ok := ps.Get(p.Name); ok {
			return PortSet{}, pdkerr.New(pdkerr.CodeDuplicatePort, "duplicate port %q", p.Name)
		}
		ps.ports = append(ps.ports, p)
	}
	return ps, nil
}

// Get looks a port up by name.
func (ps PortSet) Get(name string) (Port, bool) {
	for _, p := range ps.ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Must returns the named port or an UNKNOWN_PORT error.
func (ps PortSet) Must(name string) (Port, error) {
	p, ok := ps.Get(name)
	if !ok {
		return Port{}, pdkerr.New(pdkerr.CodeUnknownPort, "no port %q", name)
	}
	return p, nil
}

// All returns the ports in declaration order.
func (ps PortSet) All() []Port {
	return append([]Port(nil), ps.ports...)
}

// Len returns the number of ports.
func (ps PortSet) Len() int { return len(ps.ports) }

// Transform maps every port into another frame.
func (ps PortSet) Transform(t geom.Transform) PortSet {
	out := PortSet{ports: make([]Port, len(ps.ports))}
	for i, p := range ps.ports {
		out.ports[i] = p.Transform(t)
	}
	return out
}

// Connect returns the rigid transform that moves port b onto port a with
// the two facing each other. Ports must share kind and layer, and their
// widths may differ by at most tol.
func Connect(a, b Port, tol float64) (geom.Transform, error) {
	if a.Kind != b.Kind {
		return geom.Transform{}, pdkerr.New(pdkerr.CodeIncompatibleProfile,
			"cannot connect %s port %q to %s port %q", a.Kind, a.Name, b.Kind, b.Name)
	}
	if a.Profile.Layer != b.Profile.Layer {
		return geom.Transform{}, pdkerr.New(pdkerr.CodeIncompatibleProfile,
			"port %q is on %s, port %q on %s", a.Name, a.Profile.Layer, b.Name, b.Profile.Layer)
	}
	if d := math.Abs(a.Profile.Width - b.Profile.Width); d > tol {
		return geom.Transform{}, pdkerr.New(pdkerr.CodeIncompatibleProfile,
			"port %q width %g and port %q width %g differ by %g (tolerance %g)",
			a.Name, a.Profile.Width, b.Name, b.Profile.Width, d, tol)
	}

	rot := geom.Rotate(a.Orientation + 180 - b.Orientation)
	rot.Offset = a.Position.Sub(rot.Apply(b.Position))
	return rot, nil
}
