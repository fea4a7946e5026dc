package pcell

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/tech"
)

// DrawContext is handed to a DrawFunc. It is only valid while that draw
// is running; afterwards every mutating call fails.
type DrawContext struct {
	inst   *Instance
	self   *Instance
	cell   layout.Cell
	parent *DrawContext

	mu     sync.Mutex
	closed bool
	ports  []Port
}

func (c *DrawContext) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *DrawContext) open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Params returns the resolved parameters of the instance being drawn.
func (c *DrawContext) Params() *Params { return c.inst.params }

// Settings returns the session geometry settings.
func (c *DrawContext) Settings() Settings { return c.inst.session.settings }

// Layers returns the session technology, which may be nil.
func (c *DrawContext) Layers() tech.LayerTable { return c.inst.session.layers }

// Logger returns the session logger.
func (c *DrawContext) Logger() *log.Logger { return c.inst.session.logger }

// Instance returns the instance being drawn. Its identity and
// parameters are available; querying its cell or ports fails until the
// draw returns.
func (c *DrawContext) Instance() *Instance { return c.self }

// Cell returns the backend cell being filled. Geometry helpers that take a
// layout.Cell write through it directly.
func (c *DrawContext) Cell() layout.Cell { return c.cell }

// InsertPolygon adds a polygon to the cell being drawn.
func (c *DrawContext) InsertPolygon(layer layout.Layer, poly geom.Polygon) error {
	if err := c.checkOpen("insert polygon"); err != nil {
		return err
	}
	return c.cell.InsertPolygon(layer, poly)
}

// AddPort declares a port of the instance being drawn.
func (c *DrawContext) AddPort(p Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return pdkerr.New(pdkerr.CodePortAfterRealization, "%s: port %q added after draw finished", c.inst.typeName, p.Name)
	}
	if p.Name == "" {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "%s: port name is empty", c.inst.typeName)
	}
	for _, q := range c.ports {
		if q.Name == p.Name {
			return pdkerr.New(pdkerr.CodeDuplicatePort, "%s: duplicate port %q", c.inst.typeName, p.Name)
		}
	}
	c.ports = append(c.ports, p)
	return nil
}

// AddPorts declares several ports.
func (c *DrawContext) AddPorts(ps ...Port) error {
	for _, p := range ps {
		if err := c.AddPort(p); err != nil {
			return err
		}
	}
	return nil
}

// Instantiate creates a child instance in the same session.
func (c *DrawContext) Instantiate(typeName string, overrides map[string]any) (*Instance, error) {
	if err := c.checkOpen("instantiate " + typeName); err != nil {
		return nil, err
	}
	return c.inst.session.instantiate(typeName, overrides, c.inst.depth+1)
}

// Place realizes child if needed, references it from the cell being drawn
// with transform t and returns the child's ports in this cell's frame.
func (c *DrawContext) Place(child *Instance, t geom.Transform) (PortSet, error) {
	if err := c.checkOpen("place"); err != nil {
		return PortSet{}, err
	}
	r, err := child.resolve(c)
	if err != nil {
		return PortSet{}, err
	}
	if err := c.cell.InsertCell(r.cell, t); err != nil {
		return PortSet{}, err
	}
	return r.ports.Transform(t), nil
}

// PlaceOnPort places child so that its port childPort meets target,
// facing it.
func (c *DrawContext) PlaceOnPort(child *Instance, childPort string, target Port) (PortSet, error) {
	t, err := c.alignment(child, childPort, target)
	if err != nil {
		return PortSet{}, err
	}
	return c.Place(child, t)
}

func (c *DrawContext) alignment(child *Instance, childPort string, target Port) (geom.Transform, error) {
	r, err := child.resolve(c)
	if err != nil {
		return geom.Transform{}, err
	}
	p, ok := r.ports.Get(childPort)
	if !ok {
		return geom.Transform{}, pdkerr.New(pdkerr.CodeUnknownPort, "%s has no port %q", child.typeName, childPort)
	}
	return Connect(target, p, c.Settings().PortTolerance)
}

func (c *DrawContext) checkOpen(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "%s: %s after draw finished", c.inst.typeName, op)
	}
	return nil
}

// PlaceInto references child from an arbitrary cell, such as a top-level
// cell that is not itself a PCell, and returns the child's ports in that
// cell's frame.
func PlaceInto(cell layout.Cell, child *Instance, t geom.Transform) (PortSet, error) {
	r, err := child.resolve(nil)
	if err != nil {
		return PortSet{}, err
	}
	if err := cell.InsertCell(r.cell, t); err != nil {
		return PortSet{}, err
	}
	return r.ports.Transform(t), nil
}
