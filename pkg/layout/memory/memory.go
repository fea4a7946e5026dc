// Package memory implements layout.Backend with plain in-memory cells.
package memory

import (
	"sync"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Compile-time interface checks.
var (
	_ layout.Backend   = (*Backend)(nil)
	_ layout.Discarder = (*Backend)(nil)
	_ layout.Cell      = (*Cell)(nil)
)

// Backend creates memory cells and remembers them in creation order.
type Backend struct {
	mu    sync.Mutex
	cells []*Cell
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{}
}

// NewCell creates a cell. Names need not be unique.
func (b *Backend) NewCell(name string) layout.Cell {
	c := &Cell{name: name}
	b.mu.Lock()
	b.cells = append(b.cells, c)
	b.mu.Unlock()
	return c
}

// Discard removes c from the backend. Unknown cells are ignored.
func (b *Backend) Discard(c layout.Cell) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.cells {
		if layout.Cell(x) == c {
			b.cells = append(b.cells[:i], b.cells[i+1:]...)
			return
		}
	}
}

// Cells returns every cell created so far.
func (b *Backend) Cells() []*Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Cell stores shapes and references.
type Cell struct {
	name string

	mu     sync.RWMutex
	shapes []layout.Shape
	refs   []layout.Ref
}

func (c *Cell) Name() string { return c.name }

func (c *Cell) InsertPolygon(layer layout.Layer, poly geom.Polygon) error {
	if len(poly) < 3 {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "cell %q: polygon needs 3 vertices, got %d", c.name, len(poly))
	}
	cp := make(geom.Polygon, len(poly))
	copy(cp, poly)
	c.mu.Lock()
	c.shapes = append(c.shapes, layout.Shape{Layer: layer, Polygon: cp})
	c.mu.Unlock()
	return nil
}

func (c *Cell) InsertCell(child layout.Cell, t geom.Transform) error {
	if child == nil {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "cell %q: nil child", c.name)
	}
	if child == layout.Cell(c) {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "cell %q: cannot reference itself", c.name)
	}
	c.mu.Lock()
	c.refs = append(c.refs, layout.Ref{Cell: child, Transform: t})
	c.mu.Unlock()
	return nil
}

func (c *Cell) Shapes() []layout.Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]layout.Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}

func (c *Cell) Refs() []layout.Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]layout.Ref, len(c.refs))
	copy(out, c.refs)
	return out
}
