// Package sdfx implements the layout.Backend interface on top of the
// github.com/deadsy/sdfx SDF library. Every inserted polygon is also kept
// as an sdf.SDF2 so cells can answer bounding box and point queries on
// their flattened geometry.
package sdfx

import (
	"fmt"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Compile-time interface checks.
var (
	_ layout.Backend = (*Backend)(nil)
	_ layout.Cell    = (*Cell)(nil)
)

// Backend creates sdfx-backed cells.
type Backend struct{}

// New returns a new Backend.
func New() *Backend {
	return &Backend{}
}

// NewCell creates an empty cell.
func (b *Backend) NewCell(name string) layout.Cell {
	return &Cell{name: name}
}

// sdfxShape pairs a layout shape with its distance field.
type sdfxShape struct {
	shape layout.Shape
	s     sdf.SDF2
}

// Cell stores shapes with their SDFs and child references.
type Cell struct {
	name string

	mu     sync.RWMutex
	shapes []sdfxShape
	refs   []layout.Ref
}

func (c *Cell) Name() string { return c.name }

// InsertPolygon validates the polygon by building its SDF.
func (c *Cell) InsertPolygon(layer layout.Layer, poly geom.Polygon) error {
	if len(poly) < 3 {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "cell %q: polygon needs 3 vertices, got %d", c.name, len(poly))
	}
	s, err := polygonSDF(poly)
	if err != nil {
		return pdkerr.Wrap(pdkerr.CodeInvalidArgument, err, "cell %q: polygon on %s", c.name, layer)
	}
	cp := make(geom.Polygon, len(poly))
	copy(cp, poly)
	c.mu.Lock()
	c.shapes = append(c.shapes, sdfxShape{shape: layout.Shape{Layer: layer, Polygon: cp}, s: s})
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
	for i, s := range c.shapes {
		out[i] = s.shape
	}
	return out
}

func (c *Cell) Refs() []layout.Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]layout.Ref, len(c.refs))
	copy(out, c.refs)
	return out
}

// SDF returns the union of every polygon on layer reachable from the cell,
// in the cell's frame. It returns nil when the layer is empty.
func (c *Cell) SDF(layer layout.Layer) (sdf.SDF2, error) {
	shapes, err := layout.Flatten(c)
	if err != nil {
		return nil, err
	}
	var parts []sdf.SDF2
	for _, s := range shapes {
		if s.Layer != layer {
			continue
		}
		p, err := polygonSDF(s.Polygon)
		if err != nil {
			return nil, fmt.Errorf("sdfx: layer %s: %w", layer, err)
		}
		parts = append(parts, p)
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	return sdf.Union2D(parts...), nil
}

// Contains reports whether p lies inside the geometry on layer.
func (c *Cell) Contains(layer layout.Layer, p geom.Point) (bool, error) {
	s, err := c.SDF(layer)
	if err != nil || s == nil {
		return false, err
	}
	return s.Evaluate(v2.Vec{X: p.X, Y: p.Y}) <= 0, nil
}

// BoundingBox returns the box of the shapes inserted directly in the
// cell, taken from their SDFs.
func (c *Cell) BoundingBox() geom.Rect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := geom.EmptyRect()
	for _, s := range c.shapes {
		bb := s.s.BoundingBox()
		r = r.ExtendPoint(geom.Pt(bb.Min.X, bb.Min.Y)).ExtendPoint(geom.Pt(bb.Max.X, bb.Max.Y))
	}
	return r
}

func polygonSDF(poly geom.Polygon) (sdf.SDF2, error) {
	verts := make([]v2.Vec, len(poly))
	for i, p := range poly {
		verts[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	return sdf.Polygon2D(verts)
}
