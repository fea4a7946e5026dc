package pcell

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/siphon/pkg/cache"
	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Instance is a cell type bound to resolved parameters. It is realized at
// most once; the realized cell and ports never change afterwards.
type Instance struct {
	id       uuid.UUID
	typeName string
	params   *Params
	session  *Session
	depth    int

	// self is set on the handle a draw gets from DrawContext.Instance.
	self *DrawContext

	mu       sync.Mutex
	realized bool
	cell     layout.Cell
	ports    PortSet
}

func (i *Instance) ID() uuid.UUID { return i.id }
func (i *Instance) Type() string { return i.typeName }
func (i *Instance) Params() *Params { return i.params }
func (i *Instance) Session() *Session { return i.session }

// Name is the cell name used in the backend.
func (i *Instance) Name() string {
	return fmt.Sprintf("%s_%s", i.typeName, i.id.String()[:8])
}

// Realized reports whether Draw has completed successfully.
func (i *Instance) Realized() bool {
	if c := i.self; c != nil {
		return !c.open() && c.inst.Realized()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.realized
}

// Draw realizes the instance if needed and returns its cell. Calling it
// again returns the same cell without drawing. A failed draw leaves the
// instance unrealized. Querying an instance from inside its own draw
// fails with INVALID_ARGUMENT.
func (i *Instance) Draw() (layout.Cell, error) {
	r, err := i.resolve(nil)
	if err != nil {
		return nil, err
	}
	return r.cell, nil
}

// Cell is an alias of Draw.
func (i *Instance) Cell() (layout.Cell, error) { return i.Draw() }

// Ports returns the ports declared during draw, in the instance frame.
func (i *Instance) Ports() (PortSet, error) {
	r, err := i.resolve(nil)
	if err != nil {
		return PortSet{}, err
	}
	return r.ports, nil
}

// Port returns one port by name.
func (i *Instance) Port(name string) (Port, error) {
	ps, err := i.Ports()
	if err != nil {
		return Port{}, err
	}
	p, ok := ps.Get(name)
	if !ok {
		return Port{}, pdkerr.New(pdkerr.CodeUnknownPort, "%s has no port %q", i.typeName, name)
	}
	return p, nil
}

// BBox returns the bounding box of the realized geometry.
func (i *Instance) BBox() (geom.Rect, error) {
	c, err := i.Draw()
	if err != nil {
		return geom.Rect{}, err
	}
	return layout.BBox(c)
}

// Rebind returns a new unrealized instance with the same parameters that
// draws into backend.
func (i *Instance) Rebind(backend layout.Backend) *Instance {
	return &Instance{
		id:       uuid.New(),
		typeName: i.typeName,
		params:   i.params,
		session:  i.session.withBackend(backend),
		depth:    i.depth,
	}
}

// resolve realizes the instance behind i and returns it. A draw that
// reaches its own instance, directly or through an ancestor, is rejected
// instead of waiting on itself.
func (i *Instance) resolve(parent *DrawContext) (*Instance, error) {
	if c := i.self; c != nil {
		if c.open() {
			return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "%s is used inside its own draw", i.typeName)
		}
		i = c.inst
	}
	for a := parent; a != nil; a = a.parent {
		if a.inst == i {
			return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "%s cannot be placed inside itself", i.typeName)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.realized {
		return i, nil
	}
	if err := i.realize(parent); err != nil {
		return nil, err
	}
	return i, nil
}

// handle returns the view of i handed to its own draw.
func (i *Instance) handle(ctx *DrawContext) *Instance {
	return &Instance{
		id:       i.id,
		typeName: i.typeName,
		params:   i.params,
		session:  i.session,
		depth:    i.depth,
		self:     ctx,
	}
}

// discard drops a cell left behind by a failed draw.
func (i *Instance) discard(cell layout.Cell) {
	if d, ok := i.session.backend.(layout.Discarder); ok {
		d.Discard(cell)
	}
}

// realize runs the draw function. Called with i.mu held.
func (i *Instance) realize(parent *DrawContext) (err error) {
	s := i.session
	if limit := s.settings.MaxDepth; limit > 0 && i.depth > limit {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "%s: hierarchy deeper than %d", i.typeName, limit)
	}
	def, ok := s.reg.Lookup(i.typeName)
	if !ok {
		return pdkerr.New(pdkerr.CodeUnknownType, "type %q is not registered", i.typeName)
	}

	key := i.cacheKey()
	if key != "" {
		if ok, err := i.loadCached(key); err != nil {
			s.logger.Warn("cell cache read failed", "type", i.typeName, "err", err)
		} else if ok {
			s.logger.Debug("cell cache hit", "type", i.typeName, "id", i.id)
			return nil
		}
	}

	ctx := &DrawContext{
		inst:   i,
		cell:   s.backend.NewCell(i.Name()),
		parent: parent,
	}
	ctx.self = i.handle(ctx)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pcell: panic drawing %s: %v", i.typeName, r)
		}
		ctx.close()
		if err != nil {
			i.discard(ctx.cell)
		}
	}()

	if err := def.Draw(ctx); err != nil {
		return fmt.Errorf("pcell: draw %s: %w", i.typeName, err)
	}

	ports, err := NewPortSet(ctx.ports...)
	if err != nil {
		return err
	}
	i.cell = ctx.cell
	i.ports = ports
	i.realized = true
	s.logger.Debug("realized cell", "type", i.typeName, "id", i.id, "shapes", len(ctx.cell.Shapes()), "refs", len(ctx.cell.Refs()), "ports", ports.Len())

	if key != "" {
		if err := i.storeCached(key); err != nil {
			s.logger.Warn("cell cache write failed", "type", i.typeName, "err", err)
		}
	}
	return nil
}

// cachedCell is the persisted form of a realized instance. Geometry is
// stored flattened.
type cachedCell struct {
	Shapes []layout.Shape `json:"shapes"`
	Ports  []Port         `json:"ports"`
}

func (i *Instance) cacheKey() string {
	if i.session.cache == nil {
		return ""
	}
	key, err := cache.Key("cell", i.session.reg.versions(i.typeName), i.params.pairs(), i.session.settings.Waveguide)
	if err != nil {
		i.session.logger.Warn("cell cache key failed", "type", i.typeName, "err", err)
		return ""
	}
	return key
}

func (i *Instance) loadCached(key string) (bool, error) {
	s := i.session
	data, ok, err := s.cache.Get(context.Background(), key)
	if err != nil || !ok {
		return false, err
	}
	var cc cachedCell
	if err := json.Unmarshal(data, &cc); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", i.typeName, err)
	}
	ports, err := NewPortSet(cc.Ports...)
	if err != nil {
		return false, err
	}
	cell := s.backend.NewCell(i.Name())
	for _, sh := range cc.Shapes {
		if err := cell.InsertPolygon(sh.Layer, sh.Polygon); err != nil {
			i.discard(cell)
			return false, err
		}
	}
	i.cell = cell
	i.ports = ports
	i.realized = true
	return true, nil
}

func (i *Instance) storeCached(key string) error {
	shapes, err := layout.Flatten(i.cell)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cachedCell{Shapes: shapes, Ports: i.ports.All()})
	if err != nil {
		return err
	}
	return i.session.cache.Set(context.Background(), key, data)
}
