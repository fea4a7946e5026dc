package pcell

import (
	"sort"
	"strings"
	"sync"

	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/tech"
)

// DrawFunc realizes one instance. It inserts geometry, places children
// and declares ports through ctx.
type DrawFunc func(ctx *DrawContext) error

// TypeDef describes a cell type.
type TypeDef struct {
	Name        string
	Parent      string // optional; single inheritance
	Params      []Param
	Draw        DrawFunc
	Description string

	// Version is mixed into cache keys; bump it when Draw changes.
	Version string
}

// typeRecord is the registry's view of a type.
type typeRecord struct {
	def    TypeDef
	own    []Param // declared on this type, in order
	chain  []string
	table  []Param // flattened, root first
	index  map[string]int
	closed bool // every ancestor is registered
}

// Registry holds cell types. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*typeRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*typeRecord)}
}

// Register adds a type. The parent may be registered later; a type whose
// ancestry leads back to itself is rejected and not registered.
func (r *Registry) Register(def TypeDef) error {
	return r.RegisterAll(def)
}

// RegisterAll adds several types atomically: either all are registered
// or none is.
func (r *Registry) RegisterAll(defs ...TypeDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := make(map[string]*typeRecord, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return pdkerr.New(pdkerr.CodeInvalidArgument, "type name is empty")
		}
		if _, ok := r.types[def.Name]; ok {
			return pdkerr.New(pdkerr.CodeDuplicateType, "type %q already registered", def.Name)
		}
		if _, ok := added[def.Name]; ok {
			return pdkerr.New(pdkerr.CodeDuplicateType, "type %q given twice", def.Name)
		}
		if def.Draw == nil {
			return pdkerr.New(pdkerr.CodeInvalidArgument, "type %q has no draw function", def.Name)
		}
		rec := &typeRecord{def: def}
		for _, p := range def.Params {
			if err := rec.declare(p); err != nil {
				return err
			}
		}
		added[def.Name] = rec
	}

	lookup := func(name string) (*typeRecord, bool) {
		if rec, ok := added[name]; ok {
			return rec, true
		}
		rec, ok := r.types[name]
		return rec, ok
	}
	if err := checkCycles(added, lookup); err != nil {
		return err
	}

	for name, rec := range added {
		r.types[name] = rec
	}
	r.reflatten()
	return nil
}

// Declare adds a parameter to an already registered type.
func (r *Registry) Declare(typeName string, p Param) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.types[typeName]
	if !ok {
		return pdkerr.New(pdkerr.CodeUnknownType, "type %q is not registered", typeName)
	}
	if err := rec.declare(p); err != nil {
		return err
	}
	r.reflatten()
	return nil
}

func (rec *typeRecord) declare(p Param) error {
	if p.Name == "" {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "type %q: parameter name is empty", rec.def.Name)
	}
	for _, q := range rec.own {
		if q.Name == p.Name {
			return pdkerr.New(pdkerr.CodeDuplicateParameter, "type %q already declares %q", rec.def.Name, p.Name)
		}
	}
	rec.own = append(rec.own, p)
	return nil
}

// checkCycles walks the parent edges of every new type with 3-color DFS.
// White (0) = unvisited, gray (1) = on the current chain, black (2) = done.
func checkCycles(added map[string]*typeRecord, lookup func(string) (*typeRecord, bool)) error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return pdkerr.New(pdkerr.CodeCyclicInheritance, "inheritance cycle: %s", strings.Join(append(path, name), " -> "))
		}
		rec, ok := lookup(name)
		if !ok {
			// Forward reference; resolved when the parent arrives.
			color[name] = black
			return nil
		}
		color[name] = gray
		if p := rec.def.Parent; p != "" {
			if err := visit(p, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(added))
	for n := range added {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := visit(n, nil); err != nil {
			return err
		}
	}
	return nil
}

// reflatten recomputes ancestor chains and parameter tables. Called with
// the write lock held.
func (r *Registry) reflatten() {
	for _, rec := range r.types {
		rec.chain = rec.chain[:0]
		rec.closed = true
		for name := rec.def.Name; name != ""; {
			cur, ok := r.types[name]
			if !ok {
				rec.closed = false
				break
			}
			rec.chain = append(rec.chain, name)
			name = cur.def.Parent
		}
		// Root first.
		for i, j := 0, len(rec.chain)-1; i < j; i, j = i+1, j-1 {
			rec.chain[i], rec.chain[j] = rec.chain[j], rec.chain[i]
		}

		rec.table = rec.table[:0]
		rec.index = make(map[string]int)
		if !rec.closed {
			continue
		}
		for _, name := range rec.chain {
			for _, p := range r.types[name].own {
				if i, ok := rec.index[p.Name]; ok {
					rec.table[i] = p
					continue
				}
				rec.index[p.Name] = len(rec.table)
				rec.table = append(rec.table, p)
			}
		}
	}
}

// record returns a usable type record. Called with a read lock held.
func (r *Registry) record(typeName string) (*typeRecord, error) {
	rec, ok := r.types[typeName]
	if !ok {
		return nil, pdkerr.New(pdkerr.CodeUnknownType, "type %q is not registered", typeName)
	}
	if !rec.closed {
		top := r.types[rec.chain[0]]
		return nil, pdkerr.New(pdkerr.CodeUnknownType, "type %q: ancestor %q is not registered", typeName, top.def.Parent)
	}
	return rec, nil
}

// Resolve computes the effective parameters of typeName: the override
// when given, else the default. layers may be nil.
func (r *Registry) Resolve(typeName string, overrides map[string]any, layers tech.LayerTable) (*Params, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.record(typeName)
	if err != nil {
		return nil, err
	}

	for name := range overrides {
		if _, ok := rec.index[name]; !ok {
			return nil, pdkerr.New(pdkerr.CodeUnknownParameter, "type %q has no parameter %q", typeName, name)
		}
	}

	params := newParams(len(rec.table))
	for _, p := range rec.table {
		var (
			v   any
			err error
		)
		if ov, ok := overrides[p.Name]; ok {
			v, err = p.coerce(ov, layers)
		} else {
			v, err = p.defaultValue(layers)
		}
		if err != nil {
			return nil, err
		}
		params.set(p.Name, v)
	}
	return params, nil
}

// Lookup returns the definition of a type.
func (r *Registry) Lookup(typeName string) (TypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.types[typeName]
	if !ok {
		return TypeDef{}, false
	}
	return rec.def, true
}

// Chain returns the ancestry of a type, root first, ending with the type.
func (r *Registry) Chain(typeName string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.record(typeName)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), rec.chain...), nil
}

// Table returns the flattened parameter declarations of a type.
func (r *Registry) Table(typeName string) ([]Param, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.record(typeName)
	if err != nil {
		return nil, err
	}
	return append([]Param(nil), rec.table...), nil
}

// Types returns registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// versions returns "name@version" for every type in the chain.
func (r *Registry) versions(typeName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.types[typeName]
	if !ok {
		return nil
	}
	out := make([]string, len(rec.chain))
	for i, n := range rec.chain {
		out[i] = n + "@" + r.types[n].def.Version
	}
	return out
}
