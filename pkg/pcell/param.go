// Package pcell is the parametric cell engine: parameter declaration and
// resolution, a type registry with single inheritance, lazily realized
// instances, placement of child instances and the port model.
//
// A cell type is a TypeDef: a name, an optional parent, the parameters it
// declares and a DrawFunc. Instances are created through a Session, which
// binds the registry to a layout backend:
//
//	reg := pcell.NewRegistry()
//	reg.Register(pcell.TypeDef{Name: "Straight", Params: ..., Draw: drawStraight})
//	s := pcell.NewSession(reg, memory.New())
//	inst, err := s.Instantiate("Straight", map[string]any{"length": 20.0})
//	cell, err := inst.Draw()
//
// Drawing happens once per instance; every accessor realizes on demand.
package pcell

import (
	"fmt"
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/tech"
)

// ParamType is the declared type of a parameter value.
type ParamType int

const (
	TypeFloat ParamType = iota
	TypeInt
	TypeString
	TypeBool
	TypeLayer
	TypePoint
)

func (t ParamType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeLayer:
		return "layer"
	case TypePoint:
		return "point"
	default:
		return fmt.Sprintf("ParamType(%d)", int(t))
	}
}

// Param declares one parameter of a cell type.
type Param struct {
	Name        string
	Type        ParamType
	Default     any
	Description string
	Unit        string

	// TechLayer names the technology layer used when a layer parameter
	// has no Default.
	TechLayer string
}

// Float, Int, String, Bool, Layer and Point are declaration shorthands.
func Float(name string, def float64, desc string) Param {
	return Param{Name: name, Type: TypeFloat, Default: def, Description: desc}
}

func Int(name string, def int, desc string) Param {
	return Param{Name: name, Type: TypeInt, Default: def, Description: desc}
}

func String(name, def, desc string) Param {
	return Param{Name: name, Type: TypeString, Default: def, Description: desc}
}

func Bool(name string, def bool, desc string) Param {
	return Param{Name: name, Type: TypeBool, Default: def, Description: desc}
}

// Layer declares a layer parameter defaulting to the technology layer
// named techLayer.
func Layer(name, techLayer, desc string) Param {
	return Param{Name: name, Type: TypeLayer, TechLayer: techLayer, Description: desc}
}

func Point(name string, def geom.Point, desc string) Param {
	return Param{Name: name, Type: TypePoint, Default: def, Description: desc}
}

// WithUnit returns a copy of p with Unit set.
func (p Param) WithUnit(unit string) Param {
	p.Unit = unit
	return p
}

// coerce converts v to the canonical Go type of the parameter. Layer
// names are looked up in layers.
func (p Param) coerce(v any, layers tech.LayerTable) (any, error) {
	mismatch := func() error {
		return pdkerr.New(pdkerr.CodeTypeMismatch, "parameter %q expects %s, got %T (%v)", p.Name, p.Type, v, v)
	}
	switch p.Type {
	case TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	case TypeInt:
		switch x := v.(type) {
		case int:
			return x, nil
		case int64:
			return int(x), nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int(x), nil
			}
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeLayer:
		switch x := v.(type) {
		case layout.Layer:
			return x, nil
		case string:
			l, err := tech.Resolve(layers, x)
			if err != nil {
				return nil, pdkerr.Wrap(pdkerr.CodeTypeMismatch, err, "parameter %q", p.Name)
			}
			return l, nil
		}
	case TypePoint:
		switch x := v.(type) {
		case geom.Point:
			return x, nil
		case [2]float64:
			return geom.Point{X: x[0], Y: x[1]}, nil
		}
	}
	return nil, mismatch()
}

// defaultValue returns the declared default, filling layer parameters
// from the technology when needed.
func (p Param) defaultValue(layers tech.LayerTable) (any, error) {
	if p.Default != nil {
		return p.coerce(p.Default, layers)
	}
	if p.Type == TypeLayer && p.TechLayer != "" {
		if layers == nil {
			return nil, pdkerr.New(pdkerr.CodeUnknownLayer, "parameter %q needs technology layer %q but no technology is loaded", p.Name, p.TechLayer)
		}
		l, ok := layers.Layer(p.TechLayer)
		if !ok {
			return nil, pdkerr.New(pdkerr.CodeUnknownLayer, "parameter %q: technology has no layer %q", p.Name, p.TechLayer)
		}
		return l, nil
	}
	return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "parameter %q has no default and no value was given", p.Name)
}
