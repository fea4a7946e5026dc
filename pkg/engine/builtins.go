package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/route"
	"github.com/chazu/siphon/pkg/tech"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms siphon Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: bus-length -> bus_length
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a geom.Point.
type sexpVec2 struct {
	p geom.Point
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.p.X, v.p.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpLayer wraps a resolved layout.Layer.
type sexpLayer struct {
	l layout.Layer
}

func (l *sexpLayer) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(layer %d %d)", l.l.Number, l.l.Datatype)
}
func (l *sexpLayer) Type() *zygo.RegisteredType { return nil }

// sexpInstance wraps a PCell instance returned by `pcell`.
type sexpInstance struct {
	inst *pcell.Instance
}

func (i *sexpInstance) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pcell %q)", i.inst.Type())
}
func (i *sexpInstance) Type() *zygo.RegisteredType { return nil }

// sexpCell wraps a top cell declared with `cell`.
type sexpCell struct {
	cell layout.Cell
}

func (c *sexpCell) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(cell %q)", c.cell.Name())
}
func (c *sexpCell) Type() *zygo.RegisteredType { return nil }

// sexpPlacement is an instance or cell with the transform it will be
// placed with. Exactly one of inst and cell is set.
type sexpPlacement struct {
	inst *pcell.Instance
	cell layout.Cell
	t    geom.Transform
}

func (p *sexpPlacement) name() string {
	if p.inst != nil {
		return p.inst.Type()
	}
	return p.cell.Name()
}

func (p *sexpPlacement) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(place %q %s)", p.name(), p.t)
}
func (p *sexpPlacement) Type() *zygo.RegisteredType { return nil }

// sexpPort wraps a port in the frame of the cell it will be used in.
type sexpPort struct {
	port pcell.Port
}

func (p *sexpPort) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(port %s)", p.port)
}
func (p *sexpPort) Type() *zygo.RegisteredType { return nil }

// sexpRoute is a deferred route between two ports, Manhattan unless
// smooth is set.
type sexpRoute struct {
	from, to pcell.Port
	opts     route.Options
	smooth   bool
}

func (r *sexpRoute) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(route %q %q)", r.from.Name, r.to.Name)
}
func (r *sexpRoute) Type() *zygo.RegisteredType { return nil }

// sexpBus is a deferred bus between two rows of ports.
type sexpBus struct {
	from, to []pcell.Port
	opts     route.BusOptions
}

func (r *sexpBus) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(bus %d)", len(r.from))
}
func (r *sexpBus) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value; treat as flag with nil.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// paramName maps a script keyword to a parameter name: bus-length and
// bus_length both name bus_length.
func paramName(kw string) string {
	return strings.ReplaceAll(kw, "-", "_")
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_round) and plain strings ("round").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toVec2(s zygo.Sexp) (geom.Point, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.p, nil
	}
	return geom.Point{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

func toPort(s zygo.Sexp) (pcell.Port, error) {
	if p, ok := s.(*sexpPort); ok {
		return p.port, nil
	}
	return pcell.Port{}, fmt.Errorf("expected port, got %T (%s)", s, s.SexpString(nil))
}

// toParamValue converts a script value to a PCell parameter override.
// Layer names given as strings are resolved by the registry.
func toParamValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *sexpLayer:
		return v.l, nil
	case *sexpVec2:
		return v.p, nil
	}
	return nil, fmt.Errorf("unsupported parameter value %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder carries the evaluation state the builtins write into.
type builder struct {
	session *pcell.Session
	design  *Design
	layers  tech.LayerTable
	route   route.Options
}

// placementOf returns x as a placement, placing bare instances and
// cells at the identity.
func placementOf(x zygo.Sexp) (*sexpPlacement, error) {
	switch v := x.(type) {
	case *sexpPlacement:
		return v, nil
	case *sexpInstance:
		return &sexpPlacement{inst: v.inst}, nil
	case *sexpCell:
		return &sexpPlacement{cell: v.cell}, nil
	}
	return nil, fmt.Errorf("expected pcell, cell or placement, got %T (%s)", x, x.SexpString(nil))
}

// addItem draws one body item of a `cell` form into c.
func (b *builder) addItem(c layout.Cell, item zygo.Sexp) error {
	switch v := item.(type) {
	case *sexpRoute:
		wg := b.session.Settings().Waveguide
		if v.smooth {
			_, err := route.Smooth(c, v.from, v.to, wg)
			return err
		}
		_, err := route.Draw(c, v.from, v.to, v.opts, wg)
		return err
	case *sexpBus:
		_, err := route.Bus(c, v.from, v.to, v.opts, b.session.Settings().Waveguide)
		return err
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(v)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := b.addItem(c, it); err != nil {
				return err
			}
		}
		return nil
	}
	if item == zygo.SexpNull {
		return nil
	}
	p, err := placementOf(item)
	if err != nil {
		return err
	}
	if p.inst != nil {
		_, err := pcell.PlaceInto(c, p.inst, p.t)
		return err
	}
	if p.cell == c {
		return fmt.Errorf("cell %q cannot contain itself", c.Name())
	}
	return c.InsertCell(p.cell, p.t)
}

// registerBuiltins installs the siphon DSL builtins into a zygomys
// environment. Instances are created in b.session and top cells are
// recorded in b.design.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec2 10 5)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{p: geom.Pt(x, y)}, nil
	})

	// -----------------------------------------------------------------------
	// (layer "Si"), (layer "1/0") or (layer 1 0)
	// -----------------------------------------------------------------------
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		switch len(args) {
		case 1:
			s, err := toKeywordString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: %w", err)
			}
			l, err := tech.Resolve(b.layers, s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: %w", err)
			}
			return &sexpLayer{l: l}, nil
		case 2:
			n, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: number: %w", err)
			}
			d, err := toFloat64(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: datatype: %w", err)
			}
			return &sexpLayer{l: layout.Layer{Number: int(n), Datatype: int(d)}}, nil
		}
		return zygo.SexpNull, fmt.Errorf("layer requires a name or a number and datatype, got %d arguments", len(args))
	})

	// -----------------------------------------------------------------------
	// (pcell "Straight" :length 20 :width 0.5 :layer (layer "Si"))
	// -----------------------------------------------------------------------
	env.AddFunction("pcell", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("pcell requires a type name as its only positional argument")
		}
		typeName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pcell: type: %w", err)
		}
		overrides := make(map[string]any, len(pa.kw))
		for _, kw := range pa.order {
			v, err := toParamValue(pa.kw[kw])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pcell %s: %s: %w", typeName, kw, err)
			}
			overrides[paramName(kw)] = v
		}
		inst, err := b.session.Instantiate(typeName, overrides)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pcell: %w", err)
		}
		return &sexpInstance{inst: inst}, nil
	})

	// -----------------------------------------------------------------------
	// (place ring :at (vec2 0 50) :rotate 90 :mirror true)
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a pcell or cell as first argument")
		}
		base, err := placementOf(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}

		var t geom.Transform
		if v, ok := pa.kw["mirror"]; ok {
			if t.Mirror, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: mirror: %w", err)
			}
		}
		if v, ok := pa.kw["rotate"]; ok {
			deg, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			t.Rotation = geom.NormalizeAngle(deg)
		}
		if v, ok := pa.kw["at"]; ok {
			if t.Offset, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
		}

		// Placing a placement composes the transforms.
		return &sexpPlacement{inst: base.inst, cell: base.cell, t: t.Compose(base.t)}, nil
	})

	// -----------------------------------------------------------------------
	// (port ring "opt2")
	// -----------------------------------------------------------------------
	env.AddFunction("port", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("port requires a pcell and a port name")
		}
		p, err := placementOf(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("port: %w", err)
		}
		if p.inst == nil {
			return zygo.SexpNull, fmt.Errorf("port: cell %q has no ports", p.cell.Name())
		}
		portName, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("port: name: %w", err)
		}
		port, err := p.inst.Port(portName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("port: %w", err)
		}
		return &sexpPort{port: port.Transform(p.t)}, nil
	})

	// -----------------------------------------------------------------------
	// (connect taper "opt1" (port wg "opt2"))
	// Places the pcell so that its port faces the target port.
	// -----------------------------------------------------------------------
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("connect requires a pcell, its port name and a target port")
		}
		p, err := placementOf(args[0])
		if err != nil || p.inst == nil {
			return zygo.SexpNull, fmt.Errorf("connect: expected a pcell, got %s", args[0].SexpString(nil))
		}
		portName, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: name: %w", err)
		}
		target, err := toPort(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: target: %w", err)
		}
		own, err := p.inst.Port(portName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		t, err := pcell.Connect(target, own, b.session.Settings().PortTolerance)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		return &sexpPlacement{inst: p.inst, t: t}, nil
	})

	// -----------------------------------------------------------------------
	// (route (port a "opt2") (port b "opt1") :clearance 5 :radius 10)
	// -----------------------------------------------------------------------
	env.AddFunction("route", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("route requires two ports")
		}
		from, err := toPort(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("route: from: %w", err)
		}
		to, err := toPort(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("route: to: %w", err)
		}
		opts := b.route
		if v, ok := pa.kw["clearance"]; ok {
			if opts.Clearance, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("route: clearance: %w", err)
			}
		}
		if v, ok := pa.kw["radius"]; ok {
			if opts.Radius, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("route: radius: %w", err)
			}
		}
		r := &sexpRoute{from: from, to: to, opts: opts}
		if v, ok := pa.kw["smooth"]; ok {
			if r.smooth, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("route: smooth: %w", err)
			}
		}
		return r, nil
	})

	// -----------------------------------------------------------------------
	// (bus (list (port a "e1") ...) (list (port b "e1") ...) :pitch 5 :radius 2 :axis 0)
	// -----------------------------------------------------------------------
	env.AddFunction("bus", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("bus requires two lists of ports")
		}
		var rows [2][]pcell.Port
		for i, x := range pa.positional {
			items, err := sexpListToSlice(x)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bus: %w", err)
			}
			for _, it := range items {
				p, err := toPort(it)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("bus: %w", err)
				}
				rows[i] = append(rows[i], p)
			}
		}
		r := &sexpBus{from: rows[0], to: rows[1], opts: route.BusOptions{Radius: b.route.Radius}}
		for key, dst := range map[string]*float64{
			"axis":   &r.opts.Axis,
			"pitch":  &r.opts.Pitch,
			"height": &r.opts.Height,
			"radius": &r.opts.Radius,
		} {
			if v, ok := pa.kw[key]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("bus: %s: %w", key, err)
				}
				*dst = f
			}
		}
		return r, nil
	})

	// -----------------------------------------------------------------------
	// (cell "top" (place ...) (connect ...) (route ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("cell", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("cell requires a name argument")
		}
		cellName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell: name: %w", err)
		}
		if _, ok := b.design.Cell(cellName); ok {
			return zygo.SexpNull, fmt.Errorf("cell: %q already declared", cellName)
		}

		c := b.design.Backend.NewCell(cellName)
		for i, item := range args[1:] {
			if err := b.addItem(c, item); err != nil {
				return zygo.SexpNull, fmt.Errorf("cell %s: item %d: %w", cellName, i+1, err)
			}
		}
		if err := b.design.add(c); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpCell{cell: c}, nil
	})
}
