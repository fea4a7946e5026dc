package layout

import (
	"fmt"

	"github.com/chazu/siphon/pkg/geom"
)

// maxDepth guards against reference cycles introduced by a misbehaving
// backend.
const maxDepth = 256

// transformStack accumulates placement transforms during traversal.
type transformStack struct {
	frames []geom.Transform
}

func newTransformStack() *transformStack {
	return &transformStack{frames: []geom.Transform{geom.Identity()}}
}

func (ts *transformStack) push(t geom.Transform) {
	ts.frames = append(ts.frames, ts.top().Compose(t))
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 1 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

func (ts *transformStack) top() geom.Transform {
	return ts.frames[len(ts.frames)-1]
}

func (ts *transformStack) depth() int {
	return len(ts.frames) - 1
}

// Walk visits every polygon reachable from c, mapped into c's frame.
// Shapes of a cell are visited before those of its children. Walk never
// mutates the hierarchy.
func Walk(c Cell, fn func(Shape) error) error {
	if c == nil {
		return nil
	}
	return walkCell(c, newTransformStack(), fn)
}

func walkCell(c Cell, ts *transformStack, fn func(Shape) error) error {
	if ts.depth() > maxDepth {
		return fmt.Errorf("flatten: cell %q nested deeper than %d", c.Name(), maxDepth)
	}
	t := ts.top()
	for _, s := range c.Shapes() {
		if err := fn(Shape{Layer: s.Layer, Polygon: s.Polygon.Transform(t)}); err != nil {
			return err
		}
	}
	for _, ref := range c.Refs() {
		ts.push(ref.Transform)
		err := walkCell(ref.Cell, ts, fn)
		ts.pop()
		if err != nil {
			return fmt.Errorf("flatten: in %q: %w", c.Name(), err)
		}
	}
	return nil
}

// Flatten returns all polygons reachable from c in c's frame.
func Flatten(c Cell) ([]Shape, error) {
	var out []Shape
	err := Walk(c, func(s Shape) error {
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BBox returns the bounding box of everything reachable from c.
func BBox(c Cell) (geom.Rect, error) {
	r := geom.EmptyRect()
	err := Walk(c, func(s Shape) error {
		r = r.Extend(s.Polygon.BBox())
		return nil
	})
	return r, err
}

// ByLayer groups shapes per layer, keeping their order.
func ByLayer(shapes []Shape) map[Layer][]geom.Polygon {
	out := make(map[Layer][]geom.Polygon)
	for _, s := range shapes {
		out[s.Layer] = append(out[s.Layer], s.Polygon)
	}
	return out
}
