package route

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/waveguide"
)

// Bend is the shape of the traces of a bus cluster, seen with the port
// rows running along +x and the traces climbing towards the far row.
type Bend int

const (
	// BendZ traces shift towards +x.
	BendZ Bend = iota
	// BendS traces shift towards -x.
	BendS
)

func (b Bend) String() string {
	if b == BendS {
		return "S"
	}
	return "Z"
}

// Pair is one connection of a bus.
type Pair struct {
	From, To pcell.Port
}

// Cluster is a run of neighbouring pairs that bend the same way. Their
// traces nest without touching.
type Cluster struct {
	Pairs []Pair
	Bend  Bend
}

// BusOptions tunes bus routes.
type BusOptions struct {
	// Axis is the direction, in degrees, along which both port rows run.
	Axis float64

	// Pitch separates the crossing runs of nested traces. Zero means 1.5
	// times the wider port of each pair.
	Pitch float64

	// Height is added to the first crossing run, measured from the
	// start row.
	Height float64

	// Radius rounds the corners of drawn traces when positive.
	Radius float64
}

// ClusterPorts pairs from[i] with to[i] after sorting both rows along
// axis and splits the pairs into clusters. A cluster ends where the bend
// changes or where the next pair lies more than a port width beyond the
// previous one.
func ClusterPorts(from, to []pcell.Port, axis float64) ([]Cluster, error) {
	if len(from) != len(to) {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "bus has %d start and %d end ports", len(from), len(to))
	}
	if len(from) == 0 {
		return nil, nil
	}
	along := func(p pcell.Port) float64 { return p.Position.Rotate(-axis).X }
	byAxis := func(a, b pcell.Port) int { return cmp.Compare(along(a), along(b)) }
	from, to = slices.Clone(from), slices.Clone(to)
	slices.SortStableFunc(from, byAxis)
	slices.SortStableFunc(to, byAxis)

	var (
		out []Cluster
		cur Cluster
	)
	for i := range from {
		p := Pair{From: from[i], To: to[i]}
		bend := BendS
		if along(p.To) > along(p.From) {
			bend = BendZ
		}
		if i > 0 {
			split := bend != cur.Bend
			if !split {
				near := slices.MinFunc([]pcell.Port{p.From, p.To}, byAxis)
				last := cur.Pairs[len(cur.Pairs)-1]
				far := slices.MaxFunc([]pcell.Port{last.From, last.To}, byAxis)
				split = along(near)-near.Profile.Width > along(far)+far.Profile.Width
			}
			if split {
				out = append(out, cur)
				cur = Cluster{}
			}
		}
		cur.Pairs = append(cur.Pairs, p)
		cur.Bend = bend
	}
	return append(out, cur), nil
}

// BusPaths lays out one Z or S trace per pair. Within a cluster the
// crossing runs are stacked a pitch apart so that no two traces meet.
// Both rows of a cluster must lie on either side of a line along the
// axis.
func BusPaths(clusters []Cluster, opts BusOptions) ([][]Waypoint, error) {
	toLocal := func(p geom.Point) geom.Point { return p.Rotate(-opts.Axis) }
	toWorld := func(p geom.Point) geom.Point { return p.Rotate(opts.Axis) }

	var paths [][]Waypoint
	for _, c := range clusters {
		pairs := slices.Clone(c.Pairs)
		if c.Bend == BendZ {
			slices.Reverse(pairs)
		}

		var up, down bool
		offset := math.Inf(-1)
		for _, p := range pairs {
			if toLocal(p.To.Position).Y > toLocal(p.From.Position).Y {
				up = true
			} else {
				down = true
			}
		}
		if up && down {
			return nil, pdkerr.New(pdkerr.CodeUnroutable,
				"bus ports do not form two rows along %g degrees", opts.Axis)
		}
		if down {
			offset = math.Inf(1)
		}
		for _, p := range pairs {
			y := toLocal(p.From.Position).Y
			if up {
				offset = math.Max(offset, y)
			} else {
				offset = math.Min(offset, y)
			}
		}

		height := opts.Height
		for _, p := range pairs {
			wf, wt := p.From.Profile.Width, p.To.Profile.Width
			pitch := 1.5 * math.Max(wf, wt)
			if opts.Pitch > 0 {
				pitch = math.Max(math.Max(wf, wt), opts.Pitch)
			}
			height += pitch
			p0, p3 := toLocal(p.From.Position), toLocal(p.To.Position)
			path := AppendZ(
				[]Waypoint{{Point: p0, Layer: p.From.Profile.Layer, Width: wf}},
				Waypoint{Point: p3, Layer: p.To.Profile.Layer, Width: wt},
				height+math.Abs(offset-p0.Y),
			)
			for i := range path {
				path[i].Point = toWorld(path[i].Point)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// Bus connects from[i] to to[i], after sorting both rows along the axis,
// with nested Z and S traces drawn into cell. It returns the centerlines.
func Bus(cell layout.Cell, from, to []pcell.Port, opts BusOptions, wg waveguide.Options) ([]geom.Path, error) {
	clusters, err := ClusterPorts(from, to, opts.Axis)
	if err != nil {
		return nil, err
	}
	for _, c := range clusters {
		for _, p := range c.Pairs {
			if p.From.Kind != p.To.Kind || p.From.Profile.Layer != p.To.Profile.Layer {
				return nil, pdkerr.New(pdkerr.CodeIncompatibleProfile,
					"cannot route %s on %s to %s on %s", p.From.Name, p.From.Profile.Layer, p.To.Name, p.To.Profile.Layer)
			}
		}
	}
	traces, err := BusPaths(clusters, opts)
	if err != nil {
		return nil, err
	}

	out := make([]geom.Path, 0, len(traces))
	for _, tr := range traces {
		path := make(geom.Path, len(tr))
		for i, w := range tr {
			path[i] = w.Point
		}
		path = path.Simplify()
		if opts.Radius <= 0 {
			if err := LayoutTrace(cell, tr, nil, wg); err != nil {
				return nil, err
			}
			out = append(out, path)
			continue
		}
		if len(path) > 2 {
			if path, err = waveguide.Round(path, opts.Radius, wg.Arc); err != nil {
				return nil, err
			}
		}
		first, last := tr[0], tr[len(tr)-1]
		if _, err := waveguide.Draw(cell, first.Layer, path, waveguide.Linear(first.Width, last.Width), wg); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

// ConnectL joins from[i] to to[i] with one corner each. Start ports must
// face across the axis; each trace leaves along its start port, turns
// once and runs along the axis into its end port. The corner overlaps
// both segments by half a width so the join is square.
func ConnectL(cell layout.Cell, from, to []pcell.Port, axis float64, wg waveguide.Options) error {
	if len(from) != len(to) {
		return pdkerr.New(pdkerr.CodeInvalidArgument, "L connection has %d start and %d end ports", len(from), len(to))
	}
	ex := geom.Dir(axis)
	ey := ex.Rot90()
	for i := range from {
		pf, pt := from[i], to[i]
		if math.Abs(pf.Direction().Dot(ex)) > 1e-9 {
			return pdkerr.New(pdkerr.CodeUnroutable, "port %s faces %g, not across axis %g", pf.Name, pf.Orientation, axis)
		}
		d := pt.Position.Sub(pf.Position)
		oy, ox := ey, ex
		if d.Dot(ey) < 0 {
			oy = ey.Neg()
		}
		if d.Dot(ex) < 0 {
			ox = ex.Neg()
		}
		corner := pf.Position.Add(ey.Scale(d.Dot(ey)))
		legs := []struct {
			path  geom.Path
			layer layout.Layer
			width float64
		}{
			{geom.Path{pf.Position, corner.Add(oy.Scale(pt.Profile.Width / 2))}, pf.Profile.Layer, pf.Profile.Width},
			{geom.Path{corner.Sub(ox.Scale(pf.Profile.Width / 2)), pt.Position}, pt.Profile.Layer, pt.Profile.Width},
		}
		for _, l := range legs {
			if _, err := waveguide.Draw(cell, l.layer, l.path, waveguide.Constant(l.width), wg); err != nil {
				return err
			}
		}
	}
	return nil
}
