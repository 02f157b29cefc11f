package mesh

import (
	"context"
	"math"
	"sync"

	"github.com/aukilabs/yggdrasil/geometry"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
	"gonum.org/v1/gonum/spatial/r3"
)

// BranchStride is the number of floats per vertex of a branches layer:
// position, radial direction and distance from the root.
const BranchStride = 7

// Vertex is a point on the surface of a tube.
type Vertex struct {
	Position r3.Vec

	// The outward direction from the centreline. Leaf apexes point along the
	// branch.
	Radial r3.Vec

	// The length of the path from the root.
	Distance float64
}

// Tubes is an indexed triangle mesh of tapered tubes.
type Tubes struct {
	Vertices []Vertex
	Indices  []uint32
}

func (t *Tubes) append(other Tubes) {
	offset := uint32(len(t.Vertices))

	t.Vertices = append(t.Vertices, other.Vertices...)
	for _, i := range other.Indices {
		t.Indices = append(t.Indices, i+offset)
	}
}

// Branches models networks as tapered tubes following the branches.
type Branches struct {
	config   models.MeshConfiguration
	parallel bool
}

// NewBranches creates a branches modeller. Roots are modelled concurrently
// when parallel is true. The output does not depend on it.
func NewBranches(c models.MeshConfiguration, parallel bool) *Branches {
	return &Branches{
		config:   c,
		parallel: parallel,
	}
}

func (b *Branches) Name() string {
	return "branches"
}

func (b *Branches) Model(ctx context.Context, n *network.Network) (modules.Layer, error) {
	if err := ctx.Err(); err != nil {
		return modules.Layer{}, err
	}

	tubes := b.Build(n.Roots())

	l := modules.Layer{
		Name:     b.Name(),
		Mode:     modules.Triangles,
		Stride:   BranchStride,
		Vertices: make([]float32, 0, len(tubes.Vertices)*BranchStride),
		Indices:  tubes.Indices,
	}
	for _, v := range tubes.Vertices {
		l.Vertices = append(l.Vertices,
			float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z),
			float32(v.Radial.X), float32(v.Radial.Y), float32(v.Radial.Z),
			float32(v.Distance))
	}
	return l, nil
}

// Build models every root and concatenates the results in root order.
func (b *Branches) Build(roots []*network.Node) Tubes {
	parts := make([]Tubes, len(roots))

	if b.parallel {
		var wg sync.WaitGroup
		for i, root := range roots {
			wg.Add(1)
			go func(i int, root *network.Node) {
				defer wg.Done()
				parts[i] = b.BuildRoot(root)
			}(i, root)
		}
		wg.Wait()
	} else {
		for i, root := range roots {
			parts[i] = b.BuildRoot(root)
		}
	}

	var tubes Tubes
	for _, p := range parts {
		tubes.append(p)
	}
	return tubes
}

// BuildRoot models the tree of a single root. Indices start at 0. A root
// without children produces nothing.
func (b *Branches) BuildRoot(root *network.Node) Tubes {
	var t tubeBuilder
	t.config = b.config

	if root.IsLeaf() {
		return t.tubes
	}

	frame := geometry.NewFrame(root.Direction())
	radius := t.radius(root)
	base := t.ring(root.Position(), frame, radius, t.steps(radius, 0), root.Distance())

	t.node(root, base, frame)
	return t.tubes
}

// ring is a closed loop of consecutive vertices.
type ring struct {
	start uint32
	steps int
}

func (r ring) at(i int) uint32 {
	return r.start + uint32(i%r.steps)
}

type tubeBuilder struct {
	config models.MeshConfiguration
	tubes  Tubes
}

// node models the segments from a node to each of its children. base is the
// ring around the node and frame the frame it was built with.
func (t *tubeBuilder) node(n *network.Node, base ring, frame geometry.Frame) {
	parentRadius := t.radius(n)

	for _, child := range n.Children() {
		start, startFrame, startRadius := base, frame, parentRadius

		if radius := t.radius(child); radius/parentRadius < t.config.SplitThreshold {
			startRadius = radius
			start = t.ring(n.Position(), frame, radius, t.steps(radius, 0), n.Distance())
		}

		end, endFrame := t.segment(n, child, start, startFrame, startRadius)
		if !child.IsLeaf() {
			t.node(child, end, endFrame)
		}
	}
}

// segment models the tube from a node to one of its children, starting from
// the given ring. It returns the last ring and its frame. Leaves are capped
// and return a zero ring.
func (t *tubeBuilder) segment(from, to *network.Node, start ring, frame geometry.Frame, startRadius float64) (ring, geometry.Frame) {
	a, d := from.Position(), to.Position()
	length := math.Sqrt(r3.Norm2(r3.Sub(d, a)))
	control := length * t.config.ControlFraction

	startDirection := from.Direction()
	endDirection := to.Direction()

	curve := geometry.Bezier{
		A: a,
		B: r3.Add(a, r3.Scale(control, startDirection)),
		C: r3.Sub(d, r3.Scale(control, endDirection)),
		D: d,
	}

	endRadius := t.radius(to)
	subdivisions := t.subdivisions(length, geometry.Angle(startDirection, endDirection))
	previous := start

	for i := 1; i <= subdivisions; i++ {
		f := float64(i) / float64(subdivisions)
		position := curve.Sample(f)
		direction := curve.Direction(f)
		distance := from.Distance()*(1-f) + to.Distance()*f

		if i == subdivisions && to.IsLeaf() {
			t.cap(previous, position, direction, distance)
			return ring{}, frame
		}

		frame = frame.Orient(direction)
		radius := startRadius*(1-f) + endRadius*f
		next := t.ring(position, frame, radius, t.steps(radius, previous.steps), distance)

		t.stitch(previous, next)
		previous = next
	}

	return previous, frame
}

// radius returns the meshing radius of a node, derived from the amount of
// branches it carries.
func (t *tubeBuilder) radius(n *network.Node) float64 {
	return math.Pow(n.Weight(), t.config.RadiusPower)*t.config.RadiusScale + t.config.RadiusMinimum
}

// steps returns the number of vertices on a ring of the given radius. A
// positive previous step count limits the change to the ring jump.
func (t *tubeBuilder) steps(radius float64, previous int) int {
	c := t.config
	steps := int(math.Ceil(math.Pow(math.Pi*2*radius/c.RingStepLength, c.RingPower)))

	if previous > 0 {
		steps = min(max(steps, previous-c.RingJump), previous+c.RingJump)
	}
	return max(steps, c.RingMinSteps)
}

func (t *tubeBuilder) subdivisions(length, angle float64) int {
	n := int(math.Ceil(length / t.config.LengthStep))

	if !math.IsNaN(angle) {
		n = max(n, int(math.Ceil(angle/t.config.AngleStep)))
	}
	return max(n, 1)
}

func (t *tubeBuilder) ring(center r3.Vec, frame geometry.Frame, radius float64, steps int, distance float64) ring {
	r := ring{
		start: uint32(len(t.tubes.Vertices)),
		steps: steps,
	}

	for i := 0; i < steps; i++ {
		angle := math.Pi * 2 * float64(i) / float64(steps)
		radial := frame.Radial(math.Cos(angle), math.Sin(angle))

		t.tubes.Vertices = append(t.tubes.Vertices, Vertex{
			Position: r3.Add(center, r3.Scale(radius, radial)),
			Radial:   radial,
			Distance: distance,
		})
	}
	return r
}

// stitch connects two rings with one triangle per vertex of each ring,
// walking both by angular fraction.
func (t *tubeBuilder) stitch(a, b ring) {
	n, m := a.steps, b.steps

	for i, j := 0, 0; i < n || j < m; {
		if j == m || (i < n && (i+1)*m <= (j+1)*n) {
			t.tubes.Indices = append(t.tubes.Indices, a.at(i), a.at(i+1), b.at(j))
			i++
		} else {
			t.tubes.Indices = append(t.tubes.Indices, a.at(i), b.at(j+1), b.at(j))
			j++
		}
	}
}

// cap closes a ring with a fan around an apex vertex.
func (t *tubeBuilder) cap(r ring, apex, direction r3.Vec, distance float64) {
	index := uint32(len(t.tubes.Vertices))
	t.tubes.Vertices = append(t.tubes.Vertices, Vertex{
		Position: apex,
		Radial:   direction,
		Distance: distance,
	})

	for i := 0; i < r.steps; i++ {
		t.tubes.Indices = append(t.tubes.Indices, r.at(i), r.at(i+1), index)
	}
}
