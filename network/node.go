package network

import (
	"math"

	"github.com/aukilabs/yggdrasil/geometry"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/random"
	"gonum.org/v1/gonum/spatial/r3"
)

// Field is the collision field nodes grow in.
type Field interface {
	FitsExcluding(center r3.Vec, radius float64, exclude r3.Vec) bool
	Add(center r3.Vec, radius float64)
}

// Attempts counts the outcome of growth attempts.
type Attempts struct {
	Accepted  int `json:"accepted"`
	Angle     int `json:"angle"`
	Stability int `json:"stability"`
	Collision int `json:"collision"`
}

func (a Attempts) Total() int {
	return a.Accepted + a.Angle + a.Stability + a.Collision
}

func (a *Attempts) add(b Attempts) {
	a.Accepted += b.Accepted
	a.Angle += b.Angle
	a.Stability += b.Stability
	a.Collision += b.Collision
}

// Structure is the state shared by every node of one tree. It keeps a running
// average of the unit offsets of accepted nodes from the tree origin, seeded
// with a number of up vectors.
type Structure struct {
	origin   r3.Vec
	sum      r3.Vec
	count    float64
	attempts Attempts
}

func newStructure(origin r3.Vec, initial int) *Structure {
	return &Structure{
		origin: origin,
		sum:    r3.Scale(float64(initial), geometry.Up),
		count:  float64(initial),
	}
}

// Origin returns the position of the tree root.
func (s *Structure) Origin() r3.Vec {
	return s.origin
}

// Attempts returns the growth attempt counters of the tree.
func (s *Structure) Attempts() Attempts {
	return s.attempts
}

// stable reports whether the average would stay aligned with up after
// including offset.
func (s *Structure) stable(offset r3.Vec, threshold float64) bool {
	average := r3.Scale(1/(s.count+1), r3.Add(s.sum, offset))
	length := math.Sqrt(r3.Norm2(average))
	if length == 0 {
		return true
	}
	return average.Y/length >= threshold
}

func (s *Structure) include(offset r3.Vec) {
	s.sum = r3.Add(s.sum, offset)
	s.count++
}

// Node is a vertex of a tree. Its position and radius never change once
// created, children are only ever appended.
type Node struct {
	position  r3.Vec
	radius    float64
	parent    *Node
	children  []*Node
	distance  float64
	depth     float64
	weight    float64
	structure *Structure
	grown     bool
}

// NewRoot creates the first node of a tree.
func NewRoot(position r3.Vec, radius float64, stabilityInitial int) *Node {
	return &Node{
		position:  position,
		radius:    radius,
		structure: newStructure(position, stabilityInitial),
	}
}

func (n *Node) Position() r3.Vec {
	return n.position
}

func (n *Node) Radius() float64 {
	return n.radius
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

// Distance returns the length of the path from the root to the node.
func (n *Node) Distance() float64 {
	return n.distance
}

// ParentDistance returns the distance of the parent node, or 0 for a root.
func (n *Node) ParentDistance() float64 {
	if n.parent == nil {
		return 0
	}
	return n.parent.distance
}

// Depth returns the length of the longest path from the node to one of its
// descendants.
func (n *Node) Depth() float64 {
	return n.depth
}

// Weight returns the sum of the path lengths from the node to each of its
// descendants.
func (n *Node) Weight() float64 {
	return n.weight
}

func (n *Node) Structure() *Structure {
	return n.structure
}

func (n *Node) IsRoot() bool {
	return n.parent == nil
}

func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// Direction returns the unit vector from the parent to the node, or up for a
// root.
func (n *Node) Direction() r3.Vec {
	if n.parent == nil {
		return geometry.Up
	}
	return geometry.Normalized(r3.Sub(n.position, n.parent.position))
}

// Grow samples candidate children around the node and returns the accepted
// ones. A node grows at most once, later calls return nothing.
func (n *Node) Grow(c models.Configuration, field Field, stream *random.Stream, singleExtension bool) []*Node {
	if n.grown {
		return nil
	}
	n.grown = true

	radius := n.radius * c.RadiusDecay
	if radius < c.RadiusThreshold {
		return nil
	}

	frame := geometry.NewFrame(n.Direction())
	stride := n.radius + radius
	collisionRadius := radius * c.CollisionRadius
	s := n.structure

	var grown []*Node
	for i := 0; i < c.ExtendTries; i++ {
		pitch := math.Sqrt(stream.Float()) * c.ExtendAngle
		radial := stream.Float() * math.Pi * 2
		sinPitch := math.Sin(pitch)

		direction := frame.Apply(r3.Vec{
			X: math.Cos(pitch),
			Y: math.Sin(radial) * sinPitch,
			Z: math.Cos(radial) * sinPitch,
		})

		// NaN angles come from directions exactly along up and pass.
		if geometry.Angle(direction, geometry.Up) > c.AngleThreshold {
			s.attempts.Angle++
			continue
		}

		position := r3.Add(r3.Scale(stride, direction), n.position)
		offset := geometry.Normalized(r3.Sub(position, s.origin))
		if !s.stable(offset, c.StabilityThreshold) {
			s.attempts.Stability++
			continue
		}

		if !field.FitsExcluding(position, collisionRadius, n.position) {
			s.attempts.Collision++
			continue
		}

		field.Add(position, collisionRadius)
		s.include(offset)
		s.attempts.Accepted++

		child := &Node{
			position:  position,
			radius:    radius,
			parent:    n,
			distance:  n.distance + stride,
			structure: s,
		}
		n.children = append(n.children, child)
		grown = append(grown, child)
		n.propagate(stride)

		if singleExtension {
			break
		}
	}

	return grown
}

// propagate raises depth and adds weight along the path to the root for a
// new child at the given distance.
func (n *Node) propagate(length float64) {
	depth, weight := length, length

	for node := n; node != nil; node = node.parent {
		node.depth = math.Max(node.depth, depth)
		node.weight += weight

		if p := node.parent; p != nil {
			depth = depth + node.radius + p.radius
			weight = weight + node.radius + p.radius
		}
	}
}
