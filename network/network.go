package network

import (
	"context"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/yggdrasil/collision"
	"github.com/aukilabs/yggdrasil/geometry"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/random"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxNodes is the number of nodes above which growth is aborted and the
// network marked as invalid.
const MaxNodes = 64000

// Layer describes a completed growth layer.
type Layer struct {
	Index     int `json:"index"`
	Tips      int `json:"tips"`
	Grown     int `json:"grown"`
	NodeCount int `json:"nodeCount"`
}

// Observer is called after each completed growth layer.
type Observer func(Layer)

// Option configures a network.
type Option func(*Network)

// WithObserver sets a function called after each growth layer.
func WithObserver(o Observer) Option {
	return func(n *Network) {
		n.observer = o
	}
}

// WithID sets the identifier used to correlate logs. A random one is used
// otherwise.
func WithID(id string) Option {
	return func(n *Network) {
		n.id = id
	}
}

// WithContext aborts growth once ctx is done. The network is then invalid
// and Err returns the context error.
func WithContext(ctx context.Context) Option {
	return func(n *Network) {
		n.ctx = ctx
	}
}

// Network is a forest of trees grown together in one collision field.
type Network struct {
	id            string
	configuration models.Configuration
	field         *collision.Field
	stream        random.Stream
	roots         []*Node
	valid         bool
	bounds        r3.Box
	nodeCount     int
	layers        int
	attempts      Attempts
	duration      time.Duration
	observer      Observer
	ctx           context.Context
	err           error
}

// New grows a network. Growth runs to completion before New returns. Use
// Valid to know whether the node limit was exceeded, in which case the
// network has no roots.
func New(c models.Configuration, options ...Option) *Network {
	center := r3.Vec{X: collision.Size * .5, Z: collision.Size * .5}

	n := &Network{
		configuration: c,
		field:         collision.NewField(),
		stream:        random.New(c.Seed),
		bounds:        r3.Box{Min: center, Max: center},
		ctx:           context.Background(),
	}
	for _, o := range options {
		o(n)
	}
	if n.id == "" {
		n.id = uuid.NewString()
	}

	start := time.Now()
	n.valid = n.grow(Origins(c.Roots))
	n.duration = time.Since(start)

	for _, r := range n.roots {
		n.attempts.add(r.structure.attempts)
	}
	if !n.valid {
		n.roots = nil
	}

	instrumentGrowth(n)
	logs.WithTag("run_id", n.id).
		WithTag("seed", c.Seed).
		WithTag("valid", n.valid).
		WithTag("node_count", n.nodeCount).
		WithTag("layers", n.layers).
		WithTag("duration", n.duration).
		Debug("network grown")

	return n
}

// Origins returns the root positions of a network with the given number of
// roots: the domain center for one root, a circle around it otherwise.
func Origins(roots int) []r3.Vec {
	if roots <= 1 {
		return []r3.Vec{{X: collision.Size * .5, Z: collision.Size * .5}}
	}

	radius := collision.Size * .25
	origins := make([]r3.Vec, roots)
	for i := range origins {
		angle := math.Pi * 2 * float64(i) / float64(roots)
		origins[i] = r3.Vec{
			X: collision.Size*.5 + math.Cos(angle)*radius,
			Z: collision.Size*.5 + math.Sin(angle)*radius,
		}
	}
	return origins
}

func (n *Network) grow(origins []r3.Vec) bool {
	c := n.configuration
	if err := n.ctx.Err(); err != nil {
		n.err = err
		return false
	}

	for _, origin := range origins {
		n.addVolumes(origin)
	}

	for _, origin := range origins {
		n.roots = append(n.roots, NewRoot(origin, c.RadiusInitial, c.StabilityInitial))
		n.field.Add(origin, c.RadiusInitial)
		geometry.ExpandBox(&n.bounds, origin)
	}

	var tips []*Node
	for _, root := range n.roots {
		tips = append(tips, root.Grow(c, n.field, &n.stream, true)...)
	}
	n.nodeCount = len(n.roots) + len(tips)

	for layer := 0; len(tips) != 0; layer++ {
		if c.ShuffleTips {
			shuffle(tips, &n.stream)
		}

		singleExtension := layer <= c.ExtendThreshold
		var next []*Node

		for _, tip := range tips {
			if err := n.ctx.Err(); err != nil {
				n.err = err
				return false
			}

			grown := tip.Grow(c, n.field, &n.stream, singleExtension)
			geometry.ExpandBox(&n.bounds, tip.position)

			if n.nodeCount += len(grown); n.nodeCount > MaxNodes {
				logs.WithTag("run_id", n.id).
					WithTag("seed", c.Seed).
					WithTag("layer", layer).
					Warn(errors.New("node limit exceeded").
						WithTag("node_count", n.nodeCount).
						WithTag("max_nodes", MaxNodes))
				return false
			}

			next = append(next, grown...)
		}

		n.layers++
		if n.observer != nil {
			n.observer(Layer{
				Index:     layer,
				Tips:      len(tips),
				Grown:     len(next),
				NodeCount: n.nodeCount,
			})
		}
		tips = next
	}

	return true
}

func (n *Network) addVolumes(origin r3.Vec) {
	c := n.configuration

	switch c.BoundsType {
	case models.BoundsEllipsoid:
		n.field.AddVolume(collision.Ellipsoid{
			Base:   origin,
			Radius: c.BoundsRadius,
			Height: c.BoundsHeight,
		})

	case models.BoundsBox:
		n.field.AddVolume(collision.Box{
			Base:   origin,
			Radius: c.BoundsRadius,
			Height: c.BoundsHeight,
		})
	}

	base := r3.Add(origin, r3.Vec{Y: c.ObstacleOffset})

	switch c.ObstacleType {
	case models.ObstacleSphere:
		n.field.SubtractVolume(collision.Sphere{
			Center: base,
			Radius: c.ObstacleRadius,
		})

	case models.ObstacleBox:
		n.field.SubtractVolume(collision.Box{
			Base:   base,
			Radius: c.ObstacleRadius,
			Height: c.ObstacleHeight,
		})

	case models.ObstacleCylinder:
		n.field.SubtractVolume(collision.Cylinder{
			Base:   base,
			Radius: c.ObstacleRadius,
			Height: c.ObstacleHeight,
		})
	}
}

// shuffle permutes nodes in place with a Fisher-Yates shuffle.
func shuffle(nodes []*Node, stream *random.Stream) {
	for i := len(nodes) - 1; i > 0; i-- {
		j := int(stream.Float() * float64(i+1))
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}

// ID returns the identifier used in logs about the network.
func (n *Network) ID() string {
	return n.id
}

func (n *Network) Seed() uint32 {
	return n.configuration.Seed
}

func (n *Network) Configuration() models.Configuration {
	return n.configuration
}

// Valid reports whether growth completed under the node limit.
func (n *Network) Valid() bool {
	return n.valid
}

// Err returns the error that aborted growth, if any. Exceeding the node
// limit is not an error.
func (n *Network) Err() error {
	return n.err
}

// Roots returns the tree roots. It is empty for invalid networks.
func (n *Network) Roots() []*Node {
	return n.roots
}

// NodeCount returns the number of nodes grown, including the ones of an
// aborted growth.
func (n *Network) NodeCount() int {
	return n.nodeCount
}

// Depth returns the largest depth of all trees.
func (n *Network) Depth() float64 {
	var depth float64
	for _, r := range n.roots {
		depth = math.Max(depth, r.depth)
	}
	return depth
}

// Bounds returns the box around every grown position.
func (n *Network) Bounds() r3.Box {
	return n.bounds
}

// Center returns the center of Bounds.
func (n *Network) Center() r3.Vec {
	return n.bounds.Center()
}

// Layers returns the number of completed growth layers.
func (n *Network) Layers() int {
	return n.layers
}

// Attempts returns the outcome counters of every growth attempt.
func (n *Network) Attempts() Attempts {
	return n.attempts
}

// Duration returns how long growth took.
func (n *Network) Duration() time.Duration {
	return n.duration
}

// Field returns the collision field the network grew in.
func (n *Network) Field() *collision.Field {
	return n.field
}

// Walk calls fn for every node, depth first, parents before children. It
// stops when fn returns false.
func (n *Network) Walk(fn func(*Node) bool) {
	for _, r := range n.roots {
		if !walk(r, fn) {
			return
		}
	}
}

func walk(root *Node, fn func(*Node) bool) bool {
	stack := []*Node{root}

	for len(stack) != 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(node) {
			return false
		}
		for i := len(node.children) - 1; i >= 0; i-- {
			stack = append(stack, node.children[i])
		}
	}

	return true
}
