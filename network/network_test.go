package network

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/aukilabs/yggdrasil/collision"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/random"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// referenceDepth is the length of a path from a root of radius 0.1 down to the
// last radius above 0.015 with a decay of 0.89.
const referenceDepth = 1.4519197964219261

func explodingConfiguration() models.Configuration {
	c := models.DefaultConfiguration()
	c.RadiusInitial = .05
	c.RadiusDecay = .97
	c.RadiusThreshold = .0001
	c.ExtendTries = 40
	c.ExtendAngle = 1.2
	c.ExtendThreshold = -1
	return c
}

func TestNetworkReferenceTree(t *testing.T) {
	n := New(models.DefaultConfiguration())

	require.True(t, n.Valid())
	require.Len(t, n.Roots(), 1)
	require.Equal(t, 757, n.NodeCount())
	require.InDelta(t, referenceDepth, n.Depth(), 1e-9)
	require.Equal(t, 16, n.Layers())
	require.Equal(t, n.NodeCount(), n.Field().Count())
	require.Equal(t, n.NodeCount()-1, n.Attempts().Accepted)
	require.NotEmpty(t, n.ID())
	require.Equal(t, uint32(42), n.Seed())
}

func TestNetworkDeterminism(t *testing.T) {
	configurations := map[string]models.Configuration{
		"default": models.DefaultConfiguration(),
	}

	shuffled := models.DefaultConfiguration()
	shuffled.ShuffleTips = true
	shuffled.Seed = 7
	configurations["shuffled"] = shuffled

	bounded := models.DefaultConfiguration()
	bounded.Roots = 3
	bounded.BoundsType = models.BoundsEllipsoid
	bounded.ObstacleType = models.ObstacleCylinder
	bounded.ObstacleOffset = .5
	configurations["bounded"] = bounded

	for name, c := range configurations {
		t.Run(name, func(t *testing.T) {
			a := New(c)
			b := New(c)

			require.NotEqual(t, a.ID(), b.ID())
			require.Equal(t, a.NodeCount(), b.NodeCount())
			require.Equal(t, a.Depth(), b.Depth())
			require.Equal(t, a.Center(), b.Center())
			require.Equal(t, positions(a), positions(b))
		})
	}
}

func TestNetworkSeedsDiffer(t *testing.T) {
	c := models.DefaultConfiguration()
	a := New(c)

	c.Seed = 43
	b := New(c)

	require.NotEqual(t, positions(a), positions(b))
}

func TestNetworkCollisionInvariant(t *testing.T) {
	c := models.DefaultConfiguration()
	c.Roots = 2
	c.ShuffleTips = true

	n := New(c)
	require.True(t, n.Valid())
	requireSeparated(t, n.Field().Spheres())
}

func TestNetworkRadiusMonotonicity(t *testing.T) {
	c := models.DefaultConfiguration()
	n := New(c)

	n.Walk(func(node *Node) bool {
		for _, child := range node.Children() {
			require.Less(t, child.Radius(), node.Radius())
			require.LessOrEqual(t, child.Radius(), node.Radius()*c.RadiusDecay+1e-12)
			require.Same(t, node, child.Parent())
			require.InDelta(t, node.Distance()+node.Radius()+child.Radius(), child.Distance(), 1e-12)
		}
		return true
	})
}

func TestNetworkAggregates(t *testing.T) {
	n := New(models.DefaultConfiguration())

	n.Walk(func(node *Node) bool {
		var weight float64
		for _, child := range node.Children() {
			edge := node.Radius() + child.Radius()

			require.GreaterOrEqual(t, node.Depth(), child.Depth()+edge-1e-9)
			weight += child.Weight()
		}
		require.GreaterOrEqual(t, node.Weight(), weight)

		if node.IsLeaf() {
			require.Zero(t, node.Depth())
			require.Zero(t, node.Weight())
		}
		return true
	})
}

func TestNetworkNodeLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("grows more than 64000 nodes")
	}

	n := New(explodingConfiguration())

	require.False(t, n.Valid())
	require.Greater(t, n.NodeCount(), MaxNodes)
	require.Empty(t, n.Roots())
	require.Zero(t, n.Depth())

	visited := 0
	n.Walk(func(*Node) bool {
		visited++
		return true
	})
	require.Zero(t, visited)
}

func TestNetworkSingleColumn(t *testing.T) {
	for _, tries := range []int{5, 20} {
		c := models.DefaultConfiguration()
		c.BoundsType = models.BoundsBox
		c.BoundsRadius = 0
		c.BoundsHeight = collision.Size
		c.ExtendTries = tries

		t.Run(fmt.Sprintf("any direction leaves the column with %d tries", tries), func(t *testing.T) {
			n := New(c)
			require.True(t, n.Valid())
			require.Equal(t, 1, n.NodeCount())
			require.True(t, n.Roots()[0].IsLeaf())
		})

		c.ExtendAngle = 0

		t.Run(fmt.Sprintf("straight growth stays in the column with %d tries", tries), func(t *testing.T) {
			n := New(c)
			require.True(t, n.Valid())
			require.Equal(t, 17, n.NodeCount())
			require.InDelta(t, referenceDepth, n.Depth(), 1e-9)

			n.Walk(func(node *Node) bool {
				require.LessOrEqual(t, len(node.Children()), 1)
				require.Equal(t, collision.Size*.5, node.Position().X)
				require.Equal(t, collision.Size*.5, node.Position().Z)
				return true
			})
		})
	}
}

func TestNetworkRootsOnCircle(t *testing.T) {
	c := models.DefaultConfiguration()
	c.Roots = 4

	n := New(c)
	require.True(t, n.Valid())
	require.Len(t, n.Roots(), 4)
	require.Equal(t, 1607, n.NodeCount())

	roots := n.Roots()
	for i, a := range roots {
		require.Zero(t, a.Position().Y)
		require.InDelta(t, collision.Size*.25, r3.Norm(r3.Sub(a.Position(), r3.Vec{X: 1.5, Z: 1.5})), 1e-12)

		for _, b := range roots[i+1:] {
			require.Greater(t, r3.Norm(r3.Sub(a.Position(), b.Position())), 2*c.RadiusInitial)
		}
	}
	requireSeparated(t, n.Field().Spheres())
}

func TestNetworkObstacle(t *testing.T) {
	c := models.DefaultConfiguration()
	c.ObstacleType = models.ObstacleSphere
	c.ObstacleRadius = .3
	c.ObstacleOffset = 1

	n := New(c)
	require.True(t, n.Valid())
	require.Len(t, n.Field().Obstacles(), 1)

	obstacle := collision.Sphere{Center: r3.Vec{X: 1.5, Y: 1, Z: 1.5}, Radius: .3}
	n.Walk(func(node *Node) bool {
		require.False(t, obstacle.Contains(node.Position()))
		return true
	})
}

func TestNetworkDegenerateConfiguration(t *testing.T) {
	c := models.DefaultConfiguration()
	c.RadiusThreshold = c.RadiusInitial

	n := New(c)
	require.True(t, n.Valid())
	require.Equal(t, 1, n.NodeCount())
	require.Zero(t, n.Layers())
	require.Zero(t, n.Depth())
	require.Equal(t, r3.Vec{X: 1.5, Z: 1.5}, n.Center())
}

func TestNetworkObserver(t *testing.T) {
	var layers []Layer
	n := New(models.DefaultConfiguration(), WithObserver(func(l Layer) {
		layers = append(layers, l)
	}), WithID("test"))

	require.Equal(t, "test", n.ID())
	require.Len(t, layers, n.Layers())
	for i, l := range layers {
		require.Equal(t, i, l.Index)
	}
	require.Equal(t, n.NodeCount(), layers[len(layers)-1].NodeCount)
	require.Zero(t, layers[len(layers)-1].Grown)
}

func TestNetworkContext(t *testing.T) {
	t.Run("done before growth", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		n := New(models.DefaultConfiguration(), WithContext(ctx))
		require.ErrorIs(t, n.Err(), context.Canceled)
		require.False(t, n.Valid())
		require.Empty(t, n.Roots())
		require.Zero(t, n.Layers())
	})

	t.Run("done during growth", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		n := New(models.DefaultConfiguration(), WithContext(ctx), WithObserver(func(l Layer) {
			if l.Index == 2 {
				cancel()
			}
		}))
		require.ErrorIs(t, n.Err(), context.Canceled)
		require.False(t, n.Valid())
		require.Empty(t, n.Roots())
		require.Equal(t, 3, n.Layers())
	})

	t.Run("not done", func(t *testing.T) {
		n := New(models.DefaultConfiguration(), WithContext(context.Background()))
		require.NoError(t, n.Err())
		require.True(t, n.Valid())
	})
}

func TestNetworkBounds(t *testing.T) {
	n := New(models.DefaultConfiguration())
	b := n.Bounds()

	n.Walk(func(node *Node) bool {
		require.True(t, b.Contains(node.Position()))
		return true
	})
	require.Equal(t, b.Center(), n.Center())
}

func TestNodeGrowsOnce(t *testing.T) {
	c := models.DefaultConfiguration()
	field := collision.NewField()
	stream := random.New(c.Seed)

	root := NewRoot(r3.Vec{X: 1.5, Z: 1.5}, c.RadiusInitial, c.StabilityInitial)
	field.Add(root.Position(), c.RadiusInitial)

	children := root.Grow(c, field, &stream, false)
	require.NotEmpty(t, children)
	require.Nil(t, root.Grow(c, field, &stream, false))
	require.Len(t, root.Children(), len(children))

	for _, child := range children {
		require.InDelta(t, 1, r3.Norm(child.Direction()), 1e-12)
		require.Same(t, root.Structure(), child.Structure())
	}
	require.Equal(t, r3.Vec{Y: 1}, root.Direction())
	require.Zero(t, root.ParentDistance())
	require.Equal(t, len(children), root.Structure().Attempts().Accepted)
	require.Equal(t, c.ExtendTries, root.Structure().Attempts().Total())
}

func TestNodeAngleThreshold(t *testing.T) {
	c := models.DefaultConfiguration()
	c.AngleThreshold = 0
	c.ExtendAngle = .5

	field := collision.NewField()
	stream := random.New(c.Seed)
	root := NewRoot(r3.Vec{X: 1.5, Z: 1.5}, c.RadiusInitial, c.StabilityInitial)

	require.Empty(t, root.Grow(c, field, &stream, false))
	require.Equal(t, c.ExtendTries, root.Structure().Attempts().Angle)
}

func TestNodeStabilityThreshold(t *testing.T) {
	c := models.DefaultConfiguration()
	c.StabilityInitial = 0
	c.StabilityThreshold = 1
	c.ExtendAngle = .5

	field := collision.NewField()
	stream := random.New(c.Seed)
	root := NewRoot(r3.Vec{X: 1.5, Z: 1.5}, c.RadiusInitial, c.StabilityInitial)

	require.Empty(t, root.Grow(c, field, &stream, false))
	require.Equal(t, c.ExtendTries, root.Structure().Attempts().Stability)
}

func TestShuffle(t *testing.T) {
	nodes := make([]*Node, 32)
	for i := range nodes {
		nodes[i] = &Node{distance: float64(i)}
	}

	stream := random.New(42)
	shuffle(nodes, &stream)

	seen := make(map[float64]bool)
	moved := false
	for i, n := range nodes {
		seen[n.distance] = true
		moved = moved || n.distance != float64(i)
	}
	require.Len(t, seen, 32)
	require.True(t, moved)
}

func TestOrigins(t *testing.T) {
	require.Equal(t, []r3.Vec{{X: 1.5, Z: 1.5}}, Origins(1))

	origins := Origins(3)
	require.Len(t, origins, 3)
	require.InDelta(t, 2.25, origins[0].X, 1e-12)
	require.InDelta(t, 1.5, origins[0].Z, 1e-12)
}

func positions(n *Network) []r3.Vec {
	var p []r3.Vec
	n.Walk(func(node *Node) bool {
		p = append(p, node.Position())
		return true
	})
	return p
}

func requireSeparated(t *testing.T, spheres []collision.Sphere) {
	t.Helper()

	for i, a := range spheres {
		for _, b := range spheres[i+1:] {
			distance := math.Sqrt(r3.Norm2(r3.Sub(a.Center, b.Center)))
			require.GreaterOrEqual(t, distance, a.Radius+b.Radius-collision.Epsilon)
		}
	}
}
