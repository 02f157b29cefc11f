package mesh

import (
	"context"

	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
)

// WireframeStride is the number of floats per vertex of a wireframe layer:
// position and distance from the root.
const WireframeStride = 4

// Wireframe models networks as one line per branch.
type Wireframe struct{}

func (w Wireframe) Name() string {
	return "wireframe"
}

func (w Wireframe) Model(ctx context.Context, n *network.Network) (modules.Layer, error) {
	if err := ctx.Err(); err != nil {
		return modules.Layer{}, err
	}

	l := modules.Layer{
		Name:     w.Name(),
		Mode:     modules.Lines,
		Stride:   WireframeStride,
		Vertices: make([]float32, 0, n.NodeCount()*WireframeStride),
	}
	indices := make(map[*network.Node]uint32, n.NodeCount())

	n.Walk(func(node *network.Node) bool {
		index := uint32(len(indices))
		indices[node] = index

		p := node.Position()
		l.Vertices = append(l.Vertices,
			float32(p.X), float32(p.Y), float32(p.Z),
			float32(node.Distance()))

		if parent := node.Parent(); parent != nil {
			l.Indices = append(l.Indices, indices[parent], index)
		}
		return true
	})

	return l, nil
}
