package mesh

import (
	"context"

	"github.com/aukilabs/yggdrasil/geometry"
	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
)

// SphereStride is the number of floats per instance of a spheres layer:
// position and radius.
const SphereStride = 4

// Spheres models networks as one marker sphere per node, scaled to the node
// radius.
type Spheres struct {
	subdivisions int
}

// NewSpheres creates a spheres modeller whose marker is an icosphere with the
// given number of subdivisions.
func NewSpheres(subdivisions int) Spheres {
	return Spheres{subdivisions: subdivisions}
}

func (s Spheres) Name() string {
	return "spheres"
}

func (s Spheres) Model(ctx context.Context, n *network.Network) (modules.Layer, error) {
	if err := ctx.Err(); err != nil {
		return modules.Layer{}, err
	}

	marker := geometry.NewIcosphere(s.subdivisions)

	l := modules.Layer{
		Name:         s.Name(),
		Mode:         modules.Instances,
		Stride:       SphereStride,
		Vertices:     make([]float32, 0, n.NodeCount()*SphereStride),
		Shape:        make([]float32, 0, len(marker.Points)*3),
		ShapeIndices: marker.Indices,
	}

	for _, p := range marker.Points {
		l.Shape = append(l.Shape, float32(p.X), float32(p.Y), float32(p.Z))
	}

	n.Walk(func(node *network.Node) bool {
		p := node.Position()
		l.Vertices = append(l.Vertices,
			float32(p.X), float32(p.Y), float32(p.Z),
			float32(node.Radius()))
		return true
	})

	return l, nil
}
