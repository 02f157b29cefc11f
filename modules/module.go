package modules

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/yggdrasil/network"
)

// Mode describes how the vertices of a layer are assembled.
type Mode int

const (
	// Triangles layers are indexed triangle lists.
	Triangles Mode = iota

	// Lines layers are indexed line lists.
	Lines

	// Instances layers hold one vertex per instance of their shape.
	Instances
)

func (m Mode) String() string {
	switch m {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	case Instances:
		return "instances"
	default:
		return "unknown"
	}
}

// Layer is a flat, render ready geometry buffer produced by a module.
type Layer struct {
	Name string `json:"name"`
	Mode Mode   `json:"mode"`

	// The number of floats per vertex.
	Stride   int       `json:"stride"`
	Vertices []float32 `json:"vertices"`
	Indices  []uint32  `json:"indices,omitempty"`

	// The unit shape drawn for every vertex of an Instances layer.
	Shape        []float32 `json:"shape,omitempty"`
	ShapeIndices []uint32  `json:"shapeIndices,omitempty"`
}

// VertexCount returns the number of vertices in the layer.
func (l Layer) VertexCount() int {
	if l.Stride == 0 {
		return 0
	}
	return len(l.Vertices) / l.Stride
}

// Module is the interface that describes a modeller that turns a grown
// network into a geometry layer.
type Module interface {
	// Returns the module name. It is also the name of the produced layer.
	Name() string

	// Models the given network. Invalid networks have no roots and produce
	// empty layers.
	Model(context.Context, *network.Network) (Layer, error)
}

// Model runs the given modules in order and returns their layers.
func Model(ctx context.Context, n *network.Network, modules ...Module) ([]Layer, error) {
	layers := make([]Layer, 0, len(modules))

	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l, err := m.Model(ctx, n)
		if err != nil {
			return nil, errors.New("modelling layer failed").
				WithTag("module", m.Name()).
				WithTag("run_id", n.ID()).
				Wrap(err)
		}
		layers = append(layers, l)
	}

	return layers, nil
}
