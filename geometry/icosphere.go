package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Primitive is an indexed triangle mesh of unit size.
type Primitive struct {
	Points  []r3.Vec
	Indices []uint32
}

// NewIcosphere returns a unit sphere made by subdividing an icosahedron. Each
// call returns freshly allocated data owned by the caller.
func NewIcosphere(subdivisions int) Primitive {
	w := (1 + math.Sqrt(5)) * .5
	h := 1 / math.Sqrt(1+w*w)
	w *= h

	p := Primitive{
		Points: []r3.Vec{
			{X: -h, Y: w}, {X: h, Y: w}, {X: -h, Y: -w}, {X: h, Y: -w},
			{Y: -h, Z: w}, {Y: h, Z: w}, {Y: -h, Z: -w}, {Y: h, Z: -w},
			{X: w, Z: -h}, {X: w, Z: h}, {X: -w, Z: -h}, {X: -w, Z: h},
		},
		Indices: []uint32{
			0, 5, 11, 0, 1, 5, 0, 7, 1, 0, 10, 7, 0, 11, 10,
			1, 9, 5, 5, 4, 11, 11, 2, 10, 10, 6, 7, 7, 8, 1,
			3, 4, 9, 3, 2, 4, 3, 6, 2, 3, 8, 6, 3, 9, 8,
			4, 5, 9, 2, 11, 4, 6, 10, 2, 8, 7, 6, 9, 1, 8,
		},
	}

	for i := 0; i < subdivisions; i++ {
		p.subdivide()
	}
	return p
}

func (p *Primitive) subdivide() {
	midpoints := make(map[[2]uint32]uint32)
	midpoint := func(a, b uint32) uint32 {
		key := [2]uint32{min(a, b), max(a, b)}
		if i, ok := midpoints[key]; ok {
			return i
		}

		i := uint32(len(p.Points))
		p.Points = append(p.Points, r3.Unit(r3.Add(p.Points[a], p.Points[b])))
		midpoints[key] = i
		return i
	}

	source := p.Indices
	p.Indices = make([]uint32, 0, len(source)*4)

	for i := 0; i < len(source); i += 3 {
		a, b, c := source[i], source[i+1], source[i+2]
		ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)

		p.Indices = append(p.Indices,
			a, ab, ca,
			b, bc, ab,
			c, ca, bc,
			ab, bc, ca)
	}
}
