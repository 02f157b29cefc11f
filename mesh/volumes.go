package mesh

import (
	"context"
	"math"

	"github.com/aukilabs/yggdrasil/collision"
	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
	"gonum.org/v1/gonum/spatial/r3"
)

// VolumeStride is the number of floats per vertex of a volumes layer:
// position, normal and kind.
const VolumeStride = 7

// Volume kinds written as the last float of each vertex.
const (
	VolumeBounds   = 0
	VolumeObstacle = 1
)

// The approximate length of a volume mesh segment.
const volumePrecision = .1

// Volumes models the bounds and obstacles a network was grown in. Volumes
// without area, like a box of radius 0, produce no geometry.
type Volumes struct{}

func (v Volumes) Name() string {
	return "volumes"
}

func (v Volumes) Model(ctx context.Context, n *network.Network) (modules.Layer, error) {
	if err := ctx.Err(); err != nil {
		return modules.Layer{}, err
	}

	var b volumeBuilder
	for _, volume := range n.Field().Bounds() {
		b.volume(volume, VolumeBounds)
	}
	for _, volume := range n.Field().Obstacles() {
		b.volume(volume, VolumeObstacle)
	}

	return modules.Layer{
		Name:     v.Name(),
		Mode:     modules.Triangles,
		Stride:   VolumeStride,
		Vertices: b.vertices,
		Indices:  b.indices,
	}, nil
}

type volumeBuilder struct {
	kind     float32
	vertices []float32
	indices  []uint32
}

func (b *volumeBuilder) volume(v collision.Volume, kind float32) {
	b.kind = kind

	switch v := v.(type) {
	case collision.Ellipsoid:
		half := v.Height * .5
		b.oval(r3.Add(v.Base, r3.Vec{Y: half}), v.Radius, half)

	case collision.Sphere:
		b.oval(v.Center, v.Radius, v.Radius)

	case collision.Box:
		b.box(v)

	case collision.Cylinder:
		b.cylinder(v)
	}
}

// oval emits a vertical ellipsoid as a top pole, latitude rings and a bottom
// pole.
func (b *volumeBuilder) oval(center r3.Vec, horizontal, vertical float64) {
	if !(horizontal > 0) || !(vertical > 0) {
		return
	}

	latitudes := divisions(math.Pi*horizontal, 3)
	radial := divisions(2*math.Pi*horizontal, 4)
	rings := latitudes - 2

	top := b.vertex(r3.Add(center, r3.Vec{Y: vertical}), r3.Vec{Y: 1})
	for y := 1; y <= rings; y++ {
		pitch := math.Pi * float64(y) / float64(latitudes-1)

		for r := 0; r < radial; r++ {
			angle := 2 * math.Pi * float64(r) / float64(radial)
			offset := r3.Vec{
				X: math.Cos(angle) * math.Sin(pitch) * horizontal,
				Y: math.Cos(pitch) * vertical,
				Z: math.Sin(angle) * math.Sin(pitch) * horizontal,
			}
			normal := r3.Unit(r3.Vec{
				X: offset.X / (horizontal * horizontal),
				Y: offset.Y / (vertical * vertical),
				Z: offset.Z / (horizontal * horizontal),
			})
			b.vertex(r3.Add(center, offset), normal)
		}
	}
	bottom := b.vertex(r3.Add(center, r3.Vec{Y: -vertical}), r3.Vec{Y: -1})

	ring := func(y, r int) uint32 {
		return top + 1 + uint32(y*radial+r%radial)
	}

	for r := 0; r < radial; r++ {
		b.triangle(top, ring(0, r), ring(0, r+1))

		for y := 0; y < rings-1; y++ {
			b.triangle(ring(y, r), ring(y+1, r), ring(y+1, r+1))
			b.triangle(ring(y+1, r+1), ring(y, r+1), ring(y, r))
		}

		b.triangle(ring(rings-1, r+1), ring(rings-1, r), bottom)
	}
}

func (b *volumeBuilder) box(v collision.Box) {
	if !(v.Radius > 0) || !(v.Height > 0) {
		return
	}

	lo := r3.Vec{X: v.Base.X - v.Radius, Y: v.Base.Y, Z: v.Base.Z - v.Radius}
	hi := r3.Vec{X: v.Base.X + v.Radius, Y: v.Base.Y + v.Height, Z: v.Base.Z + v.Radius}
	corner := func(x, y, z int) r3.Vec {
		c := lo
		if x == 1 {
			c.X = hi.X
		}
		if y == 1 {
			c.Y = hi.Y
		}
		if z == 1 {
			c.Z = hi.Z
		}
		return c
	}

	b.quad(r3.Vec{Y: 1}, corner(0, 1, 0), corner(0, 1, 1), corner(1, 1, 1), corner(1, 1, 0))
	b.quad(r3.Vec{Y: -1}, corner(0, 0, 0), corner(1, 0, 0), corner(1, 0, 1), corner(0, 0, 1))
	b.quad(r3.Vec{X: 1}, corner(1, 0, 0), corner(1, 1, 0), corner(1, 1, 1), corner(1, 0, 1))
	b.quad(r3.Vec{X: -1}, corner(0, 0, 0), corner(0, 0, 1), corner(0, 1, 1), corner(0, 1, 0))
	b.quad(r3.Vec{Z: 1}, corner(0, 0, 1), corner(1, 0, 1), corner(1, 1, 1), corner(0, 1, 1))
	b.quad(r3.Vec{Z: -1}, corner(0, 0, 0), corner(0, 1, 0), corner(1, 1, 0), corner(1, 0, 0))
}

// cylinder emits the side of a vertical cylinder and its two caps. Caps
// have their own vertices so that they get flat normals.
func (b *volumeBuilder) cylinder(v collision.Cylinder) {
	if !(v.Radius > 0) || !(v.Height > 0) {
		return
	}

	radial := divisions(2*math.Pi*v.Radius, 4)
	up := r3.Vec{Y: v.Height}

	side := uint32(len(b.vertices) / VolumeStride)
	for r := 0; r < radial; r++ {
		angle := 2 * math.Pi * float64(r) / float64(radial)
		normal := r3.Vec{X: math.Cos(angle), Z: math.Sin(angle)}
		bottom := r3.Add(v.Base, r3.Scale(v.Radius, normal))

		b.vertex(bottom, normal)
		b.vertex(r3.Add(bottom, up), normal)
	}
	for r := 0; r < radial; r++ {
		b0 := side + uint32(2*r)
		b1 := side + uint32(2*((r+1)%radial))
		b.triangle(b0, b0+1, b1+1)
		b.triangle(b1+1, b1, b0)
	}

	b.disc(r3.Add(v.Base, up), v.Radius, radial, r3.Vec{Y: 1})
	b.disc(v.Base, v.Radius, radial, r3.Vec{Y: -1})
}

func (b *volumeBuilder) disc(center r3.Vec, radius float64, radial int, normal r3.Vec) {
	c := b.vertex(center, normal)
	for r := 0; r < radial; r++ {
		angle := 2 * math.Pi * float64(r) / float64(radial)
		b.vertex(r3.Add(center, r3.Vec{
			X: math.Cos(angle) * radius,
			Z: math.Sin(angle) * radius,
		}), normal)
	}

	for r := 0; r < radial; r++ {
		b.triangle(c, c+1+uint32(r), c+1+uint32((r+1)%radial))
	}
}

func (b *volumeBuilder) quad(normal, p0, p1, p2, p3 r3.Vec) {
	i := b.vertex(p0, normal)
	b.vertex(p1, normal)
	b.vertex(p2, normal)
	b.vertex(p3, normal)

	b.triangle(i, i+1, i+2)
	b.triangle(i+2, i+3, i)
}

func (b *volumeBuilder) vertex(p, normal r3.Vec) uint32 {
	i := uint32(len(b.vertices) / VolumeStride)
	b.vertices = append(b.vertices,
		float32(p.X), float32(p.Y), float32(p.Z),
		float32(normal.X), float32(normal.Y), float32(normal.Z),
		b.kind)
	return i
}

// triangle appends a triangle wound counterclockwise when seen from the side
// its vertex normals point to.
func (b *volumeBuilder) triangle(i, j, k uint32) {
	pi, pj, pk := b.attribute(i, 0), b.attribute(j, 0), b.attribute(k, 0)
	face := r3.Cross(r3.Sub(pj, pi), r3.Sub(pk, pi))
	normal := r3.Add(r3.Add(b.attribute(i, 3), b.attribute(j, 3)), b.attribute(k, 3))

	if r3.Dot(face, normal) < 0 {
		j, k = k, j
	}
	b.indices = append(b.indices, i, j, k)
}

func (b *volumeBuilder) attribute(i uint32, offset int) r3.Vec {
	v := b.vertices[int(i)*VolumeStride+offset:]
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func divisions(length float64, minimum int) int {
	return max(minimum, int(math.Ceil(length/volumePrecision)))
}
