package collision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Volume is a closed region of space used either as growth bounds or as an
// obstacle.
type Volume interface {
	Contains(p r3.Vec) bool
}

// Box is an axis aligned box standing on Base, extending Radius on both sides
// of it along X and Z and Height upwards. Its faces are part of the box, so a
// box of radius 0 still contains the vertical line through Base.
type Box struct {
	Base   r3.Vec
	Radius float64
	Height float64
}

func (b Box) Contains(p r3.Vec) bool {
	y := p.Y - b.Base.Y
	return y >= 0 && y <= b.Height &&
		math.Abs(p.X-b.Base.X) <= b.Radius &&
		math.Abs(p.Z-b.Base.Z) <= b.Radius
}

// Ellipsoid is a vertical ellipsoid standing on Base with a horizontal radius
// and a total height.
type Ellipsoid struct {
	Base   r3.Vec
	Radius float64
	Height float64
}

func (e Ellipsoid) Contains(p r3.Vec) bool {
	if e.Radius <= 0 || e.Height <= 0 {
		return false
	}

	half := e.Height * .5
	dx := (p.X - e.Base.X) / e.Radius
	dy := (p.Y - e.Base.Y - half) / half
	dz := (p.Z - e.Base.Z) / e.Radius
	return dx*dx+dy*dy+dz*dz <= 1
}

// Cylinder is a vertical cylinder standing on Base.
type Cylinder struct {
	Base   r3.Vec
	Radius float64
	Height float64
}

func (c Cylinder) Contains(p r3.Vec) bool {
	y := p.Y - c.Base.Y
	if y < 0 || y > c.Height {
		return false
	}

	dx := p.X - c.Base.X
	dz := p.Z - c.Base.Z
	return dx*dx+dz*dz <= c.Radius*c.Radius
}

// Sphere is a ball around Center.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

func (s Sphere) Contains(p r3.Vec) bool {
	return r3.Norm2(r3.Sub(p, s.Center)) <= s.Radius*s.Radius
}
