package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Bezier is a cubic Bezier curve.
type Bezier struct {
	A r3.Vec
	B r3.Vec
	C r3.Vec
	D r3.Vec
}

// Sample returns the point on the curve at t in the range [0, 1].
func (c Bezier) Sample(t float64) r3.Vec {
	i := 1 - t
	a := i * i * i
	b := 3 * t * i * i
	d := t * t * t
	cc := 3 * t * t * i

	return r3.Vec{
		X: a*c.A.X + b*c.B.X + cc*c.C.X + d*c.D.X,
		Y: a*c.A.Y + b*c.B.Y + cc*c.C.Y + d*c.D.Y,
		Z: a*c.A.Z + b*c.B.Z + cc*c.C.Z + d*c.D.Z,
	}
}

// Direction returns the normalized tangent of the curve at t. Degenerate
// control polygons fall back to the chord direction.
func (c Bezier) Direction(t float64) r3.Vec {
	i := 1 - t
	derivative := r3.Add(
		r3.Add(
			r3.Scale(3*i*i, r3.Sub(c.B, c.A)),
			r3.Scale(6*i*t, r3.Sub(c.C, c.B))),
		r3.Scale(3*t*t, r3.Sub(c.D, c.C)))

	if r3.Norm2(derivative) < 1e-18 {
		return Normalized(r3.Sub(c.D, c.A))
	}
	return Normalized(derivative)
}
