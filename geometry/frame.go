package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is an orthonormal basis whose primary axis points along a direction.
type Frame struct {
	Forward   r3.Vec
	Tangent   r3.Vec
	Bitangent r3.Vec
}

// NewFrame builds a frame around a unit direction.
func NewFrame(direction r3.Vec) Frame {
	tangent := Tangent(direction)

	return Frame{
		Forward:   direction,
		Tangent:   tangent,
		Bitangent: r3.Cross(direction, tangent),
	}
}

// Apply maps a vector expressed in frame coordinates (forward, tangent,
// bitangent) to world space.
func (f Frame) Apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: f.Forward.X*v.X + f.Tangent.X*v.Y + f.Bitangent.X*v.Z,
		Y: f.Forward.Y*v.X + f.Tangent.Y*v.Y + f.Bitangent.Y*v.Z,
		Z: f.Forward.Z*v.X + f.Tangent.Z*v.Y + f.Bitangent.Z*v.Z,
	}
}

// Orient returns a frame pointing along direction that keeps the twist of f,
// so rings built from consecutive frames stay aligned.
func (f Frame) Orient(direction r3.Vec) Frame {
	tangent := r3.Cross(f.Bitangent, direction)
	if r3.Norm2(tangent) < 1e-12 {
		return NewFrame(direction)
	}
	tangent = Normalized(tangent)

	return Frame{
		Forward:   direction,
		Tangent:   tangent,
		Bitangent: r3.Cross(direction, tangent),
	}
}

// Radial returns the unit vector at the given angle around the forward axis.
func (f Frame) Radial(cos, sin float64) r3.Vec {
	return r3.Add(r3.Scale(cos, f.Tangent), r3.Scale(sin, f.Bitangent))
}
