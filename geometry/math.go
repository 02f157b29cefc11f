package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// Up is the global growth axis.
	Up = r3.Vec{X: 0, Y: 1, Z: 0}

	// UpAlt is used to build a tangent for vectors parallel to Up.
	UpAlt = Normalized(r3.Vec{X: .1, Y: 1, Z: 0})
)

func EqualWithEpsilon(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

func VectorsEqualWithEpsilon(a, b r3.Vec, epsilon float64) bool {
	return EqualWithEpsilon(a.X, b.X, epsilon) &&
		EqualWithEpsilon(a.Y, b.Y, epsilon) &&
		EqualWithEpsilon(a.Z, b.Z, epsilon)
}

// Angle returns the angle between two unit vectors. The result is NaN when
// rounding pushes their dot product outside [-1, 1].
func Angle(a, b r3.Vec) float64 {
	return math.Acos(r3.Dot(a, b))
}

// Normalized returns the unit vector of v, or v itself when it has no length.
// Growth positions must not depend on math.Hypot, whose implementation is
// architecture specific.
func Normalized(v r3.Vec) r3.Vec {
	length := math.Sqrt(r3.Norm2(v))
	if length == 0 {
		return v
	}
	return r3.Scale(1/length, v)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Tangent returns a unit vector perpendicular to the unit vector v.
func Tangent(v r3.Vec) r3.Vec {
	if v == Up {
		return Normalized(r3.Cross(v, UpAlt))
	}

	t := r3.Vec{X: -v.Y, Y: v.X, Z: 0}
	if r3.Norm2(t) < 1e-12 {
		// v is parallel to the Z axis.
		return Normalized(r3.Cross(v, Up))
	}
	return Normalized(t)
}

// ExpandBox grows b so that it contains p.
func ExpandBox(b *r3.Box, p r3.Vec) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}
