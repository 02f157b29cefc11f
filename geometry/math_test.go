package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestEqualWithEpsilon(t *testing.T) {
	require.True(t, EqualWithEpsilon(0.1, 0.2, 0.11))
	require.False(t, EqualWithEpsilon(0.1, 0.3, 0.11))
}

func TestAngle(t *testing.T) {
	require.InDelta(t, math.Pi/2, Angle(Up, r3.Vec{X: 1}), 1e-12)
	require.InDelta(t, 0, Angle(Up, Up), 1e-12)
	require.True(t, math.IsNaN(Angle(Up, r3.Vec{Y: 1 + 1e-9})))
}

func TestTangent(t *testing.T) {
	directions := []r3.Vec{
		Up,
		{Y: -1},
		{X: 1},
		{Z: 1},
		{Z: -1},
		r3.Unit(r3.Vec{X: 1, Y: 2, Z: 3}),
	}

	for _, d := range directions {
		tangent := Tangent(d)
		require.InDelta(t, 1, r3.Norm(tangent), 1e-12)
		require.InDelta(t, 0, r3.Dot(tangent, d), 1e-12)
	}
}

func TestFrame(t *testing.T) {
	t.Run("frame is orthonormal", func(t *testing.T) {
		f := NewFrame(r3.Unit(r3.Vec{X: .3, Y: 1, Z: -.2}))

		require.InDelta(t, 0, r3.Dot(f.Forward, f.Tangent), 1e-12)
		require.InDelta(t, 0, r3.Dot(f.Forward, f.Bitangent), 1e-12)
		require.InDelta(t, 0, r3.Dot(f.Tangent, f.Bitangent), 1e-12)
		require.InDelta(t, 1, r3.Norm(f.Bitangent), 1e-12)
	})

	t.Run("apply maps the first axis to forward", func(t *testing.T) {
		f := NewFrame(Up)

		require.Equal(t, Up, f.Apply(r3.Vec{X: 1}))
	})

	t.Run("orient keeps the frame when the direction is unchanged", func(t *testing.T) {
		d := r3.Unit(r3.Vec{X: 1, Y: 1})
		f := NewFrame(d)
		o := f.Orient(d)

		require.True(t, VectorsEqualWithEpsilon(f.Tangent, o.Tangent, 1e-12))
		require.True(t, VectorsEqualWithEpsilon(f.Bitangent, o.Bitangent, 1e-12))
	})

	t.Run("orient follows a new direction", func(t *testing.T) {
		f := NewFrame(Up)
		d := r3.Unit(r3.Vec{X: .2, Y: 1})
		o := f.Orient(d)

		require.Equal(t, d, o.Forward)
		require.InDelta(t, 0, r3.Dot(o.Forward, o.Tangent), 1e-12)
		require.InDelta(t, 0, r3.Dot(o.Forward, o.Bitangent), 1e-12)
		require.Greater(t, r3.Dot(f.Bitangent, o.Bitangent), .9)
	})
}

func TestBezier(t *testing.T) {
	c := Bezier{
		A: r3.Vec{},
		B: r3.Vec{Y: 1},
		C: r3.Vec{X: 1, Y: 1},
		D: r3.Vec{X: 1},
	}

	require.Equal(t, c.A, c.Sample(0))
	require.Equal(t, c.D, c.Sample(1))
	require.True(t, VectorsEqualWithEpsilon(r3.Vec{X: .5, Y: .75}, c.Sample(.5), 1e-12))
	require.True(t, VectorsEqualWithEpsilon(Up, c.Direction(0), 1e-12))
	require.True(t, VectorsEqualWithEpsilon(r3.Vec{Y: -1}, c.Direction(1), 1e-12))

	line := Bezier{A: r3.Vec{}, B: r3.Vec{}, C: r3.Vec{}, D: r3.Vec{Z: 2}}
	require.True(t, VectorsEqualWithEpsilon(r3.Vec{Z: 1}, line.Direction(0), 1e-12))
}

func TestIcosphere(t *testing.T) {
	base := NewIcosphere(0)
	require.Len(t, base.Points, 12)
	require.Len(t, base.Indices, 60)

	sphere := NewIcosphere(2)
	require.Len(t, sphere.Indices, 60*16)
	require.Len(t, sphere.Points, 162)

	for _, p := range sphere.Points {
		require.InDelta(t, 1, r3.Norm(p), 1e-12)
	}
	for _, i := range sphere.Indices {
		require.Less(t, int(i), len(sphere.Points))
	}

	// Each call owns its data.
	other := NewIcosphere(2)
	other.Points[0] = r3.Vec{}
	require.NotEqual(t, other.Points[0], sphere.Points[0])
}

func TestExpandBox(t *testing.T) {
	b := r3.Box{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}
	ExpandBox(&b, r3.Vec{X: 0, Y: 2, Z: 1})

	require.Equal(t, r3.Vec{X: 0, Y: 1, Z: 1}, b.Min)
	require.Equal(t, r3.Vec{X: 1, Y: 2, Z: 1}, b.Max)
	require.Equal(t, r3.Vec{X: .5, Y: 1.5, Z: 1}, b.Center())
}
