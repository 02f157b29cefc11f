package random

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamFloat(t *testing.T) {
	t.Run("first draws are pinned", func(t *testing.T) {
		s := New(1)
		second := uint32(69069)
		second *= 69069

		require.Equal(t, 69069.0/4294967296.0, s.Float())
		require.Equal(t, float64(second)/4294967296.0, s.Float())
		require.Equal(t, uint32(4770526761-4294967296), second)
	})

	t.Run("draws stay in the unit range", func(t *testing.T) {
		s := New(42)

		for i := 0; i < 10000; i++ {
			f := s.Float()
			require.GreaterOrEqual(t, f, 0.0)
			require.Less(t, f, 1.0)
		}
	})

	t.Run("zero seed is a fixed point", func(t *testing.T) {
		s := New(0)

		for i := 0; i < 10; i++ {
			require.Zero(t, s.Float())
		}
	})
}

func TestStreamDeterminism(t *testing.T) {
	a := New(1234)
	b := New(1234)

	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Float(), b.Float())
	}
}

func TestStreamComposability(t *testing.T) {
	const n, k = 17, 23

	split := New(42)
	for i := 0; i < n; i++ {
		split.Float()
	}
	var tail []float64
	for i := 0; i < k; i++ {
		tail = append(tail, split.Float())
	}

	direct := New(42)
	var all []float64
	for i := 0; i < n+k; i++ {
		all = append(all, direct.Float())
	}

	require.Equal(t, all[n:], tail)
}

func TestStreamFork(t *testing.T) {
	s := New(7)
	s.Float()

	fork := s.Fork()
	require.Equal(t, s.State(), fork.State())

	forked := fork.Float()
	fork.Float()
	fork.Float()

	require.Equal(t, forked, s.Float())
}
