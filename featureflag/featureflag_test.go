package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{"FEATURE1", string(FlagDisableCache)})

	t.Run("run if enabled", func(t *testing.T) {
		var runFeature1 bool
		f.IfSet("FEATURE1", func() {
			runFeature1 = true
		})
		require.True(t, runFeature1)

		var runFeature2 bool
		f.IfSet("FEATURE2", func() {
			runFeature2 = true
		})
		require.False(t, runFeature2)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var runFeature1 bool
		f.IfNotSet("FEATURE1", func() {
			runFeature1 = true
		})
		require.False(t, runFeature1)

		var runFeature2 bool
		f.IfNotSet("FEATURE2", func() {
			runFeature2 = true
		})
		require.True(t, runFeature2)
	})

	t.Run("is set", func(t *testing.T) {
		require.True(t, f.IsSet("FEATURE1"))
		require.True(t, f.IsSet(FlagDisableCache))
		require.False(t, f.IsSet(FlagDisableSpheresLayer))
		require.False(t, New(nil).IsSet(FlagDisableCache))
	})
}

func TestNewNormalizesNames(t *testing.T) {
	f := New([]string{" disable_cache", "", "  ", "Disable_Spheres_Layer "})

	require.True(t, f.IsSet(FlagDisableCache))
	require.True(t, f.IsSet(FlagDisableSpheresLayer))
	require.Equal(t, []string{"DISABLE_CACHE", "DISABLE_SPHERES_LAYER"}, f.List())
}

func TestList(t *testing.T) {
	require.Empty(t, New(nil).List())
	require.Equal(t,
		[]string{"DISABLE_CACHE", "DISABLE_GROWTH_STREAMING"},
		New([]string{string(FlagDisableGrowthStreaming), string(FlagDisableCache)}).List())
}
