package featureflag

type Flag string

const (
	FlagDisableCache             Flag = "DISABLE_CACHE"
	FlagDisableWireframeLayer    Flag = "DISABLE_WIREFRAME_LAYER"
	FlagDisableSpheresLayer      Flag = "DISABLE_SPHERES_LAYER"
	FlagDisableParallelModelling Flag = "DISABLE_PARALLEL_MODELLING"
	FlagDisableGrowthStreaming   Flag = "DISABLE_GROWTH_STREAMING"
	FlagDisableVolumesLayer      Flag = "DISABLE_VOLUMES_LAYER"
)
