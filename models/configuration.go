package models

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

const (
	// ErrTypeInvalidConfig is the error type of configurations rejected by
	// Validate.
	ErrTypeInvalidConfig = "invalid-config"

	// MaxRoots is the maximum number of roots a network can be grown from.
	MaxRoots = 64

	// MaxExtendTries is the maximum number of candidates a node samples per
	// growth step.
	MaxExtendTries = 1000
)

// BoundsType selects the volume each root must grow inside.
type BoundsType string

const (
	BoundsNone      BoundsType = "none"
	BoundsEllipsoid BoundsType = "ellipsoid"
	BoundsBox       BoundsType = "box"
)

// ObstacleType selects the volume each root must grow around.
type ObstacleType string

const (
	ObstacleNone     ObstacleType = "none"
	ObstacleSphere   ObstacleType = "sphere"
	ObstacleBox      ObstacleType = "box"
	ObstacleCylinder ObstacleType = "cylinder"
)

// Configuration holds the growth parameters. A network is a deterministic
// function of a Configuration.
type Configuration struct {
	Seed uint32 `json:"seed" yaml:"seed"`

	RadiusInitial   float64 `json:"radiusInitial" yaml:"radiusInitial"`
	RadiusDecay     float64 `json:"radiusDecay" yaml:"radiusDecay"`
	RadiusThreshold float64 `json:"radiusThreshold" yaml:"radiusThreshold"`

	ExtendTries     int     `json:"extendTries" yaml:"extendTries"`
	ExtendAngle     float64 `json:"extendAngle" yaml:"extendAngle"`         // radians
	ExtendThreshold int     `json:"extendThreshold" yaml:"extendThreshold"` // last layer grown as a single stem
	AngleThreshold  float64 `json:"angleThreshold" yaml:"angleThreshold"`   // radians away from up
	CollisionRadius float64 `json:"collisionRadius" yaml:"collisionRadius"`
	ShuffleTips     bool    `json:"shuffleTips" yaml:"shuffleTips"`

	StabilityInitial   int     `json:"stabilityInitial" yaml:"stabilityInitial"`
	StabilityThreshold float64 `json:"stabilityThreshold" yaml:"stabilityThreshold"`

	Roots int `json:"roots" yaml:"roots"`

	BoundsType   BoundsType `json:"boundsType" yaml:"boundsType"`
	BoundsRadius float64    `json:"boundsRadius" yaml:"boundsRadius"`
	BoundsHeight float64    `json:"boundsHeight" yaml:"boundsHeight"`

	ObstacleType   ObstacleType `json:"obstacleType" yaml:"obstacleType"`
	ObstacleRadius float64      `json:"obstacleRadius" yaml:"obstacleRadius"`
	ObstacleHeight float64      `json:"obstacleHeight" yaml:"obstacleHeight"`
	ObstacleOffset float64      `json:"obstacleOffset" yaml:"obstacleOffset"` // height of the obstacle base
}

// DefaultConfiguration returns the growth parameters of the reference tree.
func DefaultConfiguration() Configuration {
	return Configuration{
		Seed:               42,
		RadiusInitial:      .1,
		RadiusDecay:        .89,
		RadiusThreshold:    .015,
		ExtendTries:        5,
		ExtendAngle:        .72,
		ExtendThreshold:    1,
		AngleThreshold:     math.Pi,
		CollisionRadius:    1,
		StabilityInitial:   8,
		StabilityThreshold: 0,
		Roots:              1,
		BoundsType:         BoundsNone,
		BoundsRadius:       .8,
		BoundsHeight:       2.5,
		ObstacleType:       ObstacleNone,
		ObstacleRadius:     .3,
		ObstacleHeight:     .6,
		ObstacleOffset:     1,
	}
}

// Validate reports the first invalid growth parameter. Degenerate but
// meaningful values, such as a threshold above the initial radius, are
// accepted.
func (c Configuration) Validate() error {
	switch {
	case !(c.RadiusInitial > 0):
		return invalid("growth.radiusInitial must be positive")
	case !(c.RadiusDecay > 0 && c.RadiusDecay < 1):
		return invalid("growth.radiusDecay must be in (0, 1)")
	case !(c.RadiusThreshold >= 0):
		return invalid("growth.radiusThreshold cannot be negative")
	case c.ExtendTries < 0 || c.ExtendTries > MaxExtendTries:
		return invalid("growth.extendTries must be in [0, 1000]")
	case !(c.ExtendAngle >= 0):
		return invalid("growth.extendAngle cannot be negative")
	case !(c.AngleThreshold >= 0):
		return invalid("growth.angleThreshold cannot be negative")
	case !(c.CollisionRadius > 0):
		return invalid("growth.collisionRadius must be positive")
	case c.StabilityInitial < 0:
		return invalid("growth.stabilityInitial cannot be negative")
	case math.IsNaN(c.StabilityThreshold):
		return invalid("growth.stabilityThreshold must be a number")
	case c.Roots < 1 || c.Roots > MaxRoots:
		return invalid("growth.roots must be in [1, 64]")
	}

	switch c.BoundsType {
	case BoundsNone:
	case BoundsEllipsoid, BoundsBox:
		if !(c.BoundsRadius >= 0) || !(c.BoundsHeight > 0) {
			return invalid("growth.bounds dimensions must be positive")
		}
	default:
		return errors.New("growth.boundsType is unknown").
			WithType(ErrTypeInvalidConfig).
			WithTag("bounds_type", c.BoundsType)
	}

	switch c.ObstacleType {
	case ObstacleNone:
	case ObstacleSphere, ObstacleBox, ObstacleCylinder:
		if !(c.ObstacleRadius >= 0) || !(c.ObstacleHeight >= 0) || !(c.ObstacleOffset >= 0) {
			return invalid("growth.obstacle dimensions cannot be negative")
		}
	default:
		return errors.New("growth.obstacleType is unknown").
			WithType(ErrTypeInvalidConfig).
			WithTag("obstacle_type", c.ObstacleType)
	}

	return nil
}

// MeshConfiguration holds the parameters used to turn a network into tube
// geometry.
type MeshConfiguration struct {
	RadiusPower   float64 `json:"radiusPower" yaml:"radiusPower"`
	RadiusScale   float64 `json:"radiusScale" yaml:"radiusScale"`
	RadiusMinimum float64 `json:"radiusMinimum" yaml:"radiusMinimum"`

	RingMinSteps   int     `json:"ringMinSteps" yaml:"ringMinSteps"`
	RingStepLength float64 `json:"ringStepLength" yaml:"ringStepLength"`
	RingPower      float64 `json:"ringPower" yaml:"ringPower"`
	RingJump       int     `json:"ringJump" yaml:"ringJump"` // max step difference between consecutive rings

	SplitThreshold  float64 `json:"splitThreshold" yaml:"splitThreshold"`
	ControlFraction float64 `json:"controlFraction" yaml:"controlFraction"`
	LengthStep      float64 `json:"lengthStep" yaml:"lengthStep"`
	AngleStep       float64 `json:"angleStep" yaml:"angleStep"` // radians

	MarkerSubdivisions int `json:"markerSubdivisions" yaml:"markerSubdivisions"`
}

func DefaultMeshConfiguration() MeshConfiguration {
	return MeshConfiguration{
		RadiusPower:        .5,
		RadiusScale:        .003,
		RadiusMinimum:      .004,
		RingMinSteps:       3,
		RingStepLength:     .01,
		RingPower:          .75,
		RingJump:           2,
		SplitThreshold:     .6,
		ControlFraction:    .35,
		LengthStep:         .05,
		AngleStep:          .3,
		MarkerSubdivisions: 1,
	}
}

func (c MeshConfiguration) Validate() error {
	switch {
	case !(c.RadiusPower >= 0):
		return invalid("mesh.radiusPower cannot be negative")
	case !(c.RadiusScale >= 0):
		return invalid("mesh.radiusScale cannot be negative")
	case !(c.RadiusMinimum > 0):
		return invalid("mesh.radiusMinimum must be positive")
	case c.RingMinSteps < 3:
		return invalid("mesh.ringMinSteps must be at least 3")
	case !(c.RingStepLength > 0):
		return invalid("mesh.ringStepLength must be positive")
	case !(c.RingPower > 0):
		return invalid("mesh.ringPower must be positive")
	case c.RingJump < 1:
		return invalid("mesh.ringJump must be at least 1")
	case !(c.SplitThreshold >= 0 && c.SplitThreshold <= 1):
		return invalid("mesh.splitThreshold must be in [0, 1]")
	case !(c.ControlFraction >= 0 && c.ControlFraction <= .5):
		return invalid("mesh.controlFraction must be in [0, 0.5]")
	case !(c.LengthStep > 0):
		return invalid("mesh.lengthStep must be positive")
	case !(c.AngleStep > 0):
		return invalid("mesh.angleStep must be positive")
	case c.MarkerSubdivisions < 0 || c.MarkerSubdivisions > 5:
		return invalid("mesh.markerSubdivisions must be in [0, 5]")
	}
	return nil
}

// Layers selects the geometry produced for a network.
type Layers struct {
	Branches  bool `json:"branches" yaml:"branches"`
	Wireframe bool `json:"wireframe" yaml:"wireframe"`
	Spheres   bool `json:"spheres" yaml:"spheres"`
	Volumes   bool `json:"volumes" yaml:"volumes"`
}

// Config is a complete generation request: how to grow and how to model.
type Config struct {
	Growth Configuration     `json:"growth" yaml:"growth"`
	Mesh   MeshConfiguration `json:"mesh" yaml:"mesh"`
	Layers Layers            `json:"layers" yaml:"layers"`
}

func DefaultConfig() Config {
	return Config{
		Growth: DefaultConfiguration(),
		Mesh:   DefaultMeshConfiguration(),
		Layers: Layers{Branches: true},
	}
}

func (c Config) Validate() error {
	if err := c.Growth.Validate(); err != nil {
		return err
	}
	return c.Mesh.Validate()
}

// LoadConfig reads a configuration file on top of the defaults. Files ending
// with .yaml or .yml are decoded as YAML, anything else as JSON. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New("reading config file failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := UnmarshalConfig(data, filepath.Ext(path), &c); err != nil {
		return Config{}, errors.New("parsing config file failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// UnmarshalConfig decodes data into c according to a file extension. Fields
// missing from data keep their current value.
func UnmarshalConfig(data []byte, ext string, c *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)

	default:
		return json.Unmarshal(data, c)
	}
}

func invalid(msg string) error {
	return errors.New(msg).WithType(ErrTypeInvalidConfig)
}
