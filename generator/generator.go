package generator

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/yggdrasil/cache"
	"github.com/aukilabs/yggdrasil/export"
	"github.com/aukilabs/yggdrasil/featureflag"
	"github.com/aukilabs/yggdrasil/mesh"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
)

const (
	// ErrTypeInvalidNetwork is the error type returned when growth exceeds the
	// node limit.
	ErrTypeInvalidNetwork = "invalid-network"
)

// Result is a generated document with its encoding.
type Result struct {
	Document export.Document

	// The protobuf wire encoding of the document.
	Encoded []byte

	// The Keccak-256 digest of Encoded.
	Digest string

	// Whether the result was read from the cache.
	Cached bool
}

// Generator grows networks and models them into documents.
type Generator struct {
	// The store results are cached in. Nil disables caching.
	Cache cache.Store

	FeatureFlags featureflag.FeatureFlag
}

// Generate returns the document produced by a config. Results are looked up
// in the cache before growing a new network.
func (g *Generator) Generate(ctx context.Context, c models.Config) (Result, error) {
	if err := c.Validate(); err != nil {
		instrumentGeneration("invalid_config")
		return Result{}, err
	}

	key, err := export.Key(c, g.FeatureFlags.List())
	if err != nil {
		return Result{}, err
	}

	if res, ok := g.lookup(ctx, key); ok {
		instrumentGeneration("cached")
		return res, nil
	}

	start := time.Now()
	n := network.New(c.Growth, network.WithContext(ctx))
	instrumentStage("growth", time.Since(start))

	if err := n.Err(); err != nil {
		instrumentGeneration("cancelled")
		return Result{}, err
	}

	if !n.Valid() {
		instrumentGeneration("invalid_network")
		return Result{}, invalidNetwork(n)
	}

	start = time.Now()
	layers, err := modules.Model(ctx, n, g.Modules(c)...)
	if err != nil {
		instrumentGeneration("failed")
		return Result{}, err
	}
	instrumentStage("modelling", time.Since(start))

	start = time.Now()
	res := Result{Document: export.NewDocument(n, layers)}
	res.Encoded = export.Encode(res.Document)
	res.Digest = export.Digest(res.Encoded)
	instrumentStage("encoding", time.Since(start))
	instrumentSize(len(res.Encoded))

	g.store(ctx, key, res.Encoded)
	instrumentGeneration("generated")

	logs.WithTag("run_id", n.ID()).
		WithTag("seed", n.Seed()).
		WithTag("node_count", n.NodeCount()).
		WithTag("layers", len(layers)).
		WithTag("size", len(res.Encoded)).
		WithTag("digest", res.Digest).
		Info("document generated")

	return res, nil
}

// Stream grows a network and calls observe after each growth layer. It
// returns the grown network, or an error typed ErrTypeInvalidNetwork when
// the node limit was exceeded. Growth stops when ctx is done.
func (g *Generator) Stream(ctx context.Context, c models.Configuration, observe network.Observer) (*network.Network, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := network.New(c, network.WithObserver(observe), network.WithContext(ctx))
	if err := n.Err(); err != nil {
		return nil, err
	}
	if !n.Valid() {
		return nil, invalidNetwork(n)
	}
	return n, nil
}

// Modules returns the modellers of the layers enabled by a config and the
// feature flags.
func (g *Generator) Modules(c models.Config) []modules.Module {
	var m []modules.Module

	if c.Layers.Branches {
		m = append(m, mesh.NewBranches(c.Mesh, !g.FeatureFlags.IsSet(featureflag.FlagDisableParallelModelling)))
	}

	g.FeatureFlags.IfNotSet(featureflag.FlagDisableWireframeLayer, func() {
		if c.Layers.Wireframe {
			m = append(m, mesh.Wireframe{})
		}
	})

	g.FeatureFlags.IfNotSet(featureflag.FlagDisableSpheresLayer, func() {
		if c.Layers.Spheres {
			m = append(m, mesh.NewSpheres(c.Mesh.MarkerSubdivisions))
		}
	})

	g.FeatureFlags.IfNotSet(featureflag.FlagDisableVolumesLayer, func() {
		if c.Layers.Volumes {
			m = append(m, mesh.Volumes{})
		}
	})

	return m
}

func (g *Generator) lookup(ctx context.Context, key string) (Result, bool) {
	if g.Cache == nil || g.FeatureFlags.IsSet(featureflag.FlagDisableCache) {
		return Result{}, false
	}

	b, ok, err := g.Cache.Get(ctx, key)
	if err != nil {
		instrumentCacheRequest("error")
		logs.WithTag("key", key).Warn(errors.New("reading cache failed").Wrap(err))
		return Result{}, false
	}
	if !ok {
		instrumentCacheRequest("miss")
		return Result{}, false
	}

	d, err := export.Decode(b)
	if err != nil {
		instrumentCacheRequest("error")
		logs.WithTag("key", key).Warn(errors.New("decoding cached document failed").Wrap(err))
		return Result{}, false
	}

	instrumentCacheRequest("hit")
	return Result{
		Document: d,
		Encoded:  b,
		Digest:   export.Digest(b),
		Cached:   true,
	}, true
}

func (g *Generator) store(ctx context.Context, key string, b []byte) {
	if g.Cache == nil || g.FeatureFlags.IsSet(featureflag.FlagDisableCache) {
		return
	}

	if err := g.Cache.Set(ctx, key, b); err != nil {
		logs.WithTag("key", key).Warn(errors.New("writing cache failed").Wrap(err))
	}
}

func invalidNetwork(n *network.Network) error {
	return errors.New("network exceeded the node limit").
		WithType(ErrTypeInvalidNetwork).
		WithTag("run_id", n.ID()).
		WithTag("seed", n.Seed()).
		WithTag("node_count", n.NodeCount()).
		WithTag("max_nodes", network.MaxNodes)
}
