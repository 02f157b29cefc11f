package export

import (
	"context"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/yggdrasil/mesh"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func newDocument(t *testing.T, c models.Configuration) Document {
	n := network.New(c)

	layers, err := modules.Model(context.Background(), n,
		mesh.NewBranches(models.DefaultMeshConfiguration(), true),
		mesh.Wireframe{},
		mesh.NewSpheres(1))
	require.NoError(t, err)

	return NewDocument(n, layers)
}

func TestEncodeDecode(t *testing.T) {
	d := newDocument(t, models.DefaultConfiguration())

	decoded, err := Decode(Encode(d))
	require.NoError(t, err)
	require.Equal(t, d, decoded)

	require.Equal(t, uint32(42), decoded.Seed)
	require.True(t, decoded.Valid)
	require.Equal(t, 757, decoded.NodeCount)
	require.Len(t, decoded.Layers, 3)

	spheres, ok := decoded.Layer("spheres")
	require.True(t, ok)
	require.Equal(t, modules.Instances, spheres.Mode)
	require.NotEmpty(t, spheres.ShapeIndices)

	_, ok = decoded.Layer("unknown")
	require.False(t, ok)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	d := Document{
		Seed:      7,
		NodeCount: 1,
		Layers: []modules.Layer{
			{Name: "wireframe", Mode: modules.Lines, Stride: 4, Vertices: []float32{1, 2, 3, 0}},
		},
	}

	b := Encode(d)
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")

	decoded, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, d, decoded)
}

func TestDecodeMalformed(t *testing.T) {
	valid := Encode(Document{
		Layers: []modules.Layer{
			{Name: "branches", Stride: 7, Vertices: []float32{1, 2, 3, 4, 5, 6, 7}, Indices: []uint32{0, 0, 0}},
		},
	})

	tests := []struct {
		name string
		b    []byte
	}{
		{
			name: "truncated",
			b:    valid[:len(valid)-3],
		},
		{
			name: "invalid tag",
			b:    []byte{0xff},
		},
		{
			name: "invalid center",
			b: protowire.AppendBytes(
				protowire.AppendTag(nil, documentCenter, protowire.BytesType),
				[]byte{1, 2, 3}),
		},
		{
			name: "invalid floats",
			b: protowire.AppendBytes(
				protowire.AppendTag(nil, documentLayer, protowire.BytesType),
				protowire.AppendBytes(
					protowire.AppendTag(nil, layerVertices, protowire.BytesType),
					[]byte{1, 2, 3})),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.b)
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeMalformedDocument))
		})
	}
}

func TestDigest(t *testing.T) {
	a := Encode(newDocument(t, models.DefaultConfiguration()))
	b := Encode(newDocument(t, models.DefaultConfiguration()))

	require.Equal(t, Digest(a), Digest(b))
	require.True(t, strings.HasPrefix(Digest(a), "0x"))
	require.Len(t, Digest(a), 66)

	c := models.DefaultConfiguration()
	c.Seed = 43
	require.NotEqual(t, Digest(a), Digest(Encode(newDocument(t, c))))

	// Keccak-256 of empty input.
	require.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Digest(nil))
}

func TestKey(t *testing.T) {
	a, err := Key(models.DefaultConfig(), nil)
	require.NoError(t, err)

	b, err := Key(models.DefaultConfig(), []string{})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, keyPrefix))
	require.Len(t, a, len(keyPrefix)+64)

	c := models.DefaultConfig()
	c.Layers.Spheres = true
	other, err := Key(c, nil)
	require.NoError(t, err)
	require.NotEqual(t, a, other)
}

func TestKeyFeatureFlags(t *testing.T) {
	c := models.DefaultConfig()

	none, err := Key(c, nil)
	require.NoError(t, err)

	flags := []string{"DISABLE_WIREFRAME_LAYER", "DISABLE_PARALLEL_MODELLING"}
	flagged, err := Key(c, flags)
	require.NoError(t, err)
	require.NotEqual(t, none, flagged)

	reordered, err := Key(c, []string{flags[1], flags[0]})
	require.NoError(t, err)
	require.Equal(t, flagged, reordered)
	require.Equal(t, "DISABLE_WIREFRAME_LAYER", flags[0])

	single, err := Key(c, flags[:1])
	require.NoError(t, err)
	require.NotEqual(t, flagged, single)
	require.NotEqual(t, none, single)
}
