package export

import (
	"math"
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/modules"
	"github.com/aukilabs/yggdrasil/network"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/segmentio/encoding/json"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// ErrTypeMalformedDocument is the error type returned when decoding bytes
	// that are not a document.
	ErrTypeMalformedDocument = "malformed-document"

	// ContentType is the media type of encoded documents.
	ContentType = "application/x-protobuf"

	keyPrefix = "yggdrasil:v2:"
)

// Document is the complete output of a generation: the summary of the grown
// network and its geometry layers.
type Document struct {
	Seed      uint32          `json:"seed"`
	Valid     bool            `json:"valid"`
	NodeCount int             `json:"nodeCount"`
	Depth     float64         `json:"depth"`
	Center    [3]float64      `json:"center"`
	Layers    []modules.Layer `json:"layers"`
}

// NewDocument creates a document from a grown network and its layers.
func NewDocument(n *network.Network, layers []modules.Layer) Document {
	center := n.Center()

	return Document{
		Seed:      n.Seed(),
		Valid:     n.Valid(),
		NodeCount: n.NodeCount(),
		Depth:     n.Depth(),
		Center:    [3]float64{center.X, center.Y, center.Z},
		Layers:    layers,
	}
}

// Layer returns the layer with the given name.
func (d Document) Layer(name string) (modules.Layer, bool) {
	for _, l := range d.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return modules.Layer{}, false
}

// Document fields.
const (
	documentSeed      protowire.Number = 1
	documentValid     protowire.Number = 2
	documentNodeCount protowire.Number = 3
	documentDepth     protowire.Number = 4
	documentCenter    protowire.Number = 5
	documentLayer     protowire.Number = 6
)

// Layer fields.
const (
	layerName         protowire.Number = 1
	layerMode         protowire.Number = 2
	layerStride       protowire.Number = 3
	layerVertices     protowire.Number = 4
	layerIndices      protowire.Number = 5
	layerShape        protowire.Number = 6
	layerShapeIndices protowire.Number = 7
)

// Encode returns the protobuf wire encoding of a document. Float arrays are
// packed as fixed32 and index arrays as varints.
func Encode(d Document) []byte {
	var b []byte

	b = protowire.AppendTag(b, documentSeed, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.Seed))

	b = protowire.AppendTag(b, documentValid, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(d.Valid))

	b = protowire.AppendTag(b, documentNodeCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.NodeCount))

	b = protowire.AppendTag(b, documentDepth, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(d.Depth))

	b = protowire.AppendTag(b, documentCenter, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(d.Center)*8))
	for _, v := range d.Center {
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}

	for _, l := range d.Layers {
		b = protowire.AppendTag(b, documentLayer, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeLayer(l))
	}

	return b
}

func encodeLayer(l modules.Layer) []byte {
	var b []byte

	b = protowire.AppendTag(b, layerName, protowire.BytesType)
	b = protowire.AppendString(b, l.Name)

	b = protowire.AppendTag(b, layerMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Mode))

	b = protowire.AppendTag(b, layerStride, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Stride))

	b = appendFloats(b, layerVertices, l.Vertices)
	b = appendIndices(b, layerIndices, l.Indices)
	b = appendFloats(b, layerShape, l.Shape)
	b = appendIndices(b, layerShapeIndices, l.ShapeIndices)

	return b
}

func appendFloats(b []byte, num protowire.Number, values []float32) []byte {
	if len(values) == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(values)*4))
	for _, v := range values {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}

func appendIndices(b []byte, num protowire.Number, values []uint32) []byte {
	if len(values) == 0 {
		return b
	}

	size := 0
	for _, v := range values {
		size += protowire.SizeVarint(uint64(v))
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for _, v := range values {
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

// Decode parses a document encoded with Encode. Unknown fields are skipped.
func Decode(b []byte) (Document, error) {
	var d Document

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == documentSeed && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			d.Seed = uint32(v)
			return n, nil

		case num == documentValid && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			d.Valid = protowire.DecodeBool(v)
			return n, nil

		case num == documentNodeCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			d.NodeCount = int(v)
			return n, nil

		case num == documentDepth && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			d.Depth = math.Float64frombits(v)
			return n, nil

		case num == documentCenter && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			if len(v) != len(d.Center)*8 {
				return 0, malformed("invalid center length", num, nil)
			}
			for i := range d.Center {
				f, _ := protowire.ConsumeFixed64(v[i*8:])
				d.Center[i] = math.Float64frombits(f)
			}
			return n, nil

		case num == documentLayer && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			l, err := decodeLayer(v)
			if err != nil {
				return 0, err
			}
			d.Layers = append(d.Layers, l)
			return n, nil

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

func decodeLayer(b []byte) (modules.Layer, error) {
	var l modules.Layer

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error

		switch {
		case num == layerName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			l.Name = v
			return n, nil

		case num == layerMode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			l.Mode = modules.Mode(v)
			return n, nil

		case num == layerStride && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			l.Stride = int(v)
			return n, nil

		case num == layerVertices && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				l.Vertices, err = parseFloats(v, num)
			}
			return n, err

		case num == layerIndices && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				l.Indices, err = parseIndices(v, num)
			}
			return n, err

		case num == layerShape && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				l.Shape, err = parseFloats(v, num)
			}
			return n, err

		case num == layerShapeIndices && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				l.ShapeIndices, err = parseIndices(v, num)
			}
			return n, err

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return modules.Layer{}, err
	}
	return l, nil
}

// consumeFields calls fn for each field of a message. fn returns the length
// of the consumed value, negative on failure.
func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("invalid tag", 0, protowire.ParseError(n))
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return malformed("invalid field value", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func parseFloats(b []byte, num protowire.Number) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, malformed("invalid packed float length", num, nil)
	}

	values := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		values = append(values, math.Float32frombits(v))
		b = b[n:]
	}
	return values, nil
}

func parseIndices(b []byte, num protowire.Number) ([]uint32, error) {
	var values []uint32

	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, malformed("invalid packed index", num, protowire.ParseError(n))
		}
		if v > math.MaxUint32 {
			return nil, malformed("index out of range", num, nil)
		}
		values = append(values, uint32(v))
		b = b[n:]
	}
	return values, nil
}

func malformed(msg string, num protowire.Number, err error) error {
	e := errors.New(msg).
		WithType(ErrTypeMalformedDocument).
		WithTag("field", int(num))

	if err != nil {
		return e.Wrap(err)
	}
	return e
}

// Digest returns the hex encoded Keccak-256 hash of encoded bytes.
func Digest(b []byte) string {
	return crypto.Keccak256Hash(b).Hex()
}

// Key returns a cache key identifying the document generated from a config
// with the given feature flags set. Identical configs and flag sets always
// give identical keys, whatever the order of flags.
func Key(c models.Config, flags []string) (string, error) {
	sorted := append([]string(nil), flags...)
	sort.Strings(sorted)

	b, err := json.Marshal(struct {
		Config       models.Config `json:"config"`
		FeatureFlags []string      `json:"featureFlags,omitempty"`
	}{
		Config:       c,
		FeatureFlags: sorted,
	})
	if err != nil {
		return "", errors.New("encoding config failed").Wrap(err)
	}
	return keyPrefix + crypto.Keccak256Hash(b).Hex()[2:], nil
}
