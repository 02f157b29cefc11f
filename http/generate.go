package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/yggdrasil/export"
	"github.com/aukilabs/yggdrasil/generator"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/network"
	"github.com/aukilabs/yggdrasil/random"
)

const (
	// MaxConfigSize is the maximum size of a config in a request body.
	MaxConfigSize = 1 << 20

	headerCache = "X-Cache"
)

// HandleGenerate returns a handler that generates the document described by
// the JSON config in the request body. An empty body uses the default config.
//
// The seed query parameter overrides the config seed. It is either a number
// or "random". Documents are encoded with protobuf when the request accepts
// application/x-protobuf, as JSON otherwise.
func HandleGenerate(g *generator.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		c, err := readConfig(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := g.Generate(r.Context(), c)
		switch {
		case err == nil:

		case errors.IsType(err, models.ErrTypeInvalidConfig):
			WriteError(w, http.StatusBadRequest, err.Error())
			return

		case errors.IsType(err, generator.ErrTypeInvalidNetwork):
			WriteError(w, http.StatusUnprocessableEntity,
				"the configuration grows more than "+strconv.Itoa(network.MaxNodes)+" nodes")
			return

		default:
			logs.WithTag("seed", c.Growth.Seed).Warn(err)
			WriteError(w, http.StatusInternalServerError, "generating document failed")
			return
		}

		etag := `"` + res.Digest + `"`
		w.Header().Set("ETag", etag)
		w.Header().Set(headerCache, cacheStatus(res.Cached))

		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if strings.Contains(r.Header.Get("Accept"), export.ContentType) {
			w.Header().Set("Content-Type", export.ContentType)
			w.WriteHeader(http.StatusOK)
			w.Write(res.Encoded)
			return
		}

		WriteJSON(w, http.StatusOK, res.Document)
	}
}

func readConfig(r *http.Request) (models.Config, error) {
	c := models.DefaultConfig()

	b, err := io.ReadAll(io.LimitReader(r.Body, MaxConfigSize+1))
	if err != nil {
		return models.Config{}, errors.New("reading body failed").Wrap(err)
	}
	if len(b) > MaxConfigSize {
		return models.Config{}, errors.New("config is too large")
	}

	if len(b) != 0 {
		if err := models.UnmarshalConfig(b, ".json", &c); err != nil {
			return models.Config{}, errors.New("invalid config json")
		}
	}

	switch seed := r.URL.Query().Get("seed"); seed {
	case "":

	case "random":
		c.Growth.Seed = random.NewSeed()

	default:
		v, err := strconv.ParseUint(seed, 10, 32)
		if err != nil {
			return models.Config{}, errors.New("invalid seed")
		}
		c.Growth.Seed = uint32(v)
	}

	return c, nil
}

func cacheStatus(cached bool) string {
	if cached {
		return "hit"
	}
	return "miss"
}
