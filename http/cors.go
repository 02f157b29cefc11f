package http

import (
	"net/http"

	"github.com/rs/cors"
)

// HandleWithCORS wraps a handler with CORS support for the given origins. An
// empty list allows every origin.
func HandleWithCORS(origins []string, h http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "If-None-Match"},
		ExposedHeaders: []string{"ETag", headerCache},
	}).Handler(h)
}
