package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	// ShutdownTimeout is the time given to in-flight requests when servers
	// stop. Streaming connections still open afterwards are closed.
	ShutdownTimeout = time.Second * 10

	readHeaderTimeout = time.Second * 10
)

// ListenAndServe runs the given servers until ctx is done, then shuts them
// down and returns once every server stopped.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	var wg sync.WaitGroup

	for _, s := range servers {
		if s.ReadHeaderTimeout == 0 {
			s.ReadHeaderTimeout = readHeaderTimeout
		}

		wg.Add(1)
		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed:
				logs.WithTag("addr", s.Addr).Info("server stopped")

			default:
				logs.Warn(errors.New("server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	for _, s := range servers {
		wg.Add(1)
		go func(s *http.Server) {
			defer wg.Done()

			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.New("shutting down server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
				s.Close()
			}
		}(s)
	}

	wg.Wait()
}

// MetricsPathFormatter returns an empty path for responses that do not match
// a route, so that arbitrary request paths do not become metric labels.
func MetricsPathFormatter(statusCode int, path string) string {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusMethodNotAllowed,
		http.StatusTooManyRequests:
		return ""
	}

	return path
}
