package smoketest

import (
	"context"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/yggdrasil/generator"
	httpcmn "github.com/aukilabs/yggdrasil/http"
	"github.com/aukilabs/yggdrasil/models"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Options configures the smoke test.
type Options struct {
	// The scenario regenerated by each test.
	Config models.Config

	// The maximum duration of a test. Defaults to 30 seconds.
	Timeout time.Duration
}

// Run describes one generation of the scenario.
type Run struct {
	NodeCount int           `json:"nodeCount"`
	Depth     float64       `json:"depth"`
	Digest    string        `json:"digest"`
	Duration  time.Duration `json:"duration"`
}

// Results is the body of smoke test responses.
type Results struct {
	Status     string   `json:"status"`
	Runs       []Run    `json:"runs,omitempty"`
	Mismatches []string `json:"mismatches,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// HandleSmokeTest returns a handler that generates the configured scenario
// twice without cache and reports whether both runs produced the same
// document.
func HandleSmokeTest(opts Options) http.HandlerFunc {
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			httpcmn.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		res := RunSmokeTest(ctx, opts.Config)
		if res.Status != StatusSuccess {
			httpcmn.WriteJSON(w, http.StatusInternalServerError, res)
			return
		}
		httpcmn.WriteJSON(w, http.StatusOK, res)
	}
}

// RunSmokeTest generates a config twice and compares the node count, the
// depth and the digest of both documents.
func RunSmokeTest(ctx context.Context, c models.Config) Results {
	var g generator.Generator
	var res Results

	for i := 0; i < 2; i++ {
		start := time.Now()

		doc, err := g.Generate(ctx, c)
		if err != nil {
			logs.WithTag("seed", c.Growth.Seed).
				Warn(errors.New("smoke test generation failed").Wrap(err))

			res.Status = StatusFailed
			res.Error = err.Error()
			return res
		}

		res.Runs = append(res.Runs, Run{
			NodeCount: doc.Document.NodeCount,
			Depth:     doc.Document.Depth,
			Digest:    doc.Digest,
			Duration:  time.Since(start),
		})
	}

	a, b := res.Runs[0], res.Runs[1]
	if a.NodeCount != b.NodeCount {
		res.Mismatches = append(res.Mismatches, "nodeCount")
	}
	if a.Depth != b.Depth {
		res.Mismatches = append(res.Mismatches, "depth")
	}
	if a.Digest != b.Digest {
		res.Mismatches = append(res.Mismatches, "digest")
	}

	if len(res.Mismatches) != 0 {
		logs.WithTag("seed", c.Growth.Seed).
			WithTag("runs", res.Runs).
			Warn(errors.New("non deterministic generation").
				WithTag("mismatches", res.Mismatches))

		res.Status = StatusFailed
		return res
	}

	res.Status = StatusSuccess
	return res
}
