package smoketest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/yggdrasil/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestSmokeTest(t *testing.T) {
	t.Run("smoke test success", func(t *testing.T) {
		h := HandleSmokeTest(Options{Config: models.DefaultConfig()})

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res Results
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, StatusSuccess, res.Status)
		require.Empty(t, res.Mismatches)
		require.Len(t, res.Runs, 2)
		require.Equal(t, 757, res.Runs[0].NodeCount)
		require.Equal(t, res.Runs[0].Digest, res.Runs[1].Digest)
	})

	t.Run("smoke test failed - invalid config", func(t *testing.T) {
		c := models.DefaultConfig()
		c.Growth.RadiusDecay = 2

		w := httptest.NewRecorder()
		HandleSmokeTest(Options{Config: c}).
			ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var res Results
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, StatusFailed, res.Status)
		require.NotEmpty(t, res.Error)
		require.Empty(t, res.Runs)
	})

	t.Run("smoke test failed - cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := RunSmokeTest(ctx, models.DefaultConfig())
		require.Equal(t, StatusFailed, res.Status)
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleSmokeTest(Options{}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
