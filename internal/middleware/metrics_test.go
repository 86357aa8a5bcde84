package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"videotube/internal/logger"
	"videotube/internal/utils"
)

func TestRequestMetricsUsesRoutePattern(t *testing.T) {
	metrics := utils.NewMetricsCollector()

	r := chi.NewRouter()
	r.Use(RequestMetrics(metrics, logger.Discard()))
	r.Get("/c/{username}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, name := range []string{"alice", "bob"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c/"+name, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	count, err := testutil.GatherAndCount(metrics.Registry(), "videotube_http_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
