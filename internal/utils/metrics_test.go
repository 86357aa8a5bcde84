package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorCountsRequestsAndErrors(t *testing.T) {
	mc := NewMetricsCollector()

	mc.ObserveRequest(http.MethodPost, "/api/v1/users/login", http.StatusOK, 5*time.Millisecond)
	mc.ObserveRequest(http.MethodPost, "/api/v1/users/login", http.StatusOK, 7*time.Millisecond)
	mc.ObserveRequest(http.MethodGet, "/api/v1/users/watch-history", http.StatusInternalServerError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(mc.requestCount.WithLabelValues(http.MethodPost, "/api/v1/users/login", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.errorCount))
}

func TestMetricsCollectorsDoNotShareRegistries(t *testing.T) {
	first := NewMetricsCollector()
	second := NewMetricsCollector()

	first.AddOperationLatency("login", time.Millisecond)
	second.AddOperationLatency("login", time.Millisecond)

	rec := httptest.NewRecorder()
	first.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "videotube_operation_duration_seconds")
	assert.NotSame(t, first.Registry(), second.Registry())
}
