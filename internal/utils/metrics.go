package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	errorCount      prometheus.Counter
	requestDuration *prometheus.HistogramVec
	operationTimes  *prometheus.HistogramVec

	systemStartTime time.Time
}

// NewMetricsCollector builds a collector on its own registry, so several
// collectors (one per test server, say) never collide on registration.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		errorCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotube_errors_total",
			Help: "Requests that ended in a 5xx response.",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		operationTimes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "videotube_operation_duration_seconds",
			Help:    "Latency of named service operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		systemStartTime: time.Now(),
	}
}

// ObserveRequest records one finished HTTP request.
func (mc *MetricsCollector) ObserveRequest(method, route string, status int, duration time.Duration) {
	mc.requestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	mc.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if status >= http.StatusInternalServerError {
		mc.IncrementErrors()
	}
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.errorCount.Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.operationTimes.WithLabelValues(operationName).Observe(duration.Seconds())
}

// Uptime reports how long the collector has existed.
func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Registry exposes the underlying registry, mainly for tests.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the collected metrics in the prometheus exposition format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry})
}
