// Package metrics registers and exposes the gateway's Prometheus metrics,
// following the teacher's initMetrics shape (custom counters/gauges plus
// a gin middleware timing every request).
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's custom Prometheus collectors.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	batchErrors     *prometheus.CounterVec
	rateLimitHits   *prometheus.CounterVec
	tenantPoolsOpen prometheus.Gauge
}

// New registers the gateway's metrics against the default registry.
func New() *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard_gateway",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dashboard_gateway",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
		}, []string{"method", "path"}),
		batchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard_gateway",
			Name:      "batch_slug_errors_total",
			Help:      "Total number of per-slug batch execution errors.",
		}, []string{"kind"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard_gateway",
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		}, []string{"endpoint"}),
		tenantPoolsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard_gateway",
			Name:      "tenant_pools_open",
			Help:      "Number of tenant connection pools currently open.",
		}),
	}

	prometheus.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.batchErrors,
		m.rateLimitHits,
		m.tenantPoolsOpen,
	)
	return m
}

// Middleware times every request and records it against requestsTotal /
// requestDuration, following the teacher's metricsCollector.Middleware().
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		m.requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// RecordBatchError increments the per-slug batch error counter for kind
// ("validation", "template", "execution", "not_found", "role").
func (m *Metrics) RecordBatchError(kind string) {
	m.batchErrors.WithLabelValues(kind).Inc()
}

// RecordRateLimitHit increments the rate-limit rejection counter.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.rateLimitHits.WithLabelValues(endpoint).Inc()
}

// SetTenantPoolsOpen updates the open-tenant-pools gauge.
func (m *Metrics) SetTenantPoolsOpen(n int) {
	m.tenantPoolsOpen.Set(float64(n))
}
