// ABOUTME: Prometheus metrics for the ledger API, served on a separate listener.
// ABOUTME: Labels are route templates, status codes and categories; never user ids.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	synced   *prometheus.CounterVec
	denials  prometheus.Counter
}

// NewMetrics registers the API collectors plus Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthlink",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthlink",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		synced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthlink",
			Name:      "synced_items_total",
			Help:      "Ledger items written by sync, by category.",
		}, []string{"category"}),
		denials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthlink",
			Name:      "access_denials_total",
			Help:      "Overview requests refused by the access gate.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.synced, m.denials,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware counts requests and observes latency.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := routeOf(c)
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
			m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveSync adds per-category sync counts.
func (m *Metrics) ObserveSync(counts map[models.Category]int) {
	for cat, n := range counts {
		if n > 0 {
			m.synced.WithLabelValues(string(cat)).Add(float64(n))
		}
	}
}

// ObserveDenial counts one access gate refusal.
func (m *Metrics) ObserveDenial() {
	m.denials.Inc()
}
