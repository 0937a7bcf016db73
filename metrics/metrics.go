// Package metrics collects Prometheus metrics for HTTP traffic, session
// operations and rate limiting.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	authEvents     *prometheus.CounterVec
	rateLimitDrops *prometheus.CounterVec
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trip_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_auth_events_total",
			Help: "Session operations by outcome.",
		}, []string{"operation", "outcome"}),
		rateLimitDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_rate_limit_rejections_total",
			Help: "Requests rejected by a rate limit policy.",
		}, []string{"policy"}),
	}

	reg.MustRegister(c.httpRequests, c.httpDuration, c.authEvents, c.rateLimitDrops)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordAuthEvent(operation, outcome string) {
	c.authEvents.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordRateLimitRejection(policy string) {
	c.rateLimitDrops.WithLabelValues(policy).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
