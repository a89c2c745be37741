// Package metrics exposes Prometheus instrumentation for sectorflow.
// A nil *Registry is valid and records nothing, so components can be used without it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
	ResultHit      = "hit"
	ResultMiss     = "miss"
)

// Registry holds all sectorflow metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	PriceFetches    *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	FeedGenerations *prometheus.CounterVec
	Digests         *prometheus.CounterVec
	Snapshots       prometheus.Gauge
}

// NewRegistry creates and registers all metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorflow_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),

		PriceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_price_fetches_total",
				Help: "Upstream price series fetches by result",
			},
			[]string{"result"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_return_cache_lookups_total",
				Help: "Return cache lookups by result",
			},
			[]string{"result"},
		),

		FeedGenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_feed_generations_total",
				Help: "Community feed generations by result",
			},
			[]string{"result"},
		),

		Digests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_digests_total",
				Help: "Scheduled digest runs by result",
			},
			[]string{"result"},
		),

		Snapshots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sectorflow_snapshots_stored",
				Help: "Feed snapshots currently archived",
			},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.HTTPRequests,
		r.HTTPDuration,
		r.PriceFetches,
		r.CacheLookups,
		r.FeedGenerations,
		r.Digests,
		r.Snapshots,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObservePriceFetch records one upstream fetch outcome.
func (r *Registry) ObservePriceFetch(result string) {
	if r == nil {
		return
	}
	r.PriceFetches.WithLabelValues(result).Inc()
}

// ObserveCache records one cache lookup outcome.
func (r *Registry) ObserveCache(result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveFeed records one feed generation outcome.
func (r *Registry) ObserveFeed(result string) {
	if r == nil {
		return
	}
	r.FeedGenerations.WithLabelValues(result).Inc()
}

// ObserveDigest records one digest run outcome.
func (r *Registry) ObserveDigest(result string) {
	if r == nil {
		return
	}
	r.Digests.WithLabelValues(result).Inc()
}

// SetSnapshots records the archived snapshot count.
func (r *Registry) SetSnapshots(n int) {
	if r == nil {
		return
	}
	r.Snapshots.Set(float64(n))
}
