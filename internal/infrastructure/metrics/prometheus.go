// Package metrics exposes plant backend metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fibc"

// Registry owns the collectors of one process. Safe for concurrent use.
type Registry struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	eventsDispatched    *prometheus.CounterVec
	eventsForwarded     *prometheus.CounterVec
}

// NewRegistry creates a registry with runtime collectors and the plant metrics
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)
	r.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	r.eventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Domain events dispatched to handlers, by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	r.eventsForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "forwarded_total",
			Help:      "Deliveries through the idempotency guard, by type and outcome (processed, duplicate, failed).",
		},
		[]string{"type", "outcome"},
	)

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.eventsDispatched,
		r.eventsForwarded,
	)
	return r
}

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveDispatch records one event delivery; it matches the event bus observer hook
func (r *Registry) ObserveDispatch(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.eventsDispatched.WithLabelValues(eventType, outcome).Inc()
}

// ObserveForward records one delivery through the idempotency guard
func (r *Registry) ObserveForward(eventType, outcome string) {
	r.eventsForwarded.WithLabelValues(eventType, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry for tests and pushers
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
