// README: Prometheus collectors for itinerary generation and map operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a dedicated registry so tests can create as many as they like.
// It satisfies itinerary.Recorder and mapview.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	attempts *prometheus.CounterVec
	searches *prometheus.CounterVec
	routes   *prometheus.CounterVec
	requests *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wanderplan",
			Name:      "itinerary_attempts_total",
			Help:      "Itinerary generation attempts by outcome.",
		}, []string{"outcome"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wanderplan",
			Name:      "map_searches_total",
			Help:      "Geocoding searches by outcome.",
		}, []string{"outcome"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wanderplan",
			Name:      "map_routes_total",
			Help:      "Route plans by resulting status.",
		}, []string{"status"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wanderplan",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(
		m.attempts, m.searches, m.routes, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveAttempt(outcome string) { m.attempts.WithLabelValues(outcome).Inc() }
func (m *Metrics) ObserveSearch(outcome string)  { m.searches.WithLabelValues(outcome).Inc() }
func (m *Metrics) ObserveRoute(status string)    { m.routes.WithLabelValues(status).Inc() }

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, seconds float64) {
	m.requests.WithLabelValues(method, route, code).Observe(seconds)
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
