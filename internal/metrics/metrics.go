// Package metrics exposes Prometheus counters for transitions, searches and
// upstream calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/asesor/internal/lead"
)

const namespace = "asesor"

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	searches      *prometheus.CounterVec
	searchResults *prometheus.HistogramVec
	upstream      *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Lead state transition attempts.",
		}, []string{"from", "to", "result"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Retrieval operations by kind.",
		}, []string{"kind"}),
		searchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Documents returned per retrieval operation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}, []string{"kind"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to external collaborators by outcome.",
		}, []string{"service", "outcome"}),
	}
	m.registry.MustRegister(m.transitions, m.searches, m.searchResults, m.upstream)
	return m
}

// ObserveTransition records one transition attempt.
func (m *Metrics) ObserveTransition(from, to lead.State, ok bool) {
	result := "accepted"
	if !ok {
		result = "rejected"
	}
	m.transitions.WithLabelValues(string(from), string(to), result).Inc()
}

// TransitionObserver adapts ObserveTransition to lead.Observer.
func (m *Metrics) TransitionObserver() lead.Observer {
	return m.ObserveTransition
}

// ObserveSearch records one retrieval operation.
func (m *Metrics) ObserveSearch(kind string, results int) {
	m.searches.WithLabelValues(kind).Inc()
	m.searchResults.WithLabelValues(kind).Observe(float64(results))
}

// ObserveUpstream records one request to an external collaborator.
func (m *Metrics) ObserveUpstream(service, outcome string) {
	m.upstream.WithLabelValues(service, outcome).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
