// Package metrics defines the Prometheus collectors exported by the chunks
// service. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chunks"

// Metrics holds the service collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	cacheRequests   *prometheus.CounterVec
	autocreated     prometheus.Counter
	invalidations   *prometheus.CounterVec
	overlayFailures prometheus.Counter
	eventsPublished *prometheus.CounterVec
	syncWrites      *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache operations by key kind and result.",
		}, []string{"kind", "result"}),
		autocreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autocreated_total",
			Help:      "Global chunks created on first lookup.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Cache invalidations by chunk kind.",
		}, []string{"kind"}),
		overlayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_failures_total",
			Help:      "Responses where the edit overlay was omitted.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Change events published by topic and result.",
		}, []string{"topic", "result"}),
		syncWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_writes_total",
			Help:      "Backup writes by destination and result (ok, error, unchanged).",
		}, []string{"destination", "result"}),
	}
	reg.MustRegister(
		m.cacheRequests,
		m.autocreated,
		m.invalidations,
		m.overlayFailures,
		m.eventsPublished,
		m.syncWrites,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheRequest(kind, result string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.cacheRequests.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Autocreated() {
	if m == nil {
		return
	}
	m.autocreated.Inc()
}

func (m *Metrics) Invalidated(kind string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(kind).Inc()
}

func (m *Metrics) OverlayFailed() {
	if m == nil {
		return
	}
	m.overlayFailures.Inc()
}

func (m *Metrics) EventPublished(topic string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) SyncWrite(destination, result string) {
	if m == nil {
		return
	}
	m.syncWrites.WithLabelValues(destination, result).Inc()
}
