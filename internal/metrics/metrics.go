// Package metrics provides Prometheus metrics for weft.
//
// Collectors live on a private registry so tests and embedding
// programs never collide with the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for weft.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Ingest metrics
	IngestsTotal   *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	NodesWritten   prometheus.Counter

	// Search metrics
	SearchesTotal *prometheus.CounterVec
	SearchResults prometheus.Histogram

	// Render metrics
	RendersTotal      *prometheus.CounterVec
	PlaceholdersTotal prometheus.Counter
	TruncationsTotal  prometheus.Counter

	// Watch metrics
	WatchEventsTotal *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		IngestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_ingests_total",
				Help: "Total number of document ingests by outcome",
			},
			[]string{"outcome"},
		),
		IngestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "weft_ingest_duration_seconds",
				Help:    "Duration of document ingests in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		NodesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "weft_nodes_written_total",
				Help: "Total number of nodes written, including document roots",
			},
		),

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_searches_total",
				Help: "Total number of search queries by status",
			},
			[]string{"status"},
		),
		SearchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "weft_search_results",
				Help:    "Number of hits returned per search",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),

		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_renders_total",
				Help: "Total number of renders by mode",
			},
			[]string{"mode"},
		),
		PlaceholdersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "weft_placeholders_total",
				Help: "Total number of placeholders emitted by filtered renders",
			},
		),
		TruncationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "weft_render_truncations_total",
				Help: "Total number of renders stopped by their byte budget",
			},
		),

		WatchEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_watch_events_total",
				Help: "Total number of filesystem changes handled by type",
			},
			[]string{"type"},
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest records one ingest outcome ("created", "skipped",
// "replaced" or "failed").
func (m *Metrics) ObserveIngest(outcome string, d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.IngestsTotal.WithLabelValues(outcome).Inc()
	m.IngestDuration.Observe(d.Seconds())
	m.NodesWritten.Add(float64(nodes))
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(err error, hits int) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SearchesTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.SearchResults.Observe(float64(hits))
	}
}

// ObserveRender records one render ("full", "filtered" or "expand").
func (m *Metrics) ObserveRender(mode string, placeholders int, truncated bool) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(mode).Inc()
	m.PlaceholdersTotal.Add(float64(placeholders))
	if truncated {
		m.TruncationsTotal.Inc()
	}
}

// ObserveWatchEvent records one handled filesystem change.
func (m *Metrics) ObserveWatchEvent(changeType string) {
	if m == nil {
		return
	}
	m.WatchEventsTotal.WithLabelValues(changeType).Inc()
}
