// Package metrics exposes ingestion statistics in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/ansuz/internal/ingest"
)

const namespace = "ansuz"

// Metrics records ingestion passes. It implements ingest.Observer.
type Metrics struct {
	registry *prometheus.Registry

	runs         prometheus.Counter
	duration     prometheus.Histogram
	notes        prometheus.Gauge
	journal      prometheus.Gauge
	filesSkipped *prometheus.CounterVec
	rootsSkipped prometheus.Counter
	edges        prometheus.Gauge
	unresolved   prometheus.Gauge
}

var _ ingest.Observer = (*Metrics)(nil)

// New creates a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Completed ingestion passes.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall time of an ingestion pass.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		notes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notes_indexed",
			Help:      "Notes in the current snapshot.",
		}),
		journal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "journal_entries",
			Help:      "Journal entries in the current snapshot.",
		}),
		filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Note files left out of a snapshot, by reason.",
		}, []string{"reason"}),
		rootsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roots_skipped_total",
			Help:      "Content roots that could not be listed.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the current reference graph.",
		}),
		unresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_unresolved_refs",
			Help:      "References in the current snapshot that matched no note.",
		}),
	}
	m.registry.MustRegister(
		m.runs, m.duration, m.notes, m.journal,
		m.filesSkipped, m.rootsSkipped, m.edges, m.unresolved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveIngest implements ingest.Observer.
func (m *Metrics) ObserveIngest(s ingest.Stats) {
	m.runs.Inc()
	m.duration.Observe(s.Duration.Seconds())
	m.notes.Set(float64(s.Notes))
	m.journal.Set(float64(s.Journal))
	m.edges.Set(float64(s.Edges))
	m.unresolved.Set(float64(s.Unresolved))
	m.rootsSkipped.Add(float64(s.RootsSkipped))
	for reason, n := range s.Skipped {
		m.filesSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
