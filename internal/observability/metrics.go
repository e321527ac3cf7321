package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crime_map"

// Metrics holds the Prometheus counters, histograms, and gauges for one batch
// run. Each Metrics owns its registry, so a run (or a test) never collides
// with another.
type Metrics struct {
	Registry *prometheus.Registry

	IncidentsLoaded  *prometheus.CounterVec // labels: source={csv,store,snapshot}
	RowsDropped      prometheus.Counter
	CoordinateGroups *prometheus.GaugeVec // labels: precision

	// Clustering metrics.
	ClusterCache    *prometheus.CounterVec // labels: result={hit,miss,error}
	ClusterRuns     *prometheus.CounterVec // labels: outcome={success,error}
	ClusterDuration prometheus.Histogram

	MapsRendered *prometheus.CounterVec // labels: backend={tiled,marker}, outcome={ok,degraded,empty}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	MessagesExported prometheus.Counter
	RunDuration      prometheus.Gauge
}

// NewMetrics creates all run metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		IncidentsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_loaded_total",
			Help:      "Incidents loaded into the table, by source.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Input rows dropped for missing coordinates.",
		}),
		CoordinateGroups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coordinate_groups",
			Help:      "Distinct coordinate keys produced by the last aggregation, by precision.",
		}, []string{"precision"}),
		ClusterCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_cache_total",
			Help:      "Cluster cache lookups by result.",
		}, []string{"result"}),
		ClusterRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_runs_total",
			Help:      "k-means computations by outcome.",
		}, []string{"outcome"}),
		ClusterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_duration_seconds",
			Help:      "Duration of a k-means computation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MapsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maps_rendered_total",
			Help:      "HTML maps written, by backend and outcome.",
		}, []string{"backend", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		MessagesExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_exported_total",
			Help:      "Aggregate and cluster messages written to Kafka.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last batch run.",
		}),
	}

	m.Registry.MustRegister(
		m.IncidentsLoaded,
		m.RowsDropped,
		m.CoordinateGroups,
		m.ClusterCache,
		m.ClusterRuns,
		m.ClusterDuration,
		m.MapsRendered,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.MessagesExported,
		m.RunDuration,
	)

	return m
}

// WriteTextfile writes the registry in the Prometheus text format, for
// pickup by a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
