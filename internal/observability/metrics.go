package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the render pipeline.
type Metrics struct {
	FeaturesFetched  prometheus.Counter
	FeaturesSkipped  prometheus.Counter
	MarkersRendered  prometheus.Counter
	FetchErrors      prometheus.Counter
	LoadErrors       prometheus.Counter
	PipelineRunning  prometheus.Gauge
	LastSuccessEpoch prometheus.Gauge

	FetchDuration prometheus.Histogram
	PassDuration  prometheus.Histogram

	// Markers in the current snapshot, by fill color.
	MarkersByColor *prometheus.GaugeVec // labels: color

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FeaturesFetched,
		m.FeaturesSkipped,
		m.MarkersRendered,
		m.FetchErrors,
		m.LoadErrors,
		m.PipelineRunning,
		m.LastSuccessEpoch,
		m.FetchDuration,
		m.PassDuration,
		m.MarkersByColor,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "features_fetched_total",
			Help:      "Total features decoded from the USGS feed.",
		}),
		FeaturesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "features_skipped_total",
			Help:      "Total malformed features skipped.",
		}),
		MarkersRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "markers_rendered_total",
			Help:      "Total markers produced by classification passes.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "fetch_errors_total",
			Help:      "Total failed feed fetches.",
		}),
		LoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "load_errors_total",
			Help:      "Total failures handing a snapshot to a loader.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "pipeline_running",
			Help:      "1 while the scheduled refresh loop is active, 0 otherwise.",
		}),
		LastSuccessEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful classification pass.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakemap",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the USGS feed request including decode.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakemap",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a complete fetch-classify-load pass.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MarkersByColor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "snapshot_markers",
			Help:      "Markers in the current snapshot by depth color.",
		}, []string{"color"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakemap",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "geocode_enabled",
			Help:      "1 when place enrichment is enabled, 0 otherwise.",
		}),
	}
}
