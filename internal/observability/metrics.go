package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sightings_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the enrichment pipeline.
type Metrics struct {
	PagesRequested   prometheus.Counter
	PageFailures     prometheus.Counter
	RecordsCollected prometheus.Counter
	PointsNormalized prometheus.Counter
	PointsDropped    prometheus.Counter
	PipelineRunning  prometheus.Gauge
	LastRunSuccess   prometheus.Gauge

	// Join metrics.
	JoinResults *prometheus.CounterVec // labels: outcome={matched,unmatched}

	// Timing metrics.
	RequestDuration *prometheus.HistogramVec // labels: source={observations,boundaries}
	StageDuration   *prometheus.HistogramVec // labels: stage
	RunDuration     prometheus.Histogram

	// Sink metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Gatherer returns a registry holding only these metrics, for writing a
// textfile snapshot independent of the default registry.
func (m *Metrics) Gatherer() (prometheus.Gatherer, error) {
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PagesRequested,
		m.PageFailures,
		m.RecordsCollected,
		m.PointsNormalized,
		m.PointsDropped,
		m.PipelineRunning,
		m.LastRunSuccess,
		m.JoinResults,
		m.RequestDuration,
		m.StageDuration,
		m.RunDuration,
		m.RecordsPublished,
		m.PublishErrors,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		PagesRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_requested_total",
			Help:      "Total observation pages requested, excluding the initial count request.",
		}),
		PageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "Total observation pages skipped after a failed request.",
		}),
		RecordsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_collected_total",
			Help:      "Total raw observation records collected.",
		}),
		PointsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_normalized_total",
			Help:      "Total observations normalized into points.",
		}),
		PointsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_dropped_total",
			Help:      "Total observations dropped for lacking usable geometry.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the most recent run produced its artifacts, 0 if it failed.",
		}),
		JoinResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_results_total",
			Help:      "Spatial join results by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Remote source request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Total enriched records published to the event sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed attempts to publish to the event sink.",
		}),
	}
}
