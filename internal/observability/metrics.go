package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "exposure_keys"

// Metrics holds the Prometheus counters, histograms, and gauges for the keys pipeline.
type Metrics struct {
	LocationsRead    prometheus.Counter
	LocationsEmitted prometheus.Counter
	LocationsSkipped *prometheus.CounterVec // labels: reason={-1,-2,-3}
	PipelineRunning  prometheus.Gauge

	// Resolution and disaggregation.
	AreaPerilMatches *prometheus.CounterVec // labels: level={CRSL1..CRSL7,CRSVG,unresolved}
	Disaggregations  *prometheus.CounterVec // labels: reason={100,101,102}
	PartitionCache   *prometheus.CounterVec // labels: result={hit,miss}

	// Keys lookup.
	KeyResults *prometheus.CounterVec // labels: status={success,failed}

	StageDuration *prometheus.HistogramVec // labels: stage={extract,preanalysis,renumber,keys,load}
	LoadRetries   prometheus.Counter
	ReferenceRows *prometheus.GaugeVec // labels: table
}

func newMetrics() *Metrics {
	return &Metrics{
		LocationsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locations_read_total",
			Help:      "Total location rows read from the input file.",
		}),
		LocationsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locations_emitted_total",
			Help:      "Total location rows written after disaggregation.",
		}),
		LocationsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locations_skipped_total",
			Help:      "Locations excluded from modelling by skip code.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		AreaPerilMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "area_peril_matches_total",
			Help:      "Area-peril resolutions by the level that matched.",
		}, []string{"level"}),
		Disaggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disaggregations_total",
			Help:      "Locations split by disaggregation reason code.",
		}, []string{"reason"}),
		PartitionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partition_cache_total",
			Help:      "Partition cache lookups by result.",
		}, []string{"result"}),
		KeyResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_results_total",
			Help:      "Key results produced by status.",
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		LoadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_retries_total",
			Help:      "Loader attempts retried after a failure.",
		}),
		ReferenceRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reference_rows",
			Help:      "Rows loaded per reference table.",
		}, []string{"table"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.LocationsRead,
		m.LocationsEmitted,
		m.LocationsSkipped,
		m.PipelineRunning,
		m.AreaPerilMatches,
		m.Disaggregations,
		m.PartitionCache,
		m.KeyResults,
		m.StageDuration,
		m.LoadRetries,
		m.ReferenceRows,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
