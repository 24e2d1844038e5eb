package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi_advisory"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	ReadingsConsumed   prometheus.Counter
	AdvisoriesProduced prometheus.Counter
	TransformErrors    prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Classification outcomes.
	AdvisoriesByCategory *prometheus.CounterVec // labels: category, unsafe={true,false}

	// Air quality provider metrics.
	ProviderRequests    *prometheus.CounterVec   // labels: method={current,forecast}, outcome={success,error,empty}
	ProviderCache       *prometheus.CounterVec   // labels: method={current,forecast}, result={hit,miss}
	ProviderAPIDuration *prometheus.HistogramVec // labels: method={current,forecast}
	ProviderEnabled     prometheus.Gauge

	// History store.
	HistoryWrites *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with no registration to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_consumed_total",
			Help:      "Total readings read from the source topic.",
		}),
		AdvisoriesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisories_produced_total",
			Help:      "Total advisories written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total readings that could not be classified.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of readings per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AdvisoriesByCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisories_by_category_total",
			Help:      "Advisories produced by AQI category and unsafe flag.",
		}, []string{"category", "unsafe"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Air quality provider requests by method and outcome.",
		}, []string{"method", "outcome"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cache_total",
			Help:      "Air quality cache lookups by method and result.",
		}, []string{"method", "result"}),
		ProviderAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_api_duration_seconds",
			Help:      "Air quality API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		ProviderEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_enabled",
			Help:      "1 when the air quality provider is enabled, 0 otherwise.",
		}),
		HistoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "History store batch writes by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReadingsConsumed,
		m.AdvisoriesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AdvisoriesByCategory,
		m.ProviderRequests,
		m.ProviderCache,
		m.ProviderAPIDuration,
		m.ProviderEnabled,
		m.HistoryWrites,
	}
}
