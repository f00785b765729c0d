package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
	resolverLookups  *prometheus.CounterVec
	opRequests       *prometheus.CounterVec
	opDuration       *prometheus.HistogramVec
	opErrors         *prometheus.CounterVec
}

// NewPrometheusExporter creates an exporter registering its metrics on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	factory := promauto.With(reg)

	return &PrometheusExporter{
		collector: collector,
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eurocore_resolver_cache_hit_rate",
			Help: "Current id cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eurocore_resolver_cache_keys_current",
			Help: "Current number of keys in the in-process id cache",
		}),
		cacheMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eurocore_resolver_cache_memory_bytes",
			Help: "Approximate memory held by the in-process id cache",
		}),
		resolverLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eurocore_resolver_lookups_total",
				Help: "Name to ID resolutions by kind and outcome (hit or miss)",
			},
			[]string{"kind", "outcome"},
		),
		opRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eurocore_operation_requests_total",
				Help: "Total number of operation calls",
			},
			[]string{"operation"},
		),
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eurocore_operation_duration_seconds",
				Help:    "Duration of operation calls in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"operation"},
		),
		opErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eurocore_operation_errors_total",
				Help: "Total number of failed operation calls",
			},
			[]string{"operation"},
		),
	}
}

// Update refreshes the gauges from the collector.
// Counters are updated as events happen, so only gauges are touched here.
// This should be called periodically (e.g., every 10 seconds).
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheMemoryBytes.Set(float64(cacheMetrics.MemoryBytes))
}

// RecordRequest records an operation call.
func (e *PrometheusExporter) RecordRequest(operation string) {
	e.opRequests.WithLabelValues(operation).Inc()
}

// RecordDuration records the duration of an operation call.
func (e *PrometheusExporter) RecordDuration(operation string, durationSeconds float64) {
	e.opDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordError records a failed operation call.
func (e *PrometheusExporter) RecordError(operation string) {
	e.opErrors.WithLabelValues(operation).Inc()
}

// RecordResolverHit records a name resolved from cache.
func (e *PrometheusExporter) RecordResolverHit(kind string) {
	e.resolverLookups.WithLabelValues(kind, "hit").Inc()
}

// RecordResolverMiss records a name read from the store.
func (e *PrometheusExporter) RecordResolverMiss(kind string) {
	e.resolverLookups.WithLabelValues(kind, "miss").Inc()
}
