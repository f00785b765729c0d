package metrics

import "time"

// Recorder fans events out to the collector and, when present, the exporter.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	collector *Collector
	exporter  *PrometheusExporter
}

// NewRecorder creates a recorder. exporter may be nil.
func NewRecorder(collector *Collector, exporter *PrometheusExporter) *Recorder {
	return &Recorder{collector: collector, exporter: exporter}
}

// Observe records one call of an operation that started at start.
func (r *Recorder) Observe(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	duration := time.Since(start).Seconds()

	r.collector.RecordRequest(operation)
	r.collector.RecordDuration(operation, duration)
	if err != nil {
		r.collector.RecordError(operation)
	}

	if r.exporter == nil {
		return
	}
	r.exporter.RecordRequest(operation)
	r.exporter.RecordDuration(operation, duration)
	if err != nil {
		r.exporter.RecordError(operation)
	}
}

// ResolverHit records a name resolved from cache.
func (r *Recorder) ResolverHit(kind string) {
	if r == nil {
		return
	}
	r.collector.RecordResolverHit(kind)
	if r.exporter != nil {
		r.exporter.RecordResolverHit(kind)
	}
}

// ResolverMiss records a name read from the store.
func (r *Recorder) ResolverMiss(kind string) {
	if r == nil {
		return
	}
	r.collector.RecordResolverMiss(kind)
	if r.exporter != nil {
		r.exporter.RecordResolverMiss(kind)
	}
}
