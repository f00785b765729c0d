package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asakaida/eurocore/pkg/cache/memorycache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Observe(t *testing.T) {
	collector := NewCollector()
	recorder := NewRecorder(collector, nil)

	recorder.Observe("graph.Evaluate", time.Now(), nil)
	recorder.Observe("graph.Evaluate", time.Now(), errors.New("boom"))

	m := collector.GetOperationMetrics()
	if m.RequestCounts["graph.Evaluate"] != 2 {
		t.Errorf("expected 2 requests, got %d", m.RequestCounts["graph.Evaluate"])
	}
	if m.ErrorCounts["graph.Evaluate"] != 1 {
		t.Errorf("expected 1 error, got %d", m.ErrorCounts["graph.Evaluate"])
	}
}

func TestRecorder_Nil(t *testing.T) {
	var recorder *Recorder
	recorder.Observe("graph.Evaluate", time.Now(), nil)
	recorder.ResolverHit("tag")
	recorder.ResolverMiss("tag")
}

func TestRecorder_Resolver(t *testing.T) {
	collector := NewCollector()
	exporter := NewPrometheusExporter(collector, prometheus.NewRegistry())
	recorder := NewRecorder(collector, exporter)

	recorder.ResolverMiss("tag")
	recorder.ResolverHit("tag")
	recorder.ResolverHit("tag")
	recorder.ResolverMiss("relation_type")

	m := collector.GetResolverMetrics()
	if m.Hits["tag"] != 2 || m.Misses["tag"] != 1 || m.Misses["relation_type"] != 1 {
		t.Errorf("unexpected resolver metrics: %+v", m)
	}
	if got := testutil.ToFloat64(exporter.resolverLookups.WithLabelValues("tag", "hit")); got != 2 {
		t.Errorf("expected 2 exported hits, got %v", got)
	}
}

func TestCollector_CacheMetrics(t *testing.T) {
	collector := NewCollector()
	if m := collector.GetCacheMetrics(); m.Hits != 0 || m.KeysCurrent != 0 {
		t.Errorf("expected empty metrics without cache, got %+v", m)
	}

	c := memorycache.New(&memorycache.Config{MaxSizeBytes: 1024, EnableMetrics: true})
	collector.SetCache(c)

	ctx := context.Background()
	c.Set(ctx, "tag:Team", 1)
	c.Get(ctx, "tag:Team")
	c.Get(ctx, "tag:Robot")

	m := collector.GetCacheMetrics()
	if m.Hits != 1 || m.Misses != 1 || m.KeysCurrent != 1 || m.MemoryBytes == 0 {
		t.Errorf("unexpected cache metrics: %+v", m)
	}
	if m.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", m.HitRate)
	}

	exporter := NewPrometheusExporter(collector, prometheus.NewRegistry())
	exporter.Update()
	if got := testutil.ToFloat64(exporter.cacheKeys); got != 1 {
		t.Errorf("expected 1 exported key, got %v", got)
	}
}
