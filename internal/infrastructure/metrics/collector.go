package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/asakaida/eurocore/pkg/cache"
	"github.com/asakaida/eurocore/pkg/cache/memorycache"
)

// Collector keeps in-process counters for operations and id resolution.
// Operations are gRPC methods as well as engine calls such as "graph.Evaluate".
type Collector struct {
	opRequests sync.Map // operation -> *uint64
	opErrors   sync.Map // operation -> *uint64
	opDuration sync.Map // operation -> *durationValue

	resolverHits   sync.Map // kind -> *uint64
	resolverMisses sync.Map // kind -> *uint64

	// Cache reference (optional, for querying cache-specific metrics)
	cache cache.Cache
}

type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds cache performance metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	MemoryBytes int64
	Evictions   uint64
}

// OperationMetrics holds per operation counters.
type OperationMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// ResolverMetrics holds id resolution outcomes per kind ("tag", "relation_type").
type ResolverMetrics struct {
	Hits   map[string]uint64
	Misses map[string]uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCache sets the cache instance for collecting cache metrics.
func (c *Collector) SetCache(cache cache.Cache) {
	c.cache = cache
}

// RecordRequest records an operation call.
func (c *Collector) RecordRequest(operation string) {
	atomic.AddUint64(c.counter(&c.opRequests, operation), 1)
}

// RecordError records a failed operation call.
func (c *Collector) RecordError(operation string) {
	atomic.AddUint64(c.counter(&c.opErrors, operation), 1)
}

// RecordDuration adds to the total time spent in an operation.
func (c *Collector) RecordDuration(operation string, durationSeconds float64) {
	val, _ := c.opDuration.LoadOrStore(operation, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// RecordResolverHit records a name resolved from cache.
func (c *Collector) RecordResolverHit(kind string) {
	atomic.AddUint64(c.counter(&c.resolverHits, kind), 1)
}

// RecordResolverMiss records a name that had to be read from the store.
func (c *Collector) RecordResolverMiss(kind string) {
	atomic.AddUint64(c.counter(&c.resolverMisses, kind), 1)
}

// GetCacheMetrics returns current cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	if c.cache == nil {
		return &CacheMetrics{}
	}

	metrics := c.cache.Metrics()
	if metrics == nil {
		return &CacheMetrics{}
	}

	result := &CacheMetrics{
		Hits:      metrics.Hits,
		Misses:    metrics.Misses,
		HitRate:   metrics.HitRate(),
		Evictions: metrics.KeysEvicted,
	}

	// Only the in-process cache knows its footprint
	if memCache, ok := c.cache.(*memorycache.Cache); ok {
		result.KeysCurrent = int64(memCache.Len())
		result.MemoryBytes = memCache.Size()
	}

	return result
}

// GetOperationMetrics returns current operation metrics.
func (c *Collector) GetOperationMetrics() *OperationMetrics {
	result := &OperationMetrics{
		RequestCounts:        snapshot(&c.opRequests),
		ErrorCounts:          snapshot(&c.opErrors),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.opDuration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

// GetResolverMetrics returns current id resolution metrics.
func (c *Collector) GetResolverMetrics() *ResolverMetrics {
	return &ResolverMetrics{
		Hits:   snapshot(&c.resolverHits),
		Misses: snapshot(&c.resolverMisses),
	}
}

func (c *Collector) counter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}

func snapshot(m *sync.Map) map[string]uint64 {
	out := make(map[string]uint64)
	m.Range(func(key, value interface{}) bool {
		out[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return out
}
