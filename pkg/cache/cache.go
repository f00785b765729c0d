// Package cache defines the name to ID cache used by the resolver.
package cache

import "context"

// Cache maps resolution keys (e.g. "tag:Team") to entity IDs.
// Expiry is a property of the cache, not of individual writes.
type Cache interface {
	// Get retrieves an ID from cache.
	// Returns the ID and true if found, or 0 and false if not found.
	// Backend failures are reported as misses.
	Get(ctx context.Context, key string) (int64, bool)

	// Set stores an ID in cache.
	Set(ctx context.Context, key string, id int64) error

	// Delete removes a key from cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from cache.
	Clear(ctx context.Context) error

	// Close releases resources held by the cache.
	Close() error

	// Metrics returns cache statistics.
	Metrics() *Metrics
}

// Metrics holds cache performance statistics.
type Metrics struct {
	// Hits is the number of cache hits
	Hits uint64

	// Misses is the number of cache misses
	Misses uint64

	// KeysAdded is the number of keys added to cache
	KeysAdded uint64

	// KeysEvicted is the number of keys evicted from cache
	KeysEvicted uint64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (m *Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}
