// Package memorycache is an in-process LRU implementation of cache.Cache.
package memorycache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/asakaida/eurocore/pkg/cache"
)

// entrySize is the approximate footprint of one entry excluding its key.
const entrySize = 64

type entry struct {
	key       string
	id        int64
	expiresAt time.Time // zero means never
	size      int64
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache implements an LRU cache with optional expiry.
type Cache struct {
	mu sync.Mutex

	items     map[string]*list.Element
	evictList *list.List // front = most recently used

	maxSize     int64
	ttl         time.Duration
	currentSize int64

	metrics *cache.Metrics
	now     func() time.Time
}

// Config holds configuration for the memory cache.
type Config struct {
	// MaxSizeBytes bounds the approximate memory held by entries.
	// Least recently used entries are evicted beyond it. Zero means unbounded.
	MaxSizeBytes int64

	// TTL is how long an entry lives. Zero or less keeps entries until evicted.
	TTL time.Duration

	// EnableMetrics enables collection of cache metrics.
	EnableMetrics bool
}

// New creates a new memory cache with the given configuration.
func New(config *Config) *Cache {
	c := &Cache{
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		maxSize:   config.MaxSizeBytes,
		ttl:       config.TTL,
		now:       time.Now,
	}

	if config.EnableMetrics {
		c.metrics = &cache.Metrics{}
	}

	return c
}

// Get retrieves an ID from cache.
func (c *Cache) Get(ctx context.Context, key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.miss()
		return 0, false
	}

	ent := elem.Value.(*entry)
	if ent.expired(c.now()) {
		c.removeElement(elem)
		c.miss()
		return 0, false
	}

	c.evictList.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.Hits++
	}
	return ent.id, true
}

// Set stores an ID in cache.
func (c *Cache) Set(ctx context.Context, key string, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, exists := c.items[key]; exists {
		ent := elem.Value.(*entry)
		ent.id = id
		ent.expiresAt = expiresAt
		c.evictList.MoveToFront(elem)
		return nil
	}

	ent := &entry{
		key:       key,
		id:        id,
		expiresAt: expiresAt,
		size:      int64(entrySize + len(key)),
	}
	c.items[key] = c.evictList.PushFront(ent)
	c.currentSize += ent.size

	if c.metrics != nil {
		c.metrics.KeysAdded++
	}

	for c.maxSize > 0 && c.currentSize > c.maxSize && c.evictList.Len() > 1 {
		c.removeElement(c.evictList.Back())
		if c.metrics != nil {
			c.metrics.KeysEvicted++
		}
	}

	return nil
}

// Delete removes a key from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}

	return nil
}

// Clear removes all entries from cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
	c.currentSize = 0

	return nil
}

// Close is a no-op for the memory cache.
func (c *Cache) Close() error {
	return nil
}

// Metrics returns a snapshot of cache statistics.
func (c *Cache) Metrics() *cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		return &cache.Metrics{}
	}
	snapshot := *c.metrics
	return &snapshot
}

// Len returns the current number of items in cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the current approximate size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.Misses++
	}
}

// removeElement must be called with the lock held.
func (c *Cache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
	c.currentSize -= ent.size
}

var _ cache.Cache = (*Cache)(nil)
