// Package rediscache shares resolved IDs between processes through Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/asakaida/eurocore/pkg/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPrefix namespaces every key this cache writes.
const DefaultPrefix = "eurocore:ids:"

// Config holds Redis connection and cache configuration
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Clear only removes keys under it.
	Prefix string

	// TTL is how long an entry lives. Zero keeps entries forever.
	TTL time.Duration

	EnableMetrics bool
}

// Cache implements cache.Cache on Redis
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	metrics     bool
	hits        atomic.Uint64
	misses      atomic.Uint64
	keysAdded   atomic.Uint64
	keysEvicted atomic.Uint64
}

// New connects to Redis and verifies the connection
func New(cfg *Config, logger *zap.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return NewWithClient(rdb, cfg, logger), nil
}

// NewWithClient builds the cache on an existing client. The cache owns rdb afterwards.
func NewWithClient(rdb *redis.Client, cfg *Config, logger *zap.Logger) *Cache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		rdb:     rdb,
		prefix:  prefix,
		ttl:     max(cfg.TTL, 0),
		logger:  logger.Named("rediscache"),
		metrics: cfg.EnableMetrics,
	}
}

// Get retrieves an ID. Redis errors are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, key string) (int64, bool) {
	id, err := c.rdb.Get(ctx, c.prefix+key).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.count(&c.misses)
		return 0, false
	}

	c.count(&c.hits)
	return id, true
}

// Set stores an ID
func (c *Cache) Set(ctx context.Context, key string, id int64) error {
	if err := c.rdb.Set(ctx, c.prefix+key, id, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	c.count(&c.keysAdded)
	return nil
}

// Delete removes a key
func (c *Cache) Delete(ctx context.Context, key string) error {
	n, err := c.rdb.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if n > 0 {
		c.count(&c.keysEvicted)
	}
	return nil
}

// Clear removes every key under the prefix
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache: %w", err)
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Metrics returns cache statistics counted by this process
func (c *Cache) Metrics() *cache.Metrics {
	return &cache.Metrics{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		KeysAdded:   c.keysAdded.Load(),
		KeysEvicted: c.keysEvicted.Load(),
	}
}

func (c *Cache) count(counter *atomic.Uint64) {
	if c.metrics {
		counter.Add(1)
	}
}

var _ cache.Cache = (*Cache)(nil)
