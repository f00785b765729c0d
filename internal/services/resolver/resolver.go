// Package resolver maps tag and relation type names to their IDs.
//
// Names never change once created, so resolved IDs are cached and, by default,
// never expire. Callers that rename or delete a tag or relation type call
// ForgetTag or ForgetRelationType.
package resolver

import (
	"context"
	"fmt"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/infrastructure/metrics"
	"github.com/asakaida/eurocore/pkg/cache"
	"github.com/asakaida/eurocore/pkg/cache/memorycache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key namespaces, also used as metric labels.
const (
	KindTag          = "tag"
	KindRelationType = "relation_type"
)

// TagStore is the tag lookup the resolver needs
type TagStore interface {
	GetByName(ctx context.Context, name string) (*entities.Tag, error)
}

// RelationTypeStore is the relation type lookup the resolver needs
type RelationTypeStore interface {
	GetByName(ctx context.Context, name string) (*entities.RelationType, error)
}

// Resolver resolves names through a cache. It is safe for concurrent use;
// concurrent misses on the same key share one store lookup.
type Resolver struct {
	tags          TagStore
	relationTypes RelationTypeStore
	cache         cache.Cache
	group         singleflight.Group

	recorder *metrics.Recorder
	logger   *zap.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder reports hits and misses to metrics
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(r *Resolver) {
		r.recorder = recorder
	}
}

// New creates a resolver. A nil cache gets an unbounded in-process cache.
func New(tags TagStore, relationTypes RelationTypeStore, c cache.Cache, opts ...Option) *Resolver {
	if c == nil {
		c = memorycache.New(&memorycache.Config{})
	}

	r := &Resolver{
		tags:          tags,
		relationTypes: relationTypes,
		cache:         c,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("resolver")

	return r
}

// Key returns the cache key of a name
func Key(kind, name string) string {
	return kind + ":" + name
}

// ResolveTagID returns the ID of the tag with the given name
func (r *Resolver) ResolveTagID(ctx context.Context, name string) (int64, error) {
	return r.resolve(ctx, KindTag, name, func(ctx context.Context) (int64, error) {
		tag, err := r.tags.GetByName(ctx, name)
		if err != nil {
			return 0, err
		}
		return tag.ID, nil
	})
}

// ResolveRelationTypeID returns the ID of the relation type with the given name
func (r *Resolver) ResolveRelationTypeID(ctx context.Context, name string) (int64, error) {
	return r.resolve(ctx, KindRelationType, name, func(ctx context.Context) (int64, error) {
		relationType, err := r.relationTypes.GetByName(ctx, name)
		if err != nil {
			return 0, err
		}
		return relationType.ID, nil
	})
}

// ForgetTag drops the cached ID of a tag
func (r *Resolver) ForgetTag(ctx context.Context, name string) error {
	return r.forget(ctx, Key(KindTag, name))
}

// ForgetRelationType drops the cached ID of a relation type
func (r *Resolver) ForgetRelationType(ctx context.Context, name string) error {
	return r.forget(ctx, Key(KindRelationType, name))
}

func (r *Resolver) forget(ctx context.Context, key string) error {
	r.group.Forget(key)
	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}

// resolve serves key from cache or loads it once. Misses are not cached, so
// a name created later resolves on the next call.
func (r *Resolver) resolve(ctx context.Context, kind, name string, load func(context.Context) (int64, error)) (int64, error) {
	key := Key(kind, name)

	if id, ok := r.cache.Get(ctx, key); ok {
		r.recorder.ResolverHit(kind)
		return id, nil
	}
	r.recorder.ResolverMiss(kind)

	// the lookup outlives the caller that started it, other callers may be
	// waiting on the same flight
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		id, err := load(flightCtx)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(flightCtx, key, id); err != nil {
			// the ID is still good, the next call just pays the lookup again
			r.logger.Warn("failed to cache resolved id", zap.String("key", key), zap.Error(err))
		}
		return id, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return 0, res.Err
	}

	id := res.Val.(int64)
	r.logger.Debug("resolved", zap.String("key", key), zap.Int64("id", id), zap.Bool("shared", res.Shared))
	return id, nil
}
