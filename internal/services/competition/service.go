// Package competition builds the robot and team projections on top of the
// entry graph.
package competition

import (
	"context"
	"fmt"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/infrastructure/metrics"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/asakaida/eurocore/internal/services/graph"
	"go.uber.org/zap"
)

// Evaluator runs relation queries around a pivot entry
type Evaluator interface {
	Evaluate(ctx context.Context, pivotID int64, queries []entities.RelationQuery) (entities.EvaluationResult, error)
}

// Option configures a projection service
type Option func(*base)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRecorder reports call durations and outcomes to metrics
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(b *base) {
		b.recorder = recorder
	}
}

// base holds what the robot and team services share.
type base struct {
	repos    *repositories.Registry
	ids      graph.IDResolver
	engine   Evaluator
	logger   *zap.Logger
	recorder *metrics.Recorder
}

func newBase(repos *repositories.Registry, ids graph.IDResolver, engine Evaluator, name string, opts []Option) base {
	b := base{
		repos:  repos,
		ids:    ids,
		engine: engine,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.Named(name)
	return b
}

// createTagged creates an entry carrying the named tag.
func (b *base) createTagged(ctx context.Context, name, description, tag string) (*entities.Entry, error) {
	tagID, err := b.ids.ResolveTagID(ctx, tag)
	if err != nil {
		return nil, err
	}
	return b.repos.Entries.Create(ctx, &entities.Entry{
		Name:        name,
		Description: description,
		TagIDs:      []int64{tagID},
	})
}

// link creates one edge of the named type per (from, to) pair.
func (b *base) link(ctx context.Context, relationName string, pairs [][2]int64) error {
	if len(pairs) == 0 {
		return nil
	}
	typeID, err := b.ids.ResolveRelationTypeID(ctx, relationName)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		_, err := b.repos.Relations.Create(ctx, &entities.Relation{
			RelationTypeID: typeID,
			FromID:         p[0],
			ToID:           p[1],
		})
		if err != nil {
			return fmt.Errorf("failed to create %s relation %d -> %d: %w", relationName, p[0], p[1], err)
		}
	}
	return nil
}

// checkLinks makes sure link would find the relation type and every target,
// so a caller can fail before its first write.
func (b *base) checkLinks(ctx context.Context, relationName string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := b.ids.ResolveRelationTypeID(ctx, relationName); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := b.repos.Entries.GetByID(ctx, id); err != nil {
			return fmt.Errorf("failed to get %s target %d: %w", relationName, id, err)
		}
	}
	return nil
}

// undoCreate removes a half created entry and its relations. Failures are
// only logged, the caller already reports the original error.
func (b *base) undoCreate(ctx context.Context, entryID int64) {
	if _, err := b.repos.Relations.DeleteByEntry(ctx, entryID); err != nil {
		b.logger.Error("failed to remove relations of half created entry", zap.Int64("entry", entryID), zap.Error(err))
	}
	if _, err := b.repos.Entries.Delete(ctx, entryID); err != nil {
		b.logger.Error("failed to remove half created entry", zap.Int64("entry", entryID), zap.Error(err))
	}
}

func outgoing(from int64, to []int64) [][2]int64 {
	pairs := make([][2]int64, 0, len(to))
	for _, id := range to {
		pairs = append(pairs, [2]int64{from, id})
	}
	return pairs
}

func incoming(to int64, from []int64) [][2]int64 {
	pairs := make([][2]int64, 0, len(from))
	for _, id := range from {
		pairs = append(pairs, [2]int64{id, to})
	}
	return pairs
}
