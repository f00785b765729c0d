// Package graph evaluates relation queries around a pivot entry.
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// DanglingPolicy decides what happens when a relation points at an entry
// that no longer exists.
type DanglingPolicy int

const (
	// DanglingStrict fails the evaluation with an *entities.InconsistentError
	DanglingStrict DanglingPolicy = iota
	// DanglingSkip ignores the relation and logs a warning
	DanglingSkip
)

func (p DanglingPolicy) String() string {
	if p == DanglingSkip {
		return "skip"
	}
	return "strict"
}

// ParseDanglingPolicy parses "strict" or "skip"
func ParseDanglingPolicy(s string) (DanglingPolicy, error) {
	switch strings.ToLower(s) {
	case "", "strict":
		return DanglingStrict, nil
	case "skip":
		return DanglingSkip, nil
	}
	return DanglingStrict, fmt.Errorf("unknown dangling policy %q", s)
}

// IDResolver turns tag and relation type names into IDs
type IDResolver interface {
	ResolveTagID(ctx context.Context, name string) (int64, error)
	ResolveRelationTypeID(ctx context.Context, name string) (int64, error)
}

// RelationFinder lists the edges of one type around an entry
type RelationFinder interface {
	FindBySourceAndType(ctx context.Context, fromID, relationTypeID int64) ([]*entities.Relation, error)
	FindByTargetAndType(ctx context.Context, toID, relationTypeID int64) ([]*entities.Relation, error)
}

// EntryLookup loads entries with their tags
type EntryLookup interface {
	GetByID(ctx context.Context, id int64) (*entities.Entry, error)
	GetByName(ctx context.Context, name string) (*entities.Entry, error)
}

// Engine evaluates relation queries. It holds no state of its own beyond its
// collaborators and is safe for concurrent use.
type Engine struct {
	resolver  IDResolver
	relations RelationFinder
	entries   EntryLookup

	policy   DanglingPolicy
	logger   *zap.Logger
	recorder *metrics.Recorder
}

// Option configures an Engine
type Option func(*Engine)

// WithDanglingPolicy sets the dangling relation policy (default strict)
func WithDanglingPolicy(policy DanglingPolicy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder reports call durations and outcomes to metrics
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// NewEngine creates a new Engine
func NewEngine(resolver IDResolver, relations RelationFinder, entries EntryLookup, opts ...Option) *Engine {
	e := &Engine{
		resolver:  resolver,
		relations: relations,
		entries:   entries,
		policy:    DanglingStrict,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("graph")

	return e
}

// Evaluate runs every query from the pivot entry and merges the matches into
// one result. For each query it follows the edges of the named relation type
// (backwards when WantSource is set), keeps the neighbours carrying the
// required tag and appends their IDs to the query's category.
//
// Within a category IDs are unique and keep the order in which they were
// first found, across all queries of the call. Every category named by a
// query is present in the result, possibly empty.
//
// The call is all or nothing: on any error the result is nil.
func (e *Engine) Evaluate(ctx context.Context, pivotID int64, queries []entities.RelationQuery) (entities.EvaluationResult, error) {
	start := time.Now()
	result, err := e.evaluate(ctx, pivotID, queries)
	e.recorder.Observe("graph.Evaluate", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EvaluateEntry is Evaluate with the pivot given by entry name
func (e *Engine) EvaluateEntry(ctx context.Context, name string, queries []entities.RelationQuery) (entities.EvaluationResult, error) {
	pivot, err := e.entries.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, pivot.ID, queries)
}

func (e *Engine) evaluate(ctx context.Context, pivotID int64, queries []entities.RelationQuery) (entities.EvaluationResult, error) {
	for i := range queries {
		if err := queries[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid query %d: %w", i, err)
		}
	}

	e.logger.Debug("evaluating relation queries",
		zap.Int64("pivot", pivotID),
		zap.Int("queries", len(queries)),
	)

	result := make(entities.EvaluationResult)
	seen := make(map[string]map[int64]struct{})

	for i := range queries {
		if err := e.evaluateOne(ctx, pivotID, &queries[i], result, seen); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (e *Engine) evaluateOne(
	ctx context.Context,
	pivotID int64,
	query *entities.RelationQuery,
	result entities.EvaluationResult,
	seen map[string]map[int64]struct{},
) error {
	relationTypeID, err := e.resolver.ResolveRelationTypeID(ctx, query.RelationName)
	if err != nil {
		return fmt.Errorf("query %s: %w", query, err)
	}
	tagID, err := e.resolver.ResolveTagID(ctx, query.RequiredTag)
	if err != nil {
		return fmt.Errorf("query %s: %w", query, err)
	}

	category := query.CategoryName
	if _, ok := result[category]; !ok {
		result[category] = []int64{}
		seen[category] = make(map[int64]struct{})
	}

	var relations []*entities.Relation
	if query.WantSource {
		relations, err = e.relations.FindByTargetAndType(ctx, pivotID, relationTypeID)
	} else {
		relations, err = e.relations.FindBySourceAndType(ctx, pivotID, relationTypeID)
	}
	if err != nil {
		return fmt.Errorf("query %s: failed to find relations: %w", query, err)
	}

	for _, relation := range relations {
		candidateID := relation.Neighbour(query.WantSource)
		if _, dup := seen[category][candidateID]; dup {
			continue
		}

		entry, err := e.entries.GetByID(ctx, candidateID)
		if err != nil {
			if !entities.IsNotFound(err) {
				return fmt.Errorf("query %s: failed to load entry %d: %w", query, candidateID, err)
			}
			dangling := &entities.InconsistentError{RelationID: relation.ID, EntryID: candidateID, Err: err}
			if e.policy == DanglingSkip {
				e.logger.Warn("skipping dangling relation",
					zap.Int64("relation", relation.ID),
					zap.Int64("entry", candidateID),
					zap.Stringer("query", query),
				)
				continue
			}
			return dangling
		}

		if !entry.HasTag(tagID) {
			continue
		}
		seen[category][candidateID] = struct{}{}
		result[category] = append(result[category], candidateID)
	}

	return nil
}
