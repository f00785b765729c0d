package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLSTATE codes mapped onto domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// tableDef describes how a named entity kind maps onto a table.
// Every table has a BIGSERIAL "id" primary key and a unique "name" column.
type tableDef[T any] struct {
	kind    string
	table   string
	columns []string // writable columns, "id" excluded
	values  func(item *T) []interface{}
	id      func(item *T) int64
	setID   func(item *T, id int64)
	name    func(item *T) string
	check   func(item *T) error
}

// namedTable implements repositories.Store for any kind described by a tableDef.
type namedTable[T any] struct {
	db  *sqlx.DB
	def tableDef[T]
}

func newNamedTable[T any](db *sqlx.DB, def tableDef[T]) *namedTable[T] {
	return &namedTable[T]{db: db, def: def}
}

func (t *namedTable[T]) selectColumns() []string {
	return append([]string{"id"}, t.def.columns...)
}

// GetByID retrieves a row by its ID
func (t *namedTable[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(t.selectColumns()...)
	sb.From(t.def.table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var item T
	if err := t.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.NewNotFoundByID(t.def.kind, id)
		}
		return nil, fmt.Errorf("failed to get %s by ID: %w", t.def.kind, err)
	}

	return &item, nil
}

// GetByName retrieves a row by its unique name
func (t *namedTable[T]) GetByName(ctx context.Context, name string) (*T, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(t.selectColumns()...)
	sb.From(t.def.table)
	sb.Where(sb.Equal("name", name))

	query, args := sb.Build()

	var item T
	if err := t.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.NewNotFoundByName(t.def.kind, name)
		}
		return nil, fmt.Errorf("failed to get %s by name: %w", t.def.kind, err)
	}

	return &item, nil
}

// Create inserts a row and returns it with its ID assigned
func (t *namedTable[T]) Create(ctx context.Context, item *T) (*T, error) {
	if err := t.validate(item); err != nil {
		return nil, err
	}
	return t.insert(ctx, t.db, item)
}

func (t *namedTable[T]) insert(ctx context.Context, q sqlx.QueryerContext, item *T) (*T, error) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(t.def.table)
	ib.Cols(t.def.columns...)
	ib.Values(t.def.values(item)...)
	ib.Returning("id")

	query, args := ib.Build()

	var id int64
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return nil, entities.NewConflict(t.def.kind, t.def.name(item))
		}
		return nil, fmt.Errorf("failed to create %s: %w", t.def.kind, err)
	}

	created := *item
	t.def.setID(&created, id)
	return &created, nil
}

// Update overwrites the writable columns of an existing row
func (t *namedTable[T]) Update(ctx context.Context, item *T) (*T, error) {
	if err := t.validate(item); err != nil {
		return nil, err
	}
	id := t.def.id(item)
	values := t.def.values(item)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(t.def.table)
	assignments := make([]string, 0, len(t.def.columns))
	for i, col := range t.def.columns {
		assignments = append(assignments, ub.Assign(col, values[i]))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, entities.NewConflict(t.def.kind, t.def.name(item))
		}
		return nil, fmt.Errorf("failed to update %s: %w", t.def.kind, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, entities.NewNotFoundByID(t.def.kind, id)
	}

	return t.GetByID(ctx, id)
}

// Delete removes a row and returns what was removed
func (t *namedTable[T]) Delete(ctx context.Context, id int64) (*T, error) {
	existing, err := t.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(t.def.table)
	db.Where(db.Equal("id", id))

	query, args := db.Build()

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return nil, entities.NewInUse(t.def.kind, id)
		}
		return nil, fmt.Errorf("failed to delete %s: %w", t.def.kind, err)
	}

	return existing, nil
}

// List returns all rows ordered by ID
func (t *namedTable[T]) List(ctx context.Context) ([]*T, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(t.selectColumns()...)
	sb.From(t.def.table)
	sb.OrderBy("id").Asc()

	query, args := sb.Build()

	var items []*T
	if err := t.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.def.kind, err)
	}

	return items, nil
}

func (t *namedTable[T]) validate(item *T) error {
	if t.def.check == nil {
		return nil
	}
	if err := t.def.check(item); err != nil {
		return fmt.Errorf("invalid %s: %w", t.def.kind, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
