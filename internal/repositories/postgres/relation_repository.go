package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

var relationColumns = []string{"id", "relation_type_id", "from_id", "to_id", "created_at"}

// PostgresRelationRepository implements RelationRepository using PostgreSQL
type PostgresRelationRepository struct {
	db            *sqlx.DB
	entries       *namedTable[entities.Entry]
	relationTypes *namedTable[entities.RelationType]
}

// NewPostgresRelationRepository creates a new PostgreSQL relation repository
func NewPostgresRelationRepository(db *sqlx.DB) repositories.RelationRepository {
	return &PostgresRelationRepository{
		db:            db,
		entries:       newEntryTable(db),
		relationTypes: newRelationTypeTable(db),
	}
}

// Create inserts a relation after checking that both endpoints and the type exist
func (r *PostgresRelationRepository) Create(ctx context.Context, relation *entities.Relation) (*entities.Relation, error) {
	if err := relation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relation: %w", err)
	}
	if _, err := r.relationTypes.GetByID(ctx, relation.RelationTypeID); err != nil {
		return nil, err
	}
	if _, err := r.entries.GetByID(ctx, relation.FromID); err != nil {
		return nil, err
	}
	if _, err := r.entries.GetByID(ctx, relation.ToID); err != nil {
		return nil, err
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("relations")
	ib.Cols("relation_type_id", "from_id", "to_id")
	ib.Values(relation.RelationTypeID, relation.FromID, relation.ToID)
	ib.Returning("id", "created_at")

	query, args := ib.Build()

	created := *relation
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create relation: %w", err)
	}

	return &created, nil
}

// GetByID retrieves a relation by its ID
func (r *PostgresRelationRepository) GetByID(ctx context.Context, id int64) (*entities.Relation, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(relationColumns...)
	sb.From("relations")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var relation entities.Relation
	if err := r.db.GetContext(ctx, &relation, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.NewNotFoundByID(entities.KindRelation, id)
		}
		return nil, fmt.Errorf("failed to get relation: %w", err)
	}

	return &relation, nil
}

// Delete removes every relation of the given type between from and to
func (r *PostgresRelationRepository) Delete(ctx context.Context, relationTypeID, fromID, toID int64) error {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("relations")
	db.Where(
		db.Equal("relation_type_id", relationTypeID),
		db.Equal("from_id", fromID),
		db.Equal("to_id", toID),
	)

	query, args := db.Build()

	affected, err := r.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}
	if affected == 0 {
		return &entities.NotFoundError{
			Kind: entities.KindRelation,
			Key:  fmt.Sprintf("type %d from %d to %d", relationTypeID, fromID, toID),
		}
	}

	return nil
}

// DeleteByID removes a single relation
func (r *PostgresRelationRepository) DeleteByID(ctx context.Context, id int64) error {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("relations")
	db.Where(db.Equal("id", id))

	query, args := db.Build()

	affected, err := r.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}
	if affected == 0 {
		return entities.NewNotFoundByID(entities.KindRelation, id)
	}

	return nil
}

// DeleteByEntry removes every relation starting or ending at the entry
func (r *PostgresRelationRepository) DeleteByEntry(ctx context.Context, entryID int64) (int, error) {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("relations")
	db.Where(db.Or(db.Equal("from_id", entryID), db.Equal("to_id", entryID)))

	query, args := db.Build()

	affected, err := r.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete relations of entry: %w", err)
	}

	return int(affected), nil
}

// FindBySourceAndType returns the edges of the given type leaving fromID
func (r *PostgresRelationRepository) FindBySourceAndType(ctx context.Context, fromID, relationTypeID int64) ([]*entities.Relation, error) {
	sb := r.selectRelations()
	sb.Where(sb.Equal("from_id", fromID), sb.Equal("relation_type_id", relationTypeID))
	return r.query(ctx, sb)
}

// FindByTargetAndType returns the edges of the given type entering toID
func (r *PostgresRelationRepository) FindByTargetAndType(ctx context.Context, toID, relationTypeID int64) ([]*entities.Relation, error) {
	sb := r.selectRelations()
	sb.Where(sb.Equal("to_id", toID), sb.Equal("relation_type_id", relationTypeID))
	return r.query(ctx, sb)
}

// ListByType returns every relation of a type
func (r *PostgresRelationRepository) ListByType(ctx context.Context, relationTypeID int64) ([]*entities.Relation, error) {
	sb := r.selectRelations()
	sb.Where(sb.Equal("relation_type_id", relationTypeID))
	return r.query(ctx, sb)
}

// ListIncoming returns every relation entering toID
func (r *PostgresRelationRepository) ListIncoming(ctx context.Context, toID int64) ([]*entities.Relation, error) {
	sb := r.selectRelations()
	sb.Where(sb.Equal("to_id", toID))
	return r.query(ctx, sb)
}

// ListOutgoing returns every relation leaving fromID
func (r *PostgresRelationRepository) ListOutgoing(ctx context.Context, fromID int64) ([]*entities.Relation, error) {
	sb := r.selectRelations()
	sb.Where(sb.Equal("from_id", fromID))
	return r.query(ctx, sb)
}

func (r *PostgresRelationRepository) selectRelations() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(relationColumns...)
	sb.From("relations")
	// Rows come back in insertion order, which callers observe as
	// neighbour order. Nothing promises it, but it keeps output stable.
	sb.OrderBy("id").Asc()
	return sb
}

func (r *PostgresRelationRepository) query(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]*entities.Relation, error) {
	query, args := sb.Build()

	var relations []*entities.Relation
	if err := r.db.SelectContext(ctx, &relations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}

	return relations, nil
}

func (r *PostgresRelationRepository) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
