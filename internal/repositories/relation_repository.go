package repositories

import (
	"context"

	"github.com/asakaida/eurocore/internal/entities"
)

// RelationRepository defines the interface for relation data access.
// None of the list methods guarantee an order.
type RelationRepository interface {
	// Create inserts a relation. Duplicate edges are allowed.
	Create(ctx context.Context, relation *entities.Relation) (*entities.Relation, error)

	// GetByID retrieves a relation by its ID
	GetByID(ctx context.Context, id int64) (*entities.Relation, error)

	// Delete removes every relation of the given type between from and to.
	// Returns a not found error if there was none.
	Delete(ctx context.Context, relationTypeID, fromID, toID int64) error

	// DeleteByID removes a single relation
	DeleteByID(ctx context.Context, id int64) error

	// DeleteByEntry removes every relation starting or ending at the entry
	// and returns how many were removed
	DeleteByEntry(ctx context.Context, entryID int64) (int, error)

	// FindBySourceAndType returns the edges of the given type leaving fromID
	FindBySourceAndType(ctx context.Context, fromID, relationTypeID int64) ([]*entities.Relation, error)

	// FindByTargetAndType returns the edges of the given type entering toID
	FindByTargetAndType(ctx context.Context, toID, relationTypeID int64) ([]*entities.Relation, error)

	// ListByType returns every relation of a type
	ListByType(ctx context.Context, relationTypeID int64) ([]*entities.Relation, error)

	// ListIncoming returns every relation entering toID
	ListIncoming(ctx context.Context, toID int64) ([]*entities.Relation, error)

	// ListOutgoing returns every relation leaving fromID
	ListOutgoing(ctx context.Context, fromID int64) ([]*entities.Relation, error)
}
