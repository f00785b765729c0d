package repositories

import "context"

// Store is the persistence capability shared by every named entity kind
// (entries, tags, relation types). Lookups fail with an *entities.NotFoundError,
// creates and renames that break a unique name fail with an *entities.ConflictError.
type Store[T any] interface {
	// GetByID retrieves a row by its ID
	GetByID(ctx context.Context, id int64) (*T, error)

	// GetByName retrieves a row by its unique name
	GetByName(ctx context.Context, name string) (*T, error)

	// Create inserts a row and returns it with its ID assigned
	Create(ctx context.Context, item *T) (*T, error)

	// Update overwrites the mutable columns of an existing row
	Update(ctx context.Context, item *T) (*T, error)

	// Delete removes a row and returns what was removed
	Delete(ctx context.Context, id int64) (*T, error)

	// List returns all rows ordered by ID
	List(ctx context.Context) ([]*T, error)
}

// Registry bundles the repositories of one backend.
type Registry struct {
	Entries       EntryRepository
	Tags          TagRepository
	RelationTypes RelationTypeRepository
	Relations     RelationRepository
	TeamTokens    TeamTokensRepository
}
