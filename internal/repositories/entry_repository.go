package repositories

import (
	"context"

	"github.com/asakaida/eurocore/internal/entities"
)

// EntryRepository defines the interface for entry data access.
// Entries returned by the Store methods carry their tag IDs.
type EntryRepository interface {
	Store[entities.Entry]

	// AddTag attaches a tag to an entry. Attaching twice is a no-op.
	AddTag(ctx context.Context, entryID, tagID int64) error

	// RemoveTag detaches a tag from an entry
	RemoveTag(ctx context.Context, entryID, tagID int64) error

	// ListTags returns the tags attached to an entry
	ListTags(ctx context.Context, entryID int64) ([]*entities.Tag, error)
}
