package entities

import (
	"fmt"
	"time"
)

// Relation is a directed, typed edge between two entries.
// Example: relation uses(team:3 -> robot:5)
// This means: team 3 "uses" robot 5
//
// Several relations, even of the same type, may connect the same pair of entries;
// readers dedup by ID where that matters.
type Relation struct {
	ID             int64     `db:"id" json:"id"`
	RelationTypeID int64     `db:"relation_type_id" json:"relation_type_id"`
	FromID         int64     `db:"from_id" json:"from_id"`
	ToID           int64     `db:"to_id" json:"to_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// String returns a string representation of the relation
// Format: relation_type:<type>(entry:<from> -> entry:<to>)
func (r *Relation) String() string {
	return fmt.Sprintf("relation_type:%d(entry:%d -> entry:%d)", r.RelationTypeID, r.FromID, r.ToID)
}

// Validate checks if the relation is valid
func (r *Relation) Validate() error {
	if r.RelationTypeID <= 0 {
		return fmt.Errorf("relation type ID is required")
	}
	if r.FromID <= 0 {
		return fmt.Errorf("from ID is required")
	}
	if r.ToID <= 0 {
		return fmt.Errorf("to ID is required")
	}
	return nil
}

// Neighbour returns the entry on the other end of the relation as seen from a
// traversal. When wantSource is set the traversal walked the edge backwards and
// the neighbour is the edge's source.
func (r *Relation) Neighbour(wantSource bool) int64 {
	if wantSource {
		return r.FromID
	}
	return r.ToID
}
