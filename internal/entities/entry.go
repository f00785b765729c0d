package entities

import (
	"fmt"
	"slices"
)

// Entry is a generic node of the graph. Every domain object (league, team, robot,
// hardware, module, group) is stored as an entry and told apart by its tags.
type Entry struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	TagIDs      []int64 `db:"-" json:"tag_ids"`
}

// HasTag reports whether the entry carries the tag with the given ID.
func (e *Entry) HasTag(tagID int64) bool {
	return slices.Contains(e.TagIDs, tagID)
}

// Validate checks if the entry is valid
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entry name is required")
	}
	return nil
}

// String returns a string representation of the entry
// Format: entry:<id>(<name>)
func (e *Entry) String() string {
	return fmt.Sprintf("entry:%d(%s)", e.ID, e.Name)
}
