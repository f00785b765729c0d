package entities

import "fmt"

// Tag is a named label attached to entries. Tags are the filter predicate of
// relation queries ("keep only neighbours tagged Team").
type Tag struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Validate checks if the tag is valid
func (t *Tag) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tag name is required")
	}
	return nil
}

// Well-known tags used by the competition projections.
const (
	TagLeague   = "League"
	TagTeam     = "Team"
	TagRobot    = "Robot"
	TagHardware = "Hardware"
	TagModule   = "Module"
	TagGroup    = "Group"
)
