package entities

import "fmt"

// RelationType names a kind of directed edge (e.g. "uses", "part_of").
type RelationType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Validate checks if the relation type is valid
func (rt *RelationType) Validate() error {
	if rt.Name == "" {
		return fmt.Errorf("relation type name is required")
	}
	return nil
}

// Well-known relation types used by the competition projections.
const (
	RelationUses     = "uses"
	RelationPartOf   = "part_of"
	RelationSupports = "supports"
	RelationMemberOf = "member_of"
)
