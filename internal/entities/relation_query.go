package entities

import "fmt"

// RelationQuery describes one traversal from a pivot entry:
// follow edges of type RelationName (backwards when WantSource is set),
// keep the neighbours tagged RequiredTag and file their IDs under CategoryName.
type RelationQuery struct {
	RelationName string `yaml:"relation" json:"relation"`
	RequiredTag  string `yaml:"tag" json:"tag"`
	WantSource   bool   `yaml:"want_source" json:"want_source"`
	CategoryName string `yaml:"category" json:"category"`
}

// NewRelationQuery is a shorthand used by the projections.
func NewRelationQuery(relationName, requiredTag string, wantSource bool, categoryName string) RelationQuery {
	return RelationQuery{
		RelationName: relationName,
		RequiredTag:  requiredTag,
		WantSource:   wantSource,
		CategoryName: categoryName,
	}
}

// Validate checks if the relation query is valid. An empty relation or tag
// name can never be resolved, so it is reported as ErrNotFound.
func (q *RelationQuery) Validate() error {
	if q.RelationName == "" {
		return fmt.Errorf("relation name is required: %w", &NotFoundError{Kind: KindRelationType, Key: "empty name"})
	}
	if q.RequiredTag == "" {
		return fmt.Errorf("required tag is required: %w", &NotFoundError{Kind: KindTag, Key: "empty name"})
	}
	if q.CategoryName == "" {
		return fmt.Errorf("category name is required")
	}
	return nil
}

// String returns a string representation of the query
// Format: <relation>[<-|->]#<tag>@<category>
func (q *RelationQuery) String() string {
	arrow := "->"
	if q.WantSource {
		arrow = "<-"
	}
	return fmt.Sprintf("%s%s#%s@%s", q.RelationName, arrow, q.RequiredTag, q.CategoryName)
}

// EvaluationResult maps a category name to the ordered, duplicate free IDs of the
// entries filed under it.
type EvaluationResult map[string][]int64

// Category returns the IDs filed under name, or an empty slice.
func (r EvaluationResult) Category(name string) []int64 {
	if ids, ok := r[name]; ok {
		return ids
	}
	return []int64{}
}
