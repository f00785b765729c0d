package repositories

import "github.com/asakaida/eurocore/internal/entities"

// TagRepository defines the interface for tag data access
type TagRepository interface {
	Store[entities.Tag]
}

// RelationTypeRepository defines the interface for relation type data access
type RelationTypeRepository interface {
	Store[entities.RelationType]
}
