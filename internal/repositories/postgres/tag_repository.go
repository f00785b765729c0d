package postgres

import (
	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/jmoiron/sqlx"
)

// PostgresTagRepository implements TagRepository using PostgreSQL
type PostgresTagRepository struct {
	*namedTable[entities.Tag]
}

// NewPostgresTagRepository creates a new PostgreSQL tag repository
func NewPostgresTagRepository(db *sqlx.DB) repositories.TagRepository {
	return &PostgresTagRepository{namedTable: newTagTable(db)}
}

func newTagTable(db *sqlx.DB) *namedTable[entities.Tag] {
	return newNamedTable(db, tableDef[entities.Tag]{
		kind:    entities.KindTag,
		table:   "tags",
		columns: []string{"name"},
		values:  func(t *entities.Tag) []interface{} { return []interface{}{t.Name} },
		id:      func(t *entities.Tag) int64 { return t.ID },
		setID:   func(t *entities.Tag, id int64) { t.ID = id },
		name:    func(t *entities.Tag) string { return t.Name },
		check:   (*entities.Tag).Validate,
	})
}

// PostgresRelationTypeRepository implements RelationTypeRepository using PostgreSQL
type PostgresRelationTypeRepository struct {
	*namedTable[entities.RelationType]
}

// NewPostgresRelationTypeRepository creates a new PostgreSQL relation type repository
func NewPostgresRelationTypeRepository(db *sqlx.DB) repositories.RelationTypeRepository {
	return &PostgresRelationTypeRepository{namedTable: newRelationTypeTable(db)}
}

func newRelationTypeTable(db *sqlx.DB) *namedTable[entities.RelationType] {
	return newNamedTable(db, tableDef[entities.RelationType]{
		kind:    entities.KindRelationType,
		table:   "relation_types",
		columns: []string{"name"},
		values:  func(rt *entities.RelationType) []interface{} { return []interface{}{rt.Name} },
		id:      func(rt *entities.RelationType) int64 { return rt.ID },
		setID:   func(rt *entities.RelationType, id int64) { rt.ID = id },
		name:    func(rt *entities.RelationType) string { return rt.Name },
		check:   (*entities.RelationType).Validate,
	})
}
