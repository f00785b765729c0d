package postgres

import (
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/jmoiron/sqlx"
)

// NewRegistry wires every PostgreSQL repository onto one connection pool
func NewRegistry(db *sqlx.DB) *repositories.Registry {
	return &repositories.Registry{
		Entries:       NewPostgresEntryRepository(db),
		Tags:          NewPostgresTagRepository(db),
		RelationTypes: NewPostgresRelationTypeRepository(db),
		Relations:     NewPostgresRelationRepository(db),
		TeamTokens:    NewPostgresTeamTokensRepository(db),
	}
}
