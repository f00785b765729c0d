package repositories

import (
	"context"

	"github.com/asakaida/eurocore/internal/entities"
)

// TeamTokensRepository defines the interface for team tokens data access
type TeamTokensRepository interface {
	// Get retrieves the row of a team in a league
	Get(ctx context.Context, teamID, leagueID int64) (*entities.TeamTokens, error)

	// Create inserts a row; a second row for the same pair is a conflict
	Create(ctx context.Context, tokens *entities.TeamTokens) (*entities.TeamTokens, error)

	// Update overwrites the points of an existing row
	Update(ctx context.Context, tokens *entities.TeamTokens) (*entities.TeamTokens, error)

	// Delete removes the row of a team in a league
	Delete(ctx context.Context, teamID, leagueID int64) (*entities.TeamTokens, error)

	// List returns all rows
	List(ctx context.Context) ([]*entities.TeamTokens, error)

	// ListByLeague returns the rows of one league
	ListByLeague(ctx context.Context, leagueID int64) ([]*entities.TeamTokens, error)
}
