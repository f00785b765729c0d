package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

var teamTokensColumns = []string{"team_id", "league_id", "points"}

// PostgresTeamTokensRepository implements TeamTokensRepository using PostgreSQL
type PostgresTeamTokensRepository struct {
	db *sqlx.DB
}

// NewPostgresTeamTokensRepository creates a new PostgreSQL team tokens repository
func NewPostgresTeamTokensRepository(db *sqlx.DB) repositories.TeamTokensRepository {
	return &PostgresTeamTokensRepository{db: db}
}

// Get retrieves the row of a team in a league
func (r *PostgresTeamTokensRepository) Get(ctx context.Context, teamID, leagueID int64) (*entities.TeamTokens, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(teamTokensColumns...)
	sb.From("team_tokens")
	sb.Where(sb.Equal("team_id", teamID), sb.Equal("league_id", leagueID))

	query, args := sb.Build()

	var tokens entities.TeamTokens
	if err := r.db.GetContext(ctx, &tokens, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundTokens(teamID, leagueID)
		}
		return nil, fmt.Errorf("failed to get team tokens: %w", err)
	}

	return &tokens, nil
}

// Create inserts a row; a second row for the same pair is a conflict
func (r *PostgresTeamTokensRepository) Create(ctx context.Context, tokens *entities.TeamTokens) (*entities.TeamTokens, error) {
	if err := tokens.Validate(); err != nil {
		return nil, fmt.Errorf("invalid team tokens: %w", err)
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("team_tokens")
	ib.Cols(teamTokensColumns...)
	ib.Values(tokens.TeamID, tokens.LeagueID, tokens.Points)

	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, entities.NewConflict(entities.KindTeamTokens, tokens.Key())
		case isForeignKeyViolation(err):
			return nil, &entities.NotFoundError{
				Kind: entities.KindEntry,
				Key:  fmt.Sprintf("team/league IDs: %s", tokens.Key()),
			}
		}
		return nil, fmt.Errorf("failed to create team tokens: %w", err)
	}

	created := *tokens
	return &created, nil
}

// Update overwrites the points of an existing row
func (r *PostgresTeamTokensRepository) Update(ctx context.Context, tokens *entities.TeamTokens) (*entities.TeamTokens, error) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("team_tokens")
	ub.Set(ub.Assign("points", tokens.Points))
	ub.Where(ub.Equal("team_id", tokens.TeamID), ub.Equal("league_id", tokens.LeagueID))

	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update team tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, notFoundTokens(tokens.TeamID, tokens.LeagueID)
	}

	updated := *tokens
	return &updated, nil
}

// Delete removes the row of a team in a league
func (r *PostgresTeamTokensRepository) Delete(ctx context.Context, teamID, leagueID int64) (*entities.TeamTokens, error) {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("team_tokens")
	db.Where(db.Equal("team_id", teamID), db.Equal("league_id", leagueID))
	db.SQL("RETURNING " + strings.Join(teamTokensColumns, ", "))

	query, args := db.Build()

	var tokens entities.TeamTokens
	if err := r.db.GetContext(ctx, &tokens, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundTokens(teamID, leagueID)
		}
		return nil, fmt.Errorf("failed to delete team tokens: %w", err)
	}

	return &tokens, nil
}

// List returns all rows
func (r *PostgresTeamTokensRepository) List(ctx context.Context) ([]*entities.TeamTokens, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(teamTokensColumns...)
	sb.From("team_tokens")
	sb.OrderBy("team_id", "league_id").Asc()

	return r.query(ctx, sb)
}

// ListByLeague returns the rows of one league
func (r *PostgresTeamTokensRepository) ListByLeague(ctx context.Context, leagueID int64) ([]*entities.TeamTokens, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(teamTokensColumns...)
	sb.From("team_tokens")
	sb.Where(sb.Equal("league_id", leagueID))
	sb.OrderBy("team_id").Asc()

	return r.query(ctx, sb)
}

func (r *PostgresTeamTokensRepository) query(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]*entities.TeamTokens, error) {
	query, args := sb.Build()

	var rows []*entities.TeamTokens
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list team tokens: %w", err)
	}

	return rows, nil
}

func notFoundTokens(teamID, leagueID int64) *entities.NotFoundError {
	return &entities.NotFoundError{
		Kind: entities.KindTeamTokens,
		Key:  fmt.Sprintf("team/league IDs: %d/%d", teamID, leagueID),
	}
}
