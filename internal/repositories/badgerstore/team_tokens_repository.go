package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/dgraph-io/badger/v4"
)

// TeamTokensRepository implements repositories.TeamTokensRepository on BadgerDB
type TeamTokensRepository struct {
	store   *Store
	entries *bucket[entities.Entry]
}

func notFoundTokens(teamID, leagueID int64) *entities.NotFoundError {
	return &entities.NotFoundError{
		Kind: entities.KindTeamTokens,
		Key:  fmt.Sprintf("team/league IDs: %d/%d", teamID, leagueID),
	}
}

func (r *TeamTokensRepository) get(txn *badger.Txn, teamID, leagueID int64) (*entities.TeamTokens, error) {
	tokens, err := getJSON[entities.TeamTokens](txn, key(prefixTeamTokens, teamID, leagueID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundTokens(teamID, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team tokens: %w", err)
	}
	return tokens, nil
}

// Get retrieves the row of a team in a league
func (r *TeamTokensRepository) Get(ctx context.Context, teamID, leagueID int64) (*entities.TeamTokens, error) {
	var tokens *entities.TeamTokens
	err := r.store.db.View(func(txn *badger.Txn) error {
		var err error
		tokens, err = r.get(txn, teamID, leagueID)
		return err
	})
	return tokens, err
}

// Create inserts a row; a second row for the same pair is a conflict
func (r *TeamTokensRepository) Create(ctx context.Context, tokens *entities.TeamTokens) (*entities.TeamTokens, error) {
	if err := tokens.Validate(); err != nil {
		return nil, fmt.Errorf("invalid team tokens: %w", err)
	}

	created := *tokens
	err := r.store.update(func(txn *badger.Txn) error {
		for _, id := range []int64{tokens.TeamID, tokens.LeagueID} {
			if _, err := r.entries.get(txn, id); err != nil {
				if !entities.IsNotFound(err) {
					return err
				}
				return &entities.NotFoundError{
					Kind: entities.KindEntry,
					Key:  fmt.Sprintf("team/league IDs: %s", tokens.Key()),
				}
			}
		}
		k := key(prefixTeamTokens, tokens.TeamID, tokens.LeagueID)
		taken, err := exists(txn, k)
		if err != nil {
			return err
		}
		if taken {
			return entities.NewConflict(entities.KindTeamTokens, tokens.Key())
		}
		if err := setJSON(txn, k, &created); err != nil {
			return err
		}
		return txn.Set(key(prefixLeagueIndex, tokens.LeagueID, tokens.TeamID), []byte{})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update overwrites the points of an existing row
func (r *TeamTokensRepository) Update(ctx context.Context, tokens *entities.TeamTokens) (*entities.TeamTokens, error) {
	updated := *tokens
	err := r.store.update(func(txn *badger.Txn) error {
		if _, err := r.get(txn, tokens.TeamID, tokens.LeagueID); err != nil {
			return err
		}
		return setJSON(txn, key(prefixTeamTokens, tokens.TeamID, tokens.LeagueID), &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the row of a team in a league
func (r *TeamTokensRepository) Delete(ctx context.Context, teamID, leagueID int64) (*entities.TeamTokens, error) {
	var old *entities.TeamTokens
	err := r.store.update(func(txn *badger.Txn) error {
		var err error
		if old, err = r.get(txn, teamID, leagueID); err != nil {
			return err
		}
		if err := txn.Delete(key(prefixLeagueIndex, leagueID, teamID)); err != nil {
			return err
		}
		return txn.Delete(key(prefixTeamTokens, teamID, leagueID))
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}

// List returns all rows ordered by team, then league
func (r *TeamTokensRepository) List(ctx context.Context) ([]*entities.TeamTokens, error) {
	var rows []*entities.TeamTokens
	err := r.store.db.View(func(txn *badger.Txn) error {
		var err error
		rows, err = scanJSON[entities.TeamTokens](txn, []byte{prefixTeamTokens})
		return err
	})
	return rows, err
}

// ListByLeague returns the rows of one league ordered by team
func (r *TeamTokensRepository) ListByLeague(ctx context.Context, leagueID int64) ([]*entities.TeamTokens, error) {
	var rows []*entities.TeamTokens
	err := r.store.db.View(func(txn *badger.Txn) error {
		for _, teamID := range scanIDs(txn, key(prefixLeagueIndex, leagueID)) {
			tokens, err := r.get(txn, teamID, leagueID)
			if err != nil {
				return err
			}
			rows = append(rows, tokens)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
