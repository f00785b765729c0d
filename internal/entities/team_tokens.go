package entities

import "fmt"

// TeamTokens holds the points a team owns in one league.
// It is keyed by the (team, league) pair.
type TeamTokens struct {
	TeamID   int64 `db:"team_id" json:"team_id"`
	LeagueID int64 `db:"league_id" json:"league_id"`
	Points   int   `db:"points" json:"points"`
}

// Validate checks if the team tokens row is valid
func (t *TeamTokens) Validate() error {
	if t.TeamID <= 0 {
		return fmt.Errorf("team ID is required")
	}
	if t.LeagueID <= 0 {
		return fmt.Errorf("league ID is required")
	}
	return nil
}

// Key returns the composite key of the row.
func (t *TeamTokens) Key() string {
	return fmt.Sprintf("%d/%d", t.TeamID, t.LeagueID)
}
