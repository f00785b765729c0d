package entities

// Team is a projection of a team entry within one league.
type Team struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	LeagueID    int64   `json:"league_id"`
	LeagueName  string  `json:"league_name"`
	RobotIDs    []int64 `json:"robot_ids"`
	GroupIDs    []int64 `json:"group_ids"`
	Points      int     `json:"points"`
}
