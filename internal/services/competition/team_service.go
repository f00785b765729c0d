package competition

import (
	"context"
	"fmt"
	"time"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/asakaida/eurocore/internal/services/graph"
	"go.uber.org/zap"
)

// Team projection categories
const (
	CategoryRobots = "Robots"
	CategoryGroups = "Groups"
)

var teamQueries = []entities.RelationQuery{
	entities.NewRelationQuery(entities.RelationUses, entities.TagRobot, false, CategoryRobots),
	entities.NewRelationQuery(entities.RelationMemberOf, entities.TagGroup, false, CategoryGroups),
}

// TeamService reads and writes teams. A team is an entry plus one team tokens
// row per league it plays in, so every projection is scoped to a league.
type TeamService struct {
	base
}

// NewTeamService creates a new TeamService
func NewTeamService(repos *repositories.Registry, ids graph.IDResolver, engine Evaluator, opts ...Option) *TeamService {
	return &TeamService{base: newBase(repos, ids, engine, "team", opts)}
}

// GetTeam returns the projection of a team within a league
func (s *TeamService) GetTeam(ctx context.Context, teamID, leagueID int64) (team *entities.Team, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("competition.GetTeam", start, err) }()

	teamEntry, err := s.repos.Entries.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	league, err := s.repos.Entries.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, teamEntry, league)
}

// GetTeamByName is GetTeam with both entries given by name
func (s *TeamService) GetTeamByName(ctx context.Context, teamName, leagueName string) (*entities.Team, error) {
	teamEntry, err := s.repos.Entries.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	league, err := s.repos.Entries.GetByName(ctx, leagueName)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, teamEntry, league)
}

// ListTeams returns one projection per team tokens row
func (s *TeamService) ListTeams(ctx context.Context) ([]*entities.Team, error) {
	rows, err := s.repos.TeamTokens.List(ctx)
	if err != nil {
		return nil, err
	}

	teams := make([]*entities.Team, 0, len(rows))
	for _, row := range rows {
		team, err := s.GetTeam(ctx, row.TeamID, row.LeagueID)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// CreateTeam creates a team entry tagged Team in the team's league, its uses
// and member_of edges and its team tokens row. The league must exist.
// On failure nothing created by the call is left behind.
func (s *TeamService) CreateTeam(ctx context.Context, team *entities.Team) (*entities.Team, error) {
	league, err := s.repos.Entries.GetByID(ctx, team.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}

	entry, err := s.createTagged(ctx, team.Name, team.Description, entities.TagTeam)
	if err != nil {
		return nil, fmt.Errorf("failed to create team entry: %w", err)
	}

	if err := s.linkTeam(ctx, entry.ID, team); err != nil {
		s.undoCreate(ctx, entry.ID)
		return nil, err
	}
	_, err = s.repos.TeamTokens.Create(ctx, &entities.TeamTokens{
		TeamID:   entry.ID,
		LeagueID: league.ID,
		Points:   team.Points,
	})
	if err != nil {
		s.undoCreate(ctx, entry.ID)
		return nil, fmt.Errorf("failed to create team tokens: %w", err)
	}

	s.logger.Info("team created",
		zap.Int64("id", entry.ID),
		zap.String("name", entry.Name),
		zap.Int64("league", league.ID),
	)
	return s.project(ctx, entry, league)
}

// UpdateTeam overwrites the team's name, description and points in its
// league, and replaces its outgoing uses and member_of edges with the
// robots and groups of the given team. Every referenced entry is checked
// before the first write. A write that still fails puts the previous entry,
// points and edges back.
func (s *TeamService) UpdateTeam(ctx context.Context, team *entities.Team) (*entities.Team, error) {
	league, err := s.repos.Entries.GetByID(ctx, team.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	old, err := s.repos.Entries.GetByID(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team entry: %w", err)
	}
	oldTokens, err := s.repos.TeamTokens.Get(ctx, team.ID, league.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team tokens: %w", err)
	}
	if err := s.checkLinks(ctx, entities.RelationMemberOf, team.GroupIDs); err != nil {
		return nil, err
	}
	if err := s.checkLinks(ctx, entities.RelationUses, team.RobotIDs); err != nil {
		return nil, err
	}

	entry, err := s.repos.Entries.Update(ctx, &entities.Entry{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update team entry: %w", err)
	}

	prev := teamState{entry: old, tokens: oldTokens}
	_, err = s.repos.TeamTokens.Update(ctx, &entities.TeamTokens{
		TeamID:   entry.ID,
		LeagueID: league.ID,
		Points:   team.Points,
	})
	if err != nil {
		s.restoreTeam(ctx, prev)
		return nil, fmt.Errorf("failed to update team tokens: %w", err)
	}

	prev.edges, err = s.unlinkTeam(ctx, entry.ID)
	if err != nil {
		s.restoreTeam(ctx, prev)
		return nil, err
	}
	if err := s.linkTeam(ctx, entry.ID, team); err != nil {
		s.restoreTeam(ctx, prev)
		return nil, err
	}

	return s.project(ctx, entry, league)
}

// teamState is what UpdateTeam overwrites.
type teamState struct {
	entry  *entities.Entry
	tokens *entities.TeamTokens
	edges  []*entities.Relation
}

// restoreTeam puts back a team state captured before an update. Failures are
// only logged, the caller already reports the original error.
func (s *TeamService) restoreTeam(ctx context.Context, prev teamState) {
	id := prev.entry.ID
	if _, err := s.repos.Entries.Update(ctx, prev.entry); err != nil {
		s.logger.Error("failed to restore team entry", zap.Int64("team", id), zap.Error(err))
	}
	if _, err := s.repos.TeamTokens.Update(ctx, prev.tokens); err != nil {
		s.logger.Error("failed to restore team tokens", zap.Int64("team", id), zap.Error(err))
	}
	if prev.edges == nil {
		return
	}
	if _, err := s.unlinkTeam(ctx, id); err != nil {
		s.logger.Error("failed to remove edges of half updated team", zap.Int64("team", id), zap.Error(err))
		return
	}
	for _, edge := range prev.edges {
		_, err := s.repos.Relations.Create(ctx, &entities.Relation{
			RelationTypeID: edge.RelationTypeID,
			FromID:         edge.FromID,
			ToID:           edge.ToID,
		})
		if err != nil {
			s.logger.Error("failed to restore team edge",
				zap.Int64("team", id),
				zap.Int64("to", edge.ToID),
				zap.Error(err),
			)
		}
	}
}

// DeleteTeam removes a team that plays only in the given league: its
// relations, its team tokens row and its entry. A team still playing in
// another league is refused with a conflict before anything is removed.
// It returns the projection as it was before the delete.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID, leagueID int64) (*entities.Team, error) {
	team, err := s.GetTeam(ctx, teamID, leagueID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repos.TeamTokens.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.TeamID == teamID && row.LeagueID != leagueID {
			return nil, entities.NewInUse(entities.KindEntry, teamID)
		}
	}

	removed, err := s.repos.Relations.DeleteByEntry(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete relations of team %d: %w", teamID, err)
	}
	if _, err := s.repos.TeamTokens.Delete(ctx, teamID, leagueID); err != nil {
		return nil, fmt.Errorf("failed to delete team tokens: %w", err)
	}
	if _, err := s.repos.Entries.Delete(ctx, teamID); err != nil {
		return nil, fmt.Errorf("failed to delete team %d: %w", teamID, err)
	}

	s.logger.Info("team deleted", zap.Int64("id", teamID), zap.Int("relations", removed))
	return team, nil
}

func (s *TeamService) linkTeam(ctx context.Context, id int64, team *entities.Team) error {
	if err := s.link(ctx, entities.RelationMemberOf, outgoing(id, team.GroupIDs)); err != nil {
		return err
	}
	return s.link(ctx, entities.RelationUses, outgoing(id, team.RobotIDs))
}

// unlinkTeam removes the team's outgoing uses and member_of edges, keeps
// every other relation and returns what it removed.
func (s *TeamService) unlinkTeam(ctx context.Context, id int64) ([]*entities.Relation, error) {
	replaced := make(map[int64]bool)
	for _, name := range []string{entities.RelationUses, entities.RelationMemberOf} {
		typeID, err := s.ids.ResolveRelationTypeID(ctx, name)
		if err != nil {
			if entities.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		replaced[typeID] = true
	}

	relations, err := s.repos.Relations.ListOutgoing(ctx, id)
	if err != nil {
		return nil, err
	}
	removed := []*entities.Relation{}
	for _, relation := range relations {
		if !replaced[relation.RelationTypeID] {
			continue
		}
		if err := s.repos.Relations.DeleteByID(ctx, relation.ID); err != nil {
			return removed, fmt.Errorf("failed to delete relation %d: %w", relation.ID, err)
		}
		removed = append(removed, relation)
	}
	return removed, nil
}

func (s *TeamService) project(ctx context.Context, teamEntry, league *entities.Entry) (*entities.Team, error) {
	tokens, err := s.repos.TeamTokens.Get(ctx, teamEntry.ID, league.ID)
	if err != nil {
		return nil, err
	}

	data, err := s.engine.Evaluate(ctx, teamEntry.ID, teamQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate team %d: %w", teamEntry.ID, err)
	}

	return &entities.Team{
		ID:          teamEntry.ID,
		Name:        teamEntry.Name,
		Description: teamEntry.Description,
		LeagueID:    league.ID,
		LeagueName:  league.Name,
		RobotIDs:    data.Category(CategoryRobots),
		GroupIDs:    data.Category(CategoryGroups),
		Points:      tokens.Points,
	}, nil
}
