package competition

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/infrastructure/database"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/asakaida/eurocore/internal/repositories/badgerstore"
	"github.com/asakaida/eurocore/internal/services/graph"
	"github.com/asakaida/eurocore/internal/services/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a seeded graph: one league, one hardware item, one module and
// one group, plus every well-known tag and relation type.
type fixture struct {
	repos  *repositories.Registry
	ids    *resolver.Resolver
	engine *graph.Engine
	robots *RobotService
	teams  *TeamService

	league, hardware, module, group *entities.Entry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewBadgerInMemory()
	require.NoError(t, err)
	store := badgerstore.New(db.DB)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, db.Close())
	})
	repos := store.Registry()

	tags := map[string]int64{}
	for _, name := range []string{
		entities.TagLeague, entities.TagTeam, entities.TagRobot,
		entities.TagHardware, entities.TagModule, entities.TagGroup,
	} {
		tag, err := repos.Tags.Create(ctx, &entities.Tag{Name: name})
		require.NoError(t, err)
		tags[name] = tag.ID
	}
	for _, name := range []string{
		entities.RelationUses, entities.RelationPartOf,
		entities.RelationSupports, entities.RelationMemberOf,
	} {
		_, err := repos.RelationTypes.Create(ctx, &entities.RelationType{Name: name})
		require.NoError(t, err)
	}

	entry := func(name, tag string) *entities.Entry {
		e, err := repos.Entries.Create(ctx, &entities.Entry{Name: name, TagIDs: []int64{tags[tag]}})
		require.NoError(t, err)
		return e
	}

	ids := resolver.New(repos.Tags, repos.RelationTypes, nil)
	engine := graph.NewEngine(ids, repos.Relations, repos.Entries)

	return &fixture{
		repos:    repos,
		ids:      ids,
		engine:   engine,
		robots:   NewRobotService(repos, ids, engine),
		teams:    NewTeamService(repos, ids, engine),
		league:   entry("Euro 2026", entities.TagLeague),
		hardware: entry("Lidar", entities.TagHardware),
		module:   entry("Navigation", entities.TagModule),
		group:    entry("Group A", entities.TagGroup),
	}
}

func TestTeamService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.teams.CreateTeam(ctx, &entities.Team{
		Name:     "Falcons",
		LeagueID: f.league.ID,
		GroupIDs: []int64{f.group.ID},
		Points:   12,
	})
	require.NoError(t, err)
	assert.Equal(t, "Falcons", created.Name)
	assert.Equal(t, "Euro 2026", created.LeagueName)
	assert.Equal(t, []int64{f.group.ID}, created.GroupIDs)
	assert.Equal(t, []int64{}, created.RobotIDs)
	assert.Equal(t, 12, created.Points)

	byName, err := f.teams.GetTeamByName(ctx, "Falcons", "Euro 2026")
	require.NoError(t, err)
	assert.Equal(t, created, byName)

	t.Run("robot used by team", func(t *testing.T) {
		robot, err := f.robots.CreateRobot(ctx, &entities.Robot{
			Name:        "R2",
			TeamIDs:     []int64{created.ID},
			HardwareIDs: []int64{f.hardware.ID},
			ModuleIDs:   []int64{f.module.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{created.ID}, robot.TeamIDs)
		assert.Equal(t, []int64{f.hardware.ID}, robot.HardwareIDs)
		assert.Equal(t, []int64{f.module.ID}, robot.ModuleIDs)

		team, err := f.teams.GetTeam(ctx, created.ID, f.league.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{robot.ID}, team.RobotIDs)
	})

	t.Run("update replaces edges", func(t *testing.T) {
		updated, err := f.teams.UpdateTeam(ctx, &entities.Team{
			ID:          created.ID,
			Name:        "Falcons II",
			Description: "renamed",
			LeagueID:    f.league.ID,
			Points:      30,
		})
		require.NoError(t, err)
		assert.Equal(t, "Falcons II", updated.Name)
		assert.Equal(t, 30, updated.Points)
		assert.Empty(t, updated.RobotIDs)
		assert.Empty(t, updated.GroupIDs)

		// the team keeps its tag after a rename
		entry, err := f.repos.Entries.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, entry.TagIDs, 1)
	})

	t.Run("list", func(t *testing.T) {
		teams, err := f.teams.ListTeams(ctx)
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, created.ID, teams[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := f.teams.DeleteTeam(ctx, created.ID, f.league.ID)
		require.NoError(t, err)
		assert.Equal(t, "Falcons II", deleted.Name)

		_, err = f.teams.GetTeam(ctx, created.ID, f.league.ID)
		assert.True(t, entities.IsNotFound(err))
		_, err = f.repos.TeamTokens.Get(ctx, created.ID, f.league.ID)
		assert.True(t, entities.IsNotFound(err))
		relations, err := f.repos.Relations.ListOutgoing(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, relations)
	})
}

func TestTeamService_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("異常系: リーグが存在しない", func(t *testing.T) {
		_, err := f.teams.CreateTeam(ctx, &entities.Team{Name: "Nowhere", LeagueID: 999})
		assert.True(t, entities.IsNotFound(err))
		_, err = f.repos.Entries.GetByName(ctx, "Nowhere")
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("異常系: 存在しないロボットは作成を取り消す", func(t *testing.T) {
		_, err := f.teams.CreateTeam(ctx, &entities.Team{
			Name:     "Ghosts",
			LeagueID: f.league.ID,
			RobotIDs: []int64{999},
		})
		assert.True(t, entities.IsNotFound(err))
		_, err = f.repos.Entries.GetByName(ctx, "Ghosts")
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("異常系: 名前の重複", func(t *testing.T) {
		_, err := f.teams.CreateTeam(ctx, &entities.Team{Name: "Euro 2026", LeagueID: f.league.ID})
		assert.ErrorIs(t, err, entities.ErrConflict)
	})

	t.Run("異常系: 他のリーグに所属するチームは削除できない", func(t *testing.T) {
		team, err := f.teams.CreateTeam(ctx, &entities.Team{Name: "Owls", LeagueID: f.league.ID})
		require.NoError(t, err)
		other, err := f.repos.Entries.Create(ctx, &entities.Entry{Name: "Euro 2027"})
		require.NoError(t, err)
		_, err = f.repos.TeamTokens.Create(ctx, &entities.TeamTokens{TeamID: team.ID, LeagueID: other.ID, Points: 1})
		require.NoError(t, err)

		_, err = f.teams.DeleteTeam(ctx, team.ID, f.league.ID)
		assert.ErrorIs(t, err, entities.ErrConflict)

		_, err = f.teams.GetTeam(ctx, team.ID, f.league.ID)
		assert.NoError(t, err)
	})

	t.Run("異常系: ポイントの行がない", func(t *testing.T) {
		_, err := f.teams.GetTeam(ctx, f.group.ID, f.league.ID)
		assert.True(t, entities.IsNotFound(err))
	})
}

// failingRelations refuses to create edges pointing at one entry.
type failingRelations struct {
	repositories.RelationRepository
	toID int64
}

func (r *failingRelations) Create(ctx context.Context, relation *entities.Relation) (*entities.Relation, error) {
	if relation.ToID == r.toID {
		return nil, errors.New("write failed")
	}
	return r.RelationRepository.Create(ctx, relation)
}

func TestTeamService_UpdateLeavesTeamOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	robot, err := f.robots.CreateRobot(ctx, &entities.Robot{Name: "R1"})
	require.NoError(t, err)
	spare, err := f.robots.CreateRobot(ctx, &entities.Robot{Name: "R2"})
	require.NoError(t, err)
	alpha, err := f.teams.CreateTeam(ctx, &entities.Team{
		Name:     "Alpha",
		LeagueID: f.league.ID,
		RobotIDs: []int64{robot.ID},
		GroupIDs: []int64{f.group.ID},
		Points:   3,
	})
	require.NoError(t, err)

	assertUnchanged := func(t *testing.T) {
		t.Helper()
		got, err := f.teams.GetTeam(ctx, alpha.ID, f.league.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", got.Name)
		assert.Equal(t, 3, got.Points)
		assert.Equal(t, []int64{robot.ID}, got.RobotIDs)
		assert.Equal(t, []int64{f.group.ID}, got.GroupIDs)
	}

	t.Run("異常系: 存在しないロボットは何も書き込まない", func(t *testing.T) {
		_, err := f.teams.UpdateTeam(ctx, &entities.Team{
			ID:       alpha.ID,
			Name:     "Beta",
			LeagueID: f.league.ID,
			RobotIDs: []int64{9999},
			Points:   10,
		})
		assert.True(t, entities.IsNotFound(err))
		assertUnchanged(t)
		_, err = f.repos.Entries.GetByName(ctx, "Beta")
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("異常系: 存在しないグループは何も書き込まない", func(t *testing.T) {
		_, err := f.teams.UpdateTeam(ctx, &entities.Team{
			ID:       alpha.ID,
			Name:     "Beta",
			LeagueID: f.league.ID,
			GroupIDs: []int64{9999},
			Points:   10,
		})
		assert.True(t, entities.IsNotFound(err))
		assertUnchanged(t)
	})

	t.Run("異常系: 名前の重複", func(t *testing.T) {
		_, err := f.teams.UpdateTeam(ctx, &entities.Team{
			ID:       alpha.ID,
			Name:     "Euro 2026",
			LeagueID: f.league.ID,
			Points:   10,
		})
		assert.ErrorIs(t, err, entities.ErrConflict)
		assertUnchanged(t)
	})

	t.Run("異常系: 書き込みに失敗したら元に戻す", func(t *testing.T) {
		repos := *f.repos
		repos.Relations = &failingRelations{RelationRepository: f.repos.Relations, toID: spare.ID}
		teams := NewTeamService(&repos, f.ids, f.engine)

		_, err := teams.UpdateTeam(ctx, &entities.Team{
			ID:       alpha.ID,
			Name:     "Beta",
			LeagueID: f.league.ID,
			RobotIDs: []int64{robot.ID, spare.ID},
			Points:   10,
		})
		assert.EqualError(t, err, fmt.Sprintf("failed to create uses relation %d -> %d: write failed", alpha.ID, spare.ID))
		assertUnchanged(t)

		relations, err := f.repos.Relations.ListOutgoing(ctx, alpha.ID)
		require.NoError(t, err)
		assert.Len(t, relations, 2)
	})
}

func TestRobotService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	robot, err := f.robots.CreateRobot(ctx, &entities.Robot{
		Name:        "R1",
		Description: "scout",
		HardwareIDs: []int64{f.hardware.ID, f.hardware.ID},
		ModuleIDs:   []int64{f.module.ID, f.group.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "scout", robot.Description)
	assert.Equal(t, []int64{}, robot.TeamIDs)
	assert.Equal(t, []int64{f.hardware.ID}, robot.HardwareIDs)
	// the group is linked but not tagged Module
	assert.Equal(t, []int64{f.module.ID}, robot.ModuleIDs)

	byName, err := f.robots.GetRobotByName(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, robot, byName)

	t.Run("異常系: 存在しないロボット", func(t *testing.T) {
		_, err := f.robots.GetRobot(ctx, 999)
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("異常系: 存在しないハードウェアは作成を取り消す", func(t *testing.T) {
		_, err := f.robots.CreateRobot(ctx, &entities.Robot{Name: "R9", HardwareIDs: []int64{999}})
		assert.True(t, entities.IsNotFound(err))
		_, err = f.repos.Entries.GetByName(ctx, "R9")
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("正常系: 削除", func(t *testing.T) {
		deleted, err := f.robots.DeleteRobot(ctx, robot.ID)
		require.NoError(t, err)
		assert.Equal(t, robot, deleted)

		_, err = f.robots.GetRobot(ctx, robot.ID)
		assert.True(t, entities.IsNotFound(err))
		relations, err := f.repos.Relations.ListOutgoing(ctx, robot.ID)
		require.NoError(t, err)
		assert.Empty(t, relations)
	})
}
