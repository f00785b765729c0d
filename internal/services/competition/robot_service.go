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

// Robot projection categories
const (
	CategoryTeams    = "Teams"
	CategoryHardware = "Hardware"
	CategoryModules  = "Modules"
)

// robotQueries collects the teams using a robot, the hardware it is built
// from and the modules it supports.
var robotQueries = []entities.RelationQuery{
	entities.NewRelationQuery(entities.RelationUses, entities.TagTeam, true, CategoryTeams),
	entities.NewRelationQuery(entities.RelationPartOf, entities.TagHardware, false, CategoryHardware),
	entities.NewRelationQuery(entities.RelationSupports, entities.TagModule, false, CategoryModules),
}

// RobotService reads and writes robots as entries plus relations
type RobotService struct {
	base
}

// NewRobotService creates a new RobotService
func NewRobotService(repos *repositories.Registry, ids graph.IDResolver, engine Evaluator, opts ...Option) *RobotService {
	return &RobotService{base: newBase(repos, ids, engine, "robot", opts)}
}

// GetRobot returns the projection of the robot entry with the given ID
func (s *RobotService) GetRobot(ctx context.Context, id int64) (robot *entities.Robot, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("competition.GetRobot", start, err) }()

	entry, err := s.repos.Entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, entry)
}

// GetRobotByName returns the projection of the robot entry with the given name
func (s *RobotService) GetRobotByName(ctx context.Context, name string) (*entities.Robot, error) {
	entry, err := s.repos.Entries.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, entry)
}

// CreateRobot creates a robot entry tagged Robot together with its edges:
// uses from every team, part_of to every hardware item and supports to every
// module. On failure nothing created by the call is left behind.
func (s *RobotService) CreateRobot(ctx context.Context, robot *entities.Robot) (*entities.Robot, error) {
	entry, err := s.createTagged(ctx, robot.Name, robot.Description, entities.TagRobot)
	if err != nil {
		return nil, fmt.Errorf("failed to create robot entry: %w", err)
	}

	if err := s.linkRobot(ctx, entry.ID, robot); err != nil {
		s.undoCreate(ctx, entry.ID)
		return nil, err
	}

	s.logger.Info("robot created", zap.Int64("id", entry.ID), zap.String("name", entry.Name))
	return s.project(ctx, entry)
}

func (s *RobotService) linkRobot(ctx context.Context, id int64, robot *entities.Robot) error {
	if err := s.link(ctx, entities.RelationUses, incoming(id, robot.TeamIDs)); err != nil {
		return err
	}
	if err := s.link(ctx, entities.RelationPartOf, outgoing(id, robot.HardwareIDs)); err != nil {
		return err
	}
	return s.link(ctx, entities.RelationSupports, outgoing(id, robot.ModuleIDs))
}

// DeleteRobot removes the robot's relations and then its entry.
// It returns the projection as it was before the delete.
func (s *RobotService) DeleteRobot(ctx context.Context, id int64) (*entities.Robot, error) {
	robot, err := s.GetRobot(ctx, id)
	if err != nil {
		return nil, err
	}

	removed, err := s.repos.Relations.DeleteByEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete relations of robot %d: %w", id, err)
	}
	if _, err := s.repos.Entries.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete robot %d: %w", id, err)
	}

	s.logger.Info("robot deleted", zap.Int64("id", id), zap.Int("relations", removed))
	return robot, nil
}

func (s *RobotService) project(ctx context.Context, entry *entities.Entry) (*entities.Robot, error) {
	data, err := s.engine.Evaluate(ctx, entry.ID, robotQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate robot %d: %w", entry.ID, err)
	}

	return &entities.Robot{
		ID:          entry.ID,
		Name:        entry.Name,
		Description: entry.Description,
		TeamIDs:     data.Category(CategoryTeams),
		HardwareIDs: data.Category(CategoryHardware),
		ModuleIDs:   data.Category(CategoryModules),
	}, nil
}
