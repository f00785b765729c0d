// Package bootstrap wires the configured store, cache and services together
// for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/asakaida/eurocore/internal/infrastructure/database"
	"github.com/asakaida/eurocore/internal/infrastructure/logging"
	"github.com/asakaida/eurocore/internal/infrastructure/metrics"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/asakaida/eurocore/internal/repositories/badgerstore"
	"github.com/asakaida/eurocore/internal/repositories/postgres"
	"github.com/asakaida/eurocore/internal/services/competition"
	"github.com/asakaida/eurocore/internal/services/graph"
	"github.com/asakaida/eurocore/internal/services/resolver"
	"github.com/asakaida/eurocore/pkg/cache"
	"github.com/asakaida/eurocore/pkg/cache/memorycache"
	"github.com/asakaida/eurocore/pkg/cache/rediscache"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App holds every long lived component of a running process
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Repos    *repositories.Registry
	Cache    cache.Cache
	Resolver *resolver.Resolver
	Engine   *graph.Engine
	Robots   *competition.RobotService
	Teams    *competition.TeamService

	Collector *metrics.Collector
	Exporter  *metrics.PrometheusExporter // nil without a registerer
	Recorder  *metrics.Recorder

	healthCheck func() error
	closers     []func() error
}

// New opens the store selected by cfg.Store.Driver, builds the id cache and
// the services on top of it. Metrics are registered on reg when it is not nil.
// On error everything opened so far is closed again.
func New(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	app := &App{
		Config:      cfg,
		Logger:      logging.OrNop(logger),
		healthCheck: func() error { return nil },
	}

	if err := app.openStore(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openCache(); err != nil {
		app.Close()
		return nil, err
	}

	app.Collector = metrics.NewCollector()
	app.Collector.SetCache(app.Cache)
	if reg != nil {
		app.Exporter = metrics.NewPrometheusExporter(app.Collector, reg)
	}
	app.Recorder = metrics.NewRecorder(app.Collector, app.Exporter)

	policy, err := graph.ParseDanglingPolicy(cfg.Graph.DanglingPolicy)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Resolver = resolver.New(app.Repos.Tags, app.Repos.RelationTypes, app.Cache,
		resolver.WithLogger(app.Logger),
		resolver.WithRecorder(app.Recorder),
	)
	app.Engine = graph.NewEngine(app.Resolver, app.Repos.Relations, app.Repos.Entries,
		graph.WithDanglingPolicy(policy),
		graph.WithLogger(app.Logger),
		graph.WithRecorder(app.Recorder),
	)
	opts := []competition.Option{
		competition.WithLogger(app.Logger),
		competition.WithRecorder(app.Recorder),
	}
	app.Robots = competition.NewRobotService(app.Repos, app.Resolver, app.Engine, opts...)
	app.Teams = competition.NewTeamService(app.Repos, app.Resolver, app.Engine, opts...)

	return app, nil
}

func (a *App) openStore() error {
	switch a.Config.Store.Driver {
	case config.StoreDriverBadger:
		b, err := database.NewBadger(&a.Config.Badger, a.Logger)
		if err != nil {
			return err
		}
		store := badgerstore.New(b.DB)
		// the store releases its sequences before the database closes
		a.closers = append(a.closers, b.Close, store.Close)
		a.Repos = store.Registry()

		a.Logger.Info("opened badger store",
			zap.String("dir", a.Config.Badger.Dir),
			zap.Bool("in_memory", a.Config.Badger.InMemory),
		)

	default:
		pg, err := database.NewPostgres(context.Background(), &a.Config.Database, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pg.Close)

		a.Logger.Info("connected to database",
			zap.String("user", a.Config.Database.User),
			zap.String("host", a.Config.Database.Host),
			zap.Int("port", a.Config.Database.Port),
			zap.String("database", a.Config.Database.Database),
		)

		if err := pg.RunMigrations(a.Config.Database.MigrationsPath); err != nil {
			return err
		}
		a.Repos = postgres.NewRegistry(pg.DB)
		a.healthCheck = func() error { return pg.HealthCheck(context.Background()) }
	}
	return nil
}

func (a *App) openCache() error {
	ttl := time.Duration(a.Config.Cache.TTLMinutes) * time.Minute

	switch a.Config.Cache.Backend {
	case config.CacheBackendRedis:
		c, err := rediscache.New(&rediscache.Config{
			Addr:          a.Config.Redis.Addr(),
			Password:      a.Config.Redis.Password,
			DB:            a.Config.Redis.DB,
			TTL:           ttl,
			EnableMetrics: a.Config.Cache.Metrics,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.Cache = c
		a.Logger.Info("using redis id cache", zap.String("addr", a.Config.Redis.Addr()))

	default:
		a.Cache = memorycache.New(&memorycache.Config{
			MaxSizeBytes:  a.Config.Cache.MaxMemoryBytes,
			TTL:           ttl,
			EnableMetrics: a.Config.Cache.Metrics,
		})
	}
	a.closers = append(a.closers, a.Cache.Close)
	return nil
}

// HealthCheck reports whether the store is reachable
func (a *App) HealthCheck() error {
	return a.healthCheck()
}

// Close releases everything New opened, in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
