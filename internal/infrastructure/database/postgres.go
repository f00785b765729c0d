package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// pingTimeout bounds the connection check of NewPostgres and HealthCheck.
const pingTimeout = 5 * time.Second

// Postgres is a pooled connection to the graph database
type Postgres struct {
	DB     *sqlx.DB
	logger *zap.Logger
}

// NewPostgres opens a pool sized by cfg and fails unless the server answers
// a ping within pingTimeout.
func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pg := &Postgres{DB: db, logger: logger.Named("postgres")}
	if err := pg.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return pg, nil
}

// Migrator returns a golang-migrate instance over the files in migrationsPath.
// The caller closes it; closing it also closes the pool.
func (p *Postgres) Migrator(migrationsPath string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(p.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	m.Log = &migrateLogger{logger: p.logger}
	return m, nil
}

// RunMigrations applies every pending migration. A database already at the
// latest version is left alone. A dirty database is refused.
func (p *Postgres) RunMigrations(migrationsPath string) error {
	m, err := p.Migrator(migrationsPath)
	if err != nil {
		return err
	}
	// closing m would close the shared pool

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at version %d", version)
	}
	p.logger.Info("schema up to date", zap.Uint("version", version))
	return nil
}

// HealthCheck pings the server, giving up after pingTimeout
func (p *Postgres) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the pool
func (p *Postgres) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

// migrateLogger routes golang-migrate output to zap.
type migrateLogger struct {
	logger *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Sugar().Debugf(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
