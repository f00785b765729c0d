package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/asakaida/eurocore/internal/infrastructure/database"
	"github.com/jmoiron/sqlx"
)

// SetupTestDB creates a test database connection and runs migrations.
// The test is skipped when no database password is configured.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// Initialize test config
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		if os.Getenv("DB_PASSWORD") == "" {
			t.Skipf("Skipping PostgreSQL test: %v", err)
		}
		t.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	pg, err := database.NewPostgres(context.Background(), &cfg.Database, nil)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	migrations := filepath.Join(config.ProjectRoot(), "internal/infrastructure/database/migrations/postgres")
	if err := pg.RunMigrations(migrations); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanTables(t, pg.DB)
	return pg.DB
}

// CleanupTestDB closes the database connection and cleans up test data
func CleanupTestDB(t *testing.T, db *sqlx.DB) {
	t.Helper()

	cleanTables(t, db)

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

func cleanTables(t *testing.T, db *sqlx.DB) {
	t.Helper()

	// Children first
	tables := []string{"team_tokens", "relations", "entry_tags", "relation_types", "tags", "entries"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}
}
