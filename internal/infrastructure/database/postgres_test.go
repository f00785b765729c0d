package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func TestPostgres_Close(t *testing.T) {
	pg := &Postgres{DB: nil}
	if err := pg.Close(); err != nil {
		t.Errorf("Postgres.Close() with nil DB error = %v", err)
	}
}

func unreachableConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:            "invalid-host-that-does-not-exist",
		Port:            5432,
		User:            "invalid",
		Password:        "invalid",
		Database:        "invalid",
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
}

func TestNewPostgres(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		wantCancel bool
	}{
		{
			name: "異常系: 接続できないホスト",
			ctx:  context.Background(),
		},
		{
			name:       "異常系: キャンセル済みのコンテキスト",
			ctx:        canceled,
			wantCancel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := NewPostgres(tt.ctx, unreachableConfig(), zap.NewNop())
			if err == nil {
				pg.Close()
				t.Fatal("NewPostgres() error = nil, want error")
			}
			if got := errors.Is(err, context.Canceled); got != tt.wantCancel {
				t.Errorf("errors.Is(NewPostgres(), context.Canceled) = %v, want %v (%v)", got, tt.wantCancel, err)
			}
		})
	}
}

func TestPostgres_HealthCheck_Canceled(t *testing.T) {
	// sqlx.Open does not dial, so the pool stays empty
	db, err := sqlx.Open("postgres", unreachableConfig().ConnectionString())
	if err != nil {
		t.Fatalf("sqlx.Open() error = %v", err)
	}
	pg := &Postgres{DB: db, logger: zap.NewNop()}
	defer pg.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pg.HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestMigrateLogger_Verbose(t *testing.T) {
	dev, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("zap.NewDevelopment() error = %v", err)
	}

	tests := []struct {
		name   string
		logger *zap.Logger
		want   bool
	}{
		{name: "正常系: debug 有効", logger: dev, want: true},
		{name: "正常系: 出力なし", logger: zap.NewNop(), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &migrateLogger{logger: tt.logger}
			if got := l.Verbose(); got != tt.want {
				t.Errorf("migrateLogger.Verbose() = %v, want %v", got, tt.want)
			}
			l.Printf("applied %d", 1)
		})
	}
}

// TestPostgres_Migrations applies the graph migrations to a real database.
// It runs only when DB_PASSWORD is set.
func TestPostgres_Migrations(t *testing.T) {
	if os.Getenv("DB_PASSWORD") == "" {
		t.Skip("DB_PASSWORD not set, skipping integration test")
	}
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx := context.Background()
	pg, err := NewPostgres(ctx, &cfg.Database, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	defer pg.Close()

	if err := pg.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	// running twice is a no-op
	for i := 0; i < 2; i++ {
		if err := pg.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			t.Fatalf("RunMigrations() run %d error = %v", i+1, err)
		}
	}

	for _, table := range []string{"entries", "tags", "entry_tags", "relation_types", "relations", "team_tokens"} {
		var exists bool
		err := pg.DB.Get(&exists, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table)
		if err != nil {
			t.Fatalf("table lookup error = %v", err)
		}
		if !exists {
			t.Errorf("table %s missing after migrations", table)
		}
	}
}
