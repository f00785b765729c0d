package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/asakaida/eurocore/internal/infrastructure/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var (
	envFlag string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for eurocore",
	Long: `Database migration tool for eurocore.
Manages the PostgreSQL graph tables (entries, tags, relations, team tokens)
using golang-migrate.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			return report(m.Up(), "No migrations to apply", "Migration up completed successfully")
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}
		return withMigrate(func(m *migrate.Migrate) error {
			return report(m.Steps(-steps), "No migrations to rollback",
				fmt.Sprintf("Migration down completed successfully (rolled back %d migration(s))", steps))
		})
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrate(func(m *migrate.Migrate) error {
			return report(m.Migrate(uint(version)),
				fmt.Sprintf("Already at version %d", version),
				fmt.Sprintf("Migration goto %d completed successfully", version))
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Println("Current version: No migrations applied yet")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			if dirty {
				log.Printf("Current version: %d (dirty - migration may have failed)", version)
			} else {
				log.Printf("Current version: %d", version)
			}
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrate(func(m *migrate.Migrate) error {
			if err := m.Force(version); err != nil {
				return fmt.Errorf("migration force failed: %w", err)
			}
			log.Printf("Migration forced to version %d", version)
			return nil
		})
	},
}

func init() {
	// Add global --env flag to all commands
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(upCmd, downCmd, gotoCmd, versionCmd, forceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	log.Printf("Using environment: %s", envFlag)

	// Initialize configuration from .env.{env} file
	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations only apply to STORE_DRIVER=%s, got %s", config.StoreDriverPostgres, cfg.Store.Driver)
	}
	return nil
}

// withMigrate connects, builds a migrate instance over the configured
// migrations path and runs fn with it.
func withMigrate(fn func(m *migrate.Migrate) error) error {
	pg, err := database.NewPostgres(context.Background(), &cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Connected to database: %s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database)
	log.Printf("Using migrations path: %s", cfg.Database.MigrationsPath)

	m, err := pg.Migrator(cfg.Database.MigrationsPath)
	if err != nil {
		pg.Close()
		return err
	}
	// closes the pool too
	defer m.Close()

	return fn(m)
}

// report logs the outcome of a migration step. ErrNoChange is not a failure.
func report(err error, unchanged, done string) error {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println(unchanged)
	case err != nil:
		return err
	default:
		log.Println(done)
	}
	return nil
}
