package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/asakaida/eurocore/internal/bootstrap"
	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/asakaida/eurocore/internal/infrastructure/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

type options struct {
	env    string
	output string
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "Query the eurocore entry graph",
		Long: `Query the eurocore entry graph against the configured store.
Runs relation queries from a YAML file and prints robot and team projections.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != formatYAML && opts.output != formatJSON {
				return fmt.Errorf("unsupported output format %q", opts.output)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.env, "env", "e", "dev", "Environment to use (dev, test, prod)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", formatYAML, "Output format (yaml or json)")

	root.AddCommand(newEvaluateCmd(opts), newRobotCmd(opts), newTeamCmd(opts))
	return root
}

func newEvaluateCmd(opts *options) *cobra.Command {
	var pivot, queriesPath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate relation queries from a pivot entry",
		Example: `  graphctl evaluate --pivot R2 --queries robot.yaml
  graphctl evaluate --pivot 5 --queries robot.yaml -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(queriesPath)
			if err != nil {
				return err
			}
			defer f.Close()

			queries, err := loadQueries(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", queriesPath, err)
			}

			return withApp(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) (any, error) {
				if id, err := strconv.ParseInt(pivot, 10, 64); err == nil {
					return app.Engine.Evaluate(ctx, id, queries)
				}
				return app.Engine.EvaluateEntry(ctx, pivot, queries)
			})
		},
	}
	cmd.Flags().StringVar(&pivot, "pivot", "", "Pivot entry ID or name")
	cmd.Flags().StringVar(&queriesPath, "queries", "", "YAML file holding a list of relation queries")
	_ = cmd.MarkFlagRequired("pivot")
	_ = cmd.MarkFlagRequired("queries")
	return cmd
}

func newRobotCmd(opts *options) *cobra.Command {
	robot := &cobra.Command{Use: "robot", Short: "Robot projections"}
	robot.AddCommand(&cobra.Command{
		Use:   "get <id|name>",
		Short: "Print a robot with its teams, hardware and modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) (any, error) {
				if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
					return app.Robots.GetRobot(ctx, id)
				}
				return app.Robots.GetRobotByName(ctx, args[0])
			})
		},
	})
	return robot
}

func newTeamCmd(opts *options) *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Team projections"}
	team.AddCommand(&cobra.Command{
		Use:   "get <team> <league>",
		Short: "Print a team within a league, both given by ID or both by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) (any, error) {
				teamID, errTeam := strconv.ParseInt(args[0], 10, 64)
				leagueID, errLeague := strconv.ParseInt(args[1], 10, 64)
				if errTeam == nil && errLeague == nil {
					return app.Teams.GetTeam(ctx, teamID, leagueID)
				}
				return app.Teams.GetTeamByName(ctx, args[0], args[1])
			})
		},
	})
	team.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every team in every league",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) (any, error) {
				return app.Teams.ListTeams(ctx)
			})
		},
	})
	return team
}

// withApp loads the configuration, opens the store, runs fn and prints its result.
func withApp(ctx context.Context, opts *options, fn func(context.Context, *bootstrap.App) (any, error)) error {
	if err := config.InitConfig(opts.env); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	result, err := fn(ctx, app)
	if err != nil {
		return err
	}
	return writeOutput(opts.out, opts.output, result)
}

// queryFile accepts either a bare list of queries or a document with a
// top level "queries" key.
type queryFile struct {
	Queries []entities.RelationQuery `yaml:"queries"`
}

func loadQueries(r io.Reader) ([]entities.RelationQuery, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var queries []entities.RelationQuery
	if err := yaml.Unmarshal(data, &queries); err != nil {
		var doc queryFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		queries = doc.Queries
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries found")
	}
	for i := range queries {
		if err := queries[i].Validate(); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
	}
	return queries, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
