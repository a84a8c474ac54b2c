package main

import (
	"context"
	"os"

	"github.com/deepnoodle-ai/processmap"
	"github.com/deepnoodle-ai/processmap/postgres"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "processmap",
		Usage:                 "Simulate process map workflows with mocks, schema checks and read-only runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("PROCESSMAP_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("PROCESSMAP_LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			orderCommand(),
			validateCommand(),
			runsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func workflowFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "workflow",
		Aliases:  []string{"w"},
		Usage:    "Path to the YAML workflow definition file",
		Required: true,
		Sources:  cli.EnvVars("PROCESSMAP_WORKFLOW"),
	}
}

func mocksFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "mocks",
		Aliases: []string{"m"},
		Usage:   "Path to a YAML mock fixture file",
		Sources: cli.EnvVars("PROCESSMAP_MOCKS"),
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Directory where test runs are stored (default ~/.processmap/runs)",
			Sources: cli.EnvVars("PROCESSMAP_STORE"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "PostgreSQL connection string; stores runs in the database instead of files",
			Sources: cli.EnvVars("PROCESSMAP_DATABASE_URL", "DATABASE_URL"),
		},
	}
}

// openRunStore returns the configured run store and a function that
// releases it.
func openRunStore(ctx context.Context, cmd *cli.Command) (processmap.RunStore, func(), error) {
	if databaseURL := cmd.String("database-url"); databaseURL != "" {
		store, err := postgres.NewRunStore(ctx, postgres.RunStoreOptions{
			DatabaseURL: databaseURL,
			Logger:      newLogger(cmd),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	store, err := processmap.NewFileRunStore(cmd.String("store"))
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}
