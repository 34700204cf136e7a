package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	dir     string
	name    string
	version string
}

// command is one -cmd value. Commands with a nil run only touch the
// migrations directory and never open the database.
type command struct {
	offline func(options) error
	run     func(context.Context, *migrate.Runner, options) ([]migrate.Step, error)
}

var commands = map[string]command{
	"create": {offline: func(o options) error {
		if o.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	}},
	"validate": {offline: func(o options) error {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}},
	"up":     {run: gooseCommand("up")},
	"down":   {run: gooseCommand("down")},
	"status": {run: gooseCommand("status")},
	"version": {run: func(ctx context.Context, runner *migrate.Runner, o options) ([]migrate.Step, error) {
		if o.version == "" {
			return nil, errors.New("missing -version for version command")
		}
		return runner.To(ctx, o.version)
	}},
}

func gooseCommand(name string) func(context.Context, *migrate.Runner, options) ([]migrate.Step, error) {
	return func(ctx context.Context, runner *migrate.Runner, _ options) ([]migrate.Step, error) {
		return runner.Run(ctx, name)
	}
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	cmdName := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmdName)
		os.Exit(2)
	}

	if cmd.offline != nil {
		if err := cmd.offline(opts); err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmdName, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmdName,
		"dir": opts.dir,
	})

	if cfg.FeatureFlags.UseSQLite {
		logg.Warn(ctx, "goose migrations target postgres; refusing to run against sqlite")
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, false, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	runner, err := migrate.NewRunner(sqlDB, opts.dir)
	if err != nil {
		logg.Error(ctx, "failed to open migrations", err)
		dbClient.Close()
		os.Exit(1)
	}

	steps, err := cmd.run(ctx, runner, opts)
	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"file":        step.Path,
			"state":       step.State,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migration")
	}
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration command completed")
}
