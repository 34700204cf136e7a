package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Step is one migration touched or inspected by a command.
type Step struct {
	Version  int64
	Path     string
	State    string
	Duration time.Duration
}

// Runner applies the SQL files in one directory to a Postgres database. It
// never closes the database it was given.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Run executes up, down or status.
func (r *Runner) Run(ctx context.Context, command string) ([]Step, error) {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		return applied(results), wrap("up", err)
	case "down":
		result, err := r.provider.Down(ctx)
		if result == nil {
			return nil, wrap("down", err)
		}
		return applied([]*goose.MigrationResult{result}), wrap("down", err)
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return nil, wrap("status", err)
		}
		steps := make([]Step, 0, len(statuses))
		for _, s := range statuses {
			steps = append(steps, Step{Version: s.Source.Version, Path: s.Source.Path, State: string(s.State)})
		}
		return steps, nil
	}
	return nil, fmt.Errorf("unsupported goose command %q", command)
}

// To moves the schema up or down to the YYYYMMDDHHMMSS version given.
func (r *Runner) To(ctx context.Context, rawVersion string) ([]Step, error) {
	target, err := ParseVersion(rawVersion)
	if err != nil {
		return nil, err
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("version", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	return applied(results), wrap(fmt.Sprintf("migrate to %d", target), err)
}

func applied(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:  res.Source.Version,
			Path:     res.Source.Path,
			State:    res.Direction,
			Duration: res.Duration,
		})
	}
	return steps
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

// ParseVersion parses a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	if len(raw) != 14 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", raw, err)
	}
	return v, nil
}
