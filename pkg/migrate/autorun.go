package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations when running in dev with the
// AutoMigrate flag set. SQLite databases are skipped because the migrations
// use Postgres enum and jsonb types.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	if cfg.FeatureFlags.UseSQLite {
		logg.Warn(ctx, "skipping goose auto-run on sqlite")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, DefaultDir)
	if err != nil {
		return err
	}
	steps, err := runner.Run(ctx, "up")
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(steps)), "dev auto-migrate completed")
	return nil
}
