package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/feastflow-backend/pkg/config"
	"github.com/angelmondragon/feastflow-backend/pkg/db"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
)

// MaybeRun brings the schema up to date at boot when FEASTFLOW_AUTO_MIGRATE is set.
// SQLite dev databases use gorm AutoMigrate on models; Postgres runs the goose
// migrations, and only outside prod.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, models ...any) error {
	if client == nil || !cfg.Features.AutoMigrate {
		return nil
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})
	}

	if client.Driver() == db.DriverSQLite {
		if err := client.DB().WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
		if logg != nil {
			logg.Info(ctx, "sqlite schema auto-migrated")
		}
		return nil
	}

	if cfg.App.IsProd() {
		if logg != nil {
			logg.Warn(ctx, "auto-migrate ignored in prod; run cmd/migrate")
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "running goose migrations")
	}
	if err := Run(ctx, sqlDB, DialectFor(client.Driver()), "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "goose migrations completed")
	}
	return nil
}
