package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with
// auto-migrate enabled. SQLite connections build their schema on open and are
// left alone.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate || client == nil || client.IsSQLite() {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("migrate: sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded(), nil)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying migrations")
	if err := runner.Run(ctx, "up", ""); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
