package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/literature-backend/pkg/config"
	"github.com/angelmondragon/literature-backend/pkg/db"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at boot in dev when the AutoMigrate
// flag is on. Production deploys run cmd/migrate instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "migrate.autorun.start")

	runner, err := NewRunner(sqlDB, nil, logg)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, "up"); err != nil {
		return err
	}

	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
