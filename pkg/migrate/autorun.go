package migrate

import (
	"context"
	"fmt"

	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/db"
	"github.com/microip/storefront-backend/pkg/logger"
)

// MaybeRun applies the embedded migrations when the SQL storage backend is selected and
// either the app runs in dev mode or auto-migrate is switched on.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.Storage.Backend() != config.StorageBackendSQL || client == nil {
		return nil
	}
	if !cfg.App.IsDev() && !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	logg.Info(ctx, "running goose migrations")

	applied, err := UpEmbedded(ctx, sqlDB, client.Dialect())
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "applied", len(applied)), "goose migrations completed")
	return nil
}
