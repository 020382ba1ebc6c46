package storage

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/db"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/migrate"
	pkgredis "github.com/microip/storefront-backend/pkg/redis"
)

// Bundle is the opened backend plus the redis client when one was connected, so the
// idempotency and rate limit middleware can share it.
type Bundle struct {
	Backend Backend
	Redis   *pkgredis.Client
}

// Close releases the backend and the optional redis client once.
func (b *Bundle) Close() error {
	if b == nil {
		return nil
	}
	var err error
	if b.Backend != nil {
		err = multierr.Append(err, b.Backend.Close())
	}
	if b.Redis != nil {
		if _, shared := b.Backend.(*Redis); !shared {
			err = multierr.Append(err, b.Redis.Close())
		}
	}
	return err
}

// Open selects the backend named by MICROIP_STORAGE_BACKEND. A redis client is connected
// whenever redis settings are present, even for the memory and sql backends.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Bundle, error) {
	bundle := &Bundle{}
	if cfg.Redis.Enabled() {
		client, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		bundle.Redis = client
	}

	backend := cfg.Storage.Backend()
	ctx = logg.WithField(ctx, "storage_backend", backend)

	switch backend {
	case config.StorageBackendMemory:
		bundle.Backend = NewMemory()
	case config.StorageBackendRedis:
		if bundle.Redis == nil {
			return nil, fmt.Errorf("redis storage backend requires redis settings")
		}
		bundle.Backend = NewRedis(bundle.Redis)
	case config.StorageBackendSQL:
		client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("connecting database: %w", err), bundle.Close())
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Combine(fmt.Errorf("migrating storage: %w", err), client.Close(), bundle.Close())
		}
		bundle.Backend = NewSQL(client)
	default:
		return nil, multierr.Append(fmt.Errorf("unknown storage backend %q", backend), bundle.Close())
	}

	logg.Info(ctx, "storage backend ready")
	return bundle, nil
}
