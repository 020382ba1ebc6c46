package storage

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/microip/storefront-backend/pkg/redis"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a string key/value store. A zero ttl keeps the entry until it is deleted.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key namespaces a per-visitor entry, e.g. mip:wishlist:<session>.
func Key(scope, sessionID string) string {
	return pkgredis.BuildKey(scope, sessionID)
}

// Purger is implemented by backends that do not expire entries on their own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
