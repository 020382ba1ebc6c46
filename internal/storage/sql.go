package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microip/storefront-backend/pkg/db"
	"github.com/microip/storefront-backend/pkg/db/models"
)

// SQL stores entries in the storage_entries table (postgres or sqlite).
type SQL struct {
	client *db.Client
	now    func() time.Time
}

func NewSQL(client *db.Client) *SQL {
	return &SQL{client: client, now: time.Now}
}

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var entry models.StorageEntry
	err := s.client.DB().WithContext(ctx).Where(map[string]any{"key": key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if entry.Expired(s.now().UTC()) {
		_ = s.Delete(ctx, key)
		return "", ErrNotFound
	}
	return entry.Value, nil
}

func (s *SQL) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now().UTC()
	entry := models.StorageEntry{Key: key, Value: value, UpdatedAt: now}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}
	return s.client.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	return s.client.DB().WithContext(ctx).Where(map[string]any{"key": key}).Delete(&models.StorageEntry{}).Error
}

// PurgeExpired removes every entry whose expiry has passed and reports how many went.
func (s *SQL) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.StorageEntry{})
	return res.RowsAffected, res.Error
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *SQL) Close() error {
	return s.client.Close()
}
