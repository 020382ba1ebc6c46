package models

import "time"

// StorageEntry is one key/value row backing the SQL storage backend.
// ExpiresAt is nil for entries that never expire.
type StorageEntry struct {
	Key       string     `gorm:"column:key;primaryKey"`
	Value     string     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (StorageEntry) TableName() string {
	return "storage_entries"
}

// Expired reports whether the entry is past its expiry at now.
func (e StorageEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
