package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestUpEmbeddedCreatesStorageEntries(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	applied, err := UpEmbedded(context.Background(), sqlDB, "sqlite3")
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected at least one migration to apply")
	}
	if !conn.Migrator().HasTable("storage_entries") {
		t.Fatal("expected storage_entries table")
	}

	again, err := UpEmbedded(context.Background(), sqlDB, "sqlite3")
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no pending migrations, got %v", again)
	}
}

func TestUpEmbeddedRequiresDB(t *testing.T) {
	if _, err := UpEmbedded(context.Background(), nil, "sqlite3"); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
}

func TestCreateSQLMigrationWritesValidFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, " Add Wishlist Index! ", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260301120000_add_wishlist_index.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
		t.Fatalf("template missing goose markers: %s", body)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate created file: %v", err)
	}

	if _, err := createSQLMigrationAt(dir, "add wishlist index", now); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if _, err := createSQLMigrationAt(dir, "!!!", now); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected empty dir to fail")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260301120000_missing_down.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing down marker to fail")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260301120000_reversed.sql"), []byte("-- +goose Down\n-- +goose Up\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected reversed sections to fail")
	}
}
