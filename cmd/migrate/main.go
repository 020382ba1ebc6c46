package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/db"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommand runs against an open storage database.
type dbCommand func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error

var dbCommands = map[string]dbCommand{
	"up": func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
		return migrate.Run(ctx, sqlDB, dialect, opts.dir, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
		return migrate.Run(ctx, sqlDB, dialect, opts.dir, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
		return migrate.Run(ctx, sqlDB, dialect, opts.dir, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	},
	"embedded": func(ctx context.Context, sqlDB *sql.DB, dialect string, _ options) error {
		applied, err := migrate.UpEmbedded(ctx, sqlDB, dialect)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d embedded migration(s)\n", len(applied))
		return nil
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|embedded|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(logg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(logg *logger.Logger, opts options) error {
	// create and validate only touch files
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		if err := migrate.ValidateEmbedded(); err != nil {
			return fmt.Errorf("embedded: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}

	command, ok := dbCommands[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Version:     cfg.App.Version,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "dir": opts.dir})
	if backend := cfg.Storage.Backend(); backend != config.StorageBackendSQL {
		logg.Warn(logg.WithField(ctx, "storage_backend", backend), "storage backend is not sql; migrating the configured database anyway")
	}

	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	ctx = logg.WithField(ctx, "dialect", client.Dialect())
	logg.Info(ctx, "migrate ready")
	if err := command(ctx, sqlDB, client.Dialect(), opts); err != nil {
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}
