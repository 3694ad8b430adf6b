package app

import (
	"context"
	"fmt"

	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/file"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/memory"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/mysql"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/sqlite"
)

func (app *Application) initializeStorage() error {
	cfg := app.config.Registry
	logger := &slogAdapter{logger: app.logger}

	switch cfg.Type {
	case "mysql":
		repos, db, err := mysql.NewRepositories(context.Background(), &cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql init: %w", err)
		}
		app.credentials = repos.Credential
		app.dbCloser = db

		app.logger.Info("MySQL credential registry initialized",
			"host", cfg.MySQL.Primary.Host,
			"database", cfg.MySQL.Primary.Database,
			"replica", cfg.MySQL.Replica.Enabled,
		)

	case "sqlite":
		db, err := sqlite.NewDB(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite init: %w", err)
		}

		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return fmt.Errorf("sqlite migration: %w", err)
		}

		app.credentials = sqlite.NewRepositories(db).Credential
		app.dbCloser = db

		app.logger.Info("SQLite credential registry initialized",
			"path", cfg.SQLite.Path,
		)

	case "file":
		repo, err := file.NewCredentialRepository(cfg.File.Path, logger)
		if err != nil {
			return fmt.Errorf("credentials file init: %w", err)
		}
		app.credentials = repo
		app.fileRepo = repo

		app.logger.Info("file credential registry initialized",
			"path", cfg.File.Path,
			"watch", cfg.File.Watch,
		)

	case "memory", "":
		app.credentials = memory.NewCredentialRepository(cfg.Bots...)

		app.logger.Info("in-memory credential registry initialized",
			"bots", len(cfg.Bots),
		)

	default:
		return fmt.Errorf("unknown registry type: %s", cfg.Type)
	}

	return nil
}
