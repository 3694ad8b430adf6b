package mysql

import (
	"context"
	"fmt"

	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/config"
)

// Repositories holds all MySQL repository implementations.
type Repositories struct {
	Credential *CredentialRepository
}

// NewRepositories connects, runs migrations and returns the repositories.
func NewRepositories(ctx context.Context, cfg *config.MySQLConfig) (*Repositories, *DB, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("mysql config is required")
	}

	db, err := NewDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating database connection: %w", err)
	}

	if err := NewMigrator(db.Primary()).Up(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Repositories{
		Credential: NewCredentialRepository(db),
	}, db, nil
}
