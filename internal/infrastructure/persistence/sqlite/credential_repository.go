package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
)

// CredentialRepository provides SQLite implementation of repository.CredentialRepository.
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new SQLite-backed credential repository.
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindByRoutingKey returns the credentials for a routing key.
// Returns repository.ErrNotFound if the key is unknown.
func (r *CredentialRepository) FindByRoutingKey(ctx context.Context, routingKey string) (*repository.CredentialRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT routing_key, slack_token, signing_secret,
			loading_message, welcome_message, unanswerable_message
		FROM bots WHERE routing_key = ?
	`, routingKey)

	var rec repository.CredentialRecord
	var loading, welcome, unanswerable sql.NullString
	err := row.Scan(&rec.RoutingKey, &rec.SlackToken, &rec.SigningSecret, &loading, &welcome, &unanswerable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bot: %w", err)
	}

	rec.LoadingMessage = stringFromNull(loading)
	rec.WelcomeMessage = stringFromNull(welcome)
	rec.UnanswerableMessage = stringFromNull(unanswerable)
	return &rec, nil
}

// Save inserts or replaces the record for its routing key.
func (r *CredentialRepository) Save(ctx context.Context, record *repository.CredentialRecord) error {
	now := timeToString(time.Now())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bots (
			routing_key, slack_token, signing_secret,
			loading_message, welcome_message, unanswerable_message,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(routing_key) DO UPDATE SET
			slack_token = excluded.slack_token,
			signing_secret = excluded.signing_secret,
			loading_message = excluded.loading_message,
			welcome_message = excluded.welcome_message,
			unanswerable_message = excluded.unanswerable_message,
			updated_at = excluded.updated_at
	`,
		record.RoutingKey,
		record.SlackToken,
		record.SigningSecret,
		nullString(record.LoadingMessage),
		nullString(record.WelcomeMessage),
		nullString(record.UnanswerableMessage),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert bot %s: %w", record.RoutingKey, err)
	}

	return nil
}

// Ping verifies the database connection is alive.
func (r *CredentialRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
