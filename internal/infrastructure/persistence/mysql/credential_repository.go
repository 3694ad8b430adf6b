package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
)

// CredentialRepository provides MySQL implementation of repository.CredentialRepository.
// Reads go to the replica when one is configured.
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new MySQL-backed credential repository.
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindByRoutingKey returns the credentials for a routing key.
// Returns repository.ErrNotFound if the key is unknown.
func (r *CredentialRepository) FindByRoutingKey(ctx context.Context, routingKey string) (*repository.CredentialRecord, error) {
	query := `
		SELECT routing_key, slack_token, signing_secret,
			loading_message, welcome_message, unanswerable_message
		FROM bots
		WHERE routing_key = ?
	`

	var rec repository.CredentialRecord
	var loading, welcome, unanswerable sql.NullString

	err := r.db.Replica().QueryRowContext(ctx, query, routingKey).Scan(
		&rec.RoutingKey,
		&rec.SlackToken,
		&rec.SigningSecret,
		&loading,
		&welcome,
		&unanswerable,
	)
	if err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("querying bot %s: %w", routingKey, err)
	}

	rec.LoadingMessage = stringValue(loading)
	rec.WelcomeMessage = stringValue(welcome)
	rec.UnanswerableMessage = stringValue(unanswerable)
	return &rec, nil
}

// Save inserts or replaces the record for its routing key.
func (r *CredentialRepository) Save(ctx context.Context, record *repository.CredentialRecord) error {
	query := `
		INSERT INTO bots (
			routing_key, slack_token, signing_secret,
			loading_message, welcome_message, unanswerable_message,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			slack_token = VALUES(slack_token),
			signing_secret = VALUES(signing_secret),
			loading_message = VALUES(loading_message),
			welcome_message = VALUES(welcome_message),
			unanswerable_message = VALUES(unanswerable_message),
			updated_at = VALUES(updated_at)
	`

	now := time.Now().UTC()
	args := []any{
		record.RoutingKey,
		record.SlackToken,
		record.SigningSecret,
		nullString(record.LoadingMessage),
		nullString(record.WelcomeMessage),
		nullString(record.UnanswerableMessage),
		now,
		now,
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if _, err = r.db.Primary().ExecContext(ctx, query, args...); err == nil || !isRetryable(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("upserting bot %s: %w", record.RoutingKey, err)
	}

	return nil
}

// Ping verifies the database connections are alive.
func (r *CredentialRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
