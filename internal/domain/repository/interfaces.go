package repository

import (
	"context"
)

// CredentialRecord is the stored form of a bot's credentials.
type CredentialRecord struct {
	RoutingKey          string `validate:"required" yaml:"routing_key" mapstructure:"routing_key"`
	SlackToken          string `validate:"required" yaml:"slack_token" mapstructure:"slack_token"`
	SigningSecret       string `validate:"required" yaml:"signing_secret" mapstructure:"signing_secret"`
	LoadingMessage      string `yaml:"loading_message" mapstructure:"loading_message"`
	WelcomeMessage      string `yaml:"welcome_message" mapstructure:"welcome_message"`
	UnanswerableMessage string `yaml:"unanswerable_message" mapstructure:"unanswerable_message"`
}

// CredentialRepository resolves routing keys to bot credentials.
// Following ISP: lookups only; provisioning happens out of band.
type CredentialRepository interface {
	// FindByRoutingKey returns the credentials for a routing key.
	// Returns ErrNotFound if the key is unknown.
	FindByRoutingKey(ctx context.Context, routingKey string) (*CredentialRecord, error)
}

// CredentialWriter is implemented by backends that accept new credentials.
type CredentialWriter interface {
	// Save inserts or replaces the record for its routing key.
	Save(ctx context.Context, record *CredentialRecord) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
