// Package registry resolves routing keys to bot identities and their Slack clients.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/slack"
)

// Bot is a resolved identity bound to its own Slack client.
type Bot struct {
	Identity *entity.BotIdentity
	Client   *slack.Client
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaults sets the function that fills empty per-bot messages.
func WithDefaults(fn func(repository.CredentialRecord) repository.CredentialRecord) Option {
	return func(r *Registry) {
		r.defaults = fn
	}
}

// WithSlackAPIURL points new clients at a different Web API base URL.
func WithSlackAPIURL(url string) Option {
	return func(r *Registry) {
		r.apiURL = url
	}
}

// Registry caches bots for the process lifetime.
// Concurrent first lookups of a key share one backend call; failures are not cached.
type Registry struct {
	repo     repository.CredentialRepository
	validate *validator.Validate
	defaults func(repository.CredentialRecord) repository.CredentialRecord
	apiURL   string
	logger   logger.Logger

	group singleflight.Group
	bots  sync.Map // routing key -> *Bot
}

// New creates a registry over the given credential backend.
func New(repo repository.CredentialRepository, logger logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the bot for a routing key.
// Unknown keys return an error wrapping domainerrors.ErrBotNotFound.
func (r *Registry) Resolve(ctx context.Context, routingKey string) (*Bot, error) {
	if cached, ok := r.bots.Load(routingKey); ok {
		return cached.(*Bot), nil
	}

	v, err, _ := r.group.Do(routingKey, func() (any, error) {
		if cached, ok := r.bots.Load(routingKey); ok {
			return cached, nil
		}

		bot, err := r.load(ctx, routingKey)
		if err != nil {
			return nil, err
		}

		actual, _ := r.bots.LoadOrStore(routingKey, bot)
		r.logger.Info("bot registered", "routing_key", routingKey)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bot), nil
}

func (r *Registry) load(ctx context.Context, routingKey string) (*Bot, error) {
	rec, err := r.repo.FindByRoutingKey(ctx, routingKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("routing key %q: %w", routingKey, domainerrors.ErrBotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up routing key %q: %w", routingKey, err)
	}

	if err := r.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("routing key %q: %w: %v", routingKey, repository.ErrInvalidRecord, err)
	}

	record := *rec
	if r.defaults != nil {
		record = r.defaults(record)
	}

	return &Bot{
		Identity: &entity.BotIdentity{
			RoutingKey:          record.RoutingKey,
			Token:               record.SlackToken,
			SigningSecret:       record.SigningSecret,
			LoadingMessage:      record.LoadingMessage,
			WelcomeMessage:      record.WelcomeMessage,
			UnanswerableMessage: record.UnanswerableMessage,
		},
		Client: slack.NewClient(record.SlackToken, r.apiURL),
	}, nil
}

// Invalidate drops cached bots so the next event reloads them.
// With no keys every entry is dropped.
func (r *Registry) Invalidate(routingKeys ...string) {
	if len(routingKeys) == 0 {
		r.bots.Range(func(key, _ any) bool {
			r.bots.Delete(key)
			return true
		})
		return
	}
	for _, key := range routingKeys {
		r.bots.Delete(key)
	}
}

// Ping checks the credential backend when it supports it.
func (r *Registry) Ping(ctx context.Context) error {
	if p, ok := r.repo.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
