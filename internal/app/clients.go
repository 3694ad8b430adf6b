package app

import (
	"context"
	"fmt"

	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/presenter"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/answer"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/filerelay"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/memory"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/registry"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/resilience"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/slack"
	"github.com/qj0r9j0vc2/answer-bridge/internal/usecase/event"
)

// Clients holds the outbound integrations used by the event pipeline.
type Clients struct {
	Answers   *answer.Client
	Breaker   *resilience.CircuitBreaker
	FileRelay *filerelay.Relay
	Renderer  *presenter.AnswerRenderer
	Verifier  *slack.SignatureVerifier
}

func (app *Application) initializeClients() error {
	cfg := app.config
	logger := &slogAdapter{logger: app.logger}
	metrics := app.telemetry.Metrics

	app.registry = registry.New(app.credentials, logger,
		registry.WithDefaults(cfg.BotDefaults),
		registry.WithSlackAPIURL(cfg.Slack.APIURL),
	)
	if app.fileRepo != nil {
		app.fileRepo.OnReload(func() {
			app.registry.Invalidate()
			app.logger.Info("credentials reloaded, bot cache cleared")
		})
	}

	app.ledger = memory.NewEventLedger(cfg.Ledger.Retention)
	if err := metrics.RegisterLedgerGauge(app.ledger.Len); err != nil {
		return fmt.Errorf("registering ledger gauge: %w", err)
	}

	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:         "answer-service",
		MaxFailures:  cfg.Answer.CircuitBreaker.MaxFailures,
		ResetTimeout: cfg.Answer.CircuitBreaker.ResetTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.RecordCircuitTransition(name, from.String(), to.String())
			app.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	app.clients = &Clients{
		Answers:   answer.NewClient(cfg.Answer.URL, cfg.Answer.Timeout, breaker, logger),
		Breaker:   breaker,
		FileRelay: filerelay.New(cfg.FileUpload.URL, cfg.FileUpload.TempDir, cfg.FileUpload.Timeout, logger),
		Renderer:  presenter.NewAnswerRenderer(presenter.NewHTTPImageProber(cfg.Renderer.ImageProbeTimeout), logger),
		Verifier:  slack.NewSignatureVerifier(),
	}

	app.logger.Info("clients initialized",
		"answer_url", cfg.Answer.URL,
		"file_upload_url", cfg.FileUpload.URL,
		"slack_api_url", cfg.Slack.APIURL,
	)

	return nil
}

// botResolver exposes registry bots to the event pipeline.
type botResolver struct {
	registry *registry.Registry
}

func (r botResolver) Resolve(ctx context.Context, routingKey string) (*event.Bot, error) {
	bot, err := r.registry.Resolve(ctx, routingKey)
	if err != nil {
		return nil, err
	}
	return &event.Bot{Identity: bot.Identity, Platform: bot.Client}, nil
}
