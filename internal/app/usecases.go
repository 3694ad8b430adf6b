package app

import (
	"github.com/qj0r9j0vc2/answer-bridge/internal/usecase/event"
)

func (app *Application) initializeUseCases() {
	cfg := app.config
	logger := &slogAdapter{logger: app.logger}

	authenticator := event.NewRequestAuthenticator(app.clients.Verifier, cfg.Auth.MaxRequestAge)
	classifier := event.NewClassifier(logger, cfg.Slack.ProfileLookupConcurrency)

	retry := event.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Slack.Retry.MaxAttempts
	retry.InitialInterval = cfg.Slack.Retry.InitialInterval
	retry.MaxInterval = cfg.Slack.Retry.MaxInterval

	app.handleEvent = event.NewHandleEventUseCase(
		botResolver{registry: app.registry},
		authenticator,
		classifier,
		app.ledger,
		app.clients.FileRelay,
		app.clients.Answers,
		app.clients.Renderer,
		logger,
		event.HandleEventOptions{
			CourtesyNotice: cfg.Messages.CourtesyNotice,
			RetryPolicy:    retry,
			Metrics:        app.telemetry.Metrics,
		},
	)
}
