package app

import (
	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/handler"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/server"
)

func (app *Application) initializeHandlers() {
	logger := &slogAdapter{logger: app.logger}

	readyHandler := handler.NewReadyHandler()
	readyHandler.AddChecker("registry", app.registry)

	app.handlers = &server.Handlers{
		Events:  handler.NewSlackEventsHandler(app.handleEvent, app.config.Server.MaxBodyBytes, logger),
		Health:  handler.NewHealthHandler(),
		Ready:   readyHandler,
		Metrics: handler.NewMetricsHandler(nil),
	}
}

func (app *Application) setupServer() {
	app.router = server.NewRouter(app.handlers, app.logger, app.telemetry.Metrics)
	app.server = server.New(app.config.Server, app.router, app.logger)
}
