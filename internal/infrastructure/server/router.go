package server

import (
	"log/slog"
	"net/http"

	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/handler"
	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/handler/middleware"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/observability"
)

// EventsRoute is the webhook pattern; the wildcard selects the bot.
const EventsRoute = "/events/{" + handler.RoutingKeyParam + "}"

// Handlers holds all HTTP handlers. Metrics is optional.
type Handlers struct {
	Events  *handler.SlackEventsHandler
	Health  *handler.HealthHandler
	Ready   *handler.ReadyHandler
	Metrics *handler.MetricsHandler
}

// NewRouter creates the HTTP router with all handlers.
func NewRouter(handlers *Handlers, logger *slog.Logger, metrics *observability.Metrics) http.Handler {
	mux := http.NewServeMux()

	route := func(method, path string, h http.Handler) {
		mux.Handle(method+" "+path, middleware.Observability(metrics, path)(h))
	}

	route(http.MethodGet, "/health", handlers.Health)
	route(http.MethodGet, "/ready", handlers.Ready)
	route(http.MethodPost, EventsRoute, handlers.Events)

	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}

	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
