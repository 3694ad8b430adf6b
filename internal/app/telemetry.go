package app

import (
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/observability"
)

// setupTelemetry initializes OpenTelemetry metrics on the default Prometheus registry.
func (app *Application) setupTelemetry() error {
	telemetry, err := observability.NewTelemetry(observability.ServiceName, Version, nil)
	if err != nil {
		return err
	}

	app.telemetry = telemetry

	app.logger.Info("telemetry initialized",
		"service", observability.ServiceName,
		"metrics_enabled", true,
		"tracing_enabled", false,
	)

	return nil
}
