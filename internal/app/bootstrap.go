package app

import (
	"fmt"

	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/config"
)

func (app *Application) bootstrap() error {
	// 1. Load configuration
	cfg, err := config.Load(app.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	app.config = cfg

	// 2. Setup logger
	app.setupLogger()

	// 3. Setup telemetry
	if err := app.setupTelemetry(); err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	// 4. Initialize credential storage
	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	// 5. Initialize registry, ledger and outbound clients
	if err := app.initializeClients(); err != nil {
		return fmt.Errorf("initializing clients: %w", err)
	}

	// 6. Initialize use cases
	app.initializeUseCases()

	// 7. Initialize HTTP handlers and server
	app.initializeHandlers()
	app.setupServer()

	return nil
}
