// Package app wires configuration, storage, clients and the HTTP layer together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/observability"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/file"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/memory"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/registry"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/server"
	"github.com/qj0r9j0vc2/answer-bridge/internal/usecase/event"
)

// Version is reported to telemetry. Overridden at build time.
var Version = "dev"

// Application holds all application dependencies and lifecycle.
type Application struct {
	configPath string
	config     *config.Config
	level      *slog.LevelVar
	logger     *slog.Logger
	telemetry  *observability.Telemetry

	// Storage
	credentials repository.CredentialRepository
	fileRepo    *file.CredentialRepository
	dbCloser    io.Closer

	registry *registry.Registry
	ledger   *memory.EventLedger
	clients  *Clients

	handleEvent *event.HandleEventUseCase

	// HTTP layer
	handlers *server.Handlers
	router   http.Handler
	server   *server.Server
}

// New creates a new Application instance.
func New(configPath string) (*Application, error) {
	app := &Application{configPath: configPath}

	if err := app.bootstrap(); err != nil {
		if app.dbCloser != nil {
			_ = app.dbCloser.Close()
		}
		return nil, err
	}

	return app, nil
}

// Start runs the server and background jobs until ctx is cancelled.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Info("starting answer-bridge",
		"version", Version,
		"port", app.config.Server.Port,
		"registry", app.config.Registry.Type,
	)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(app.config.Ledger.PruneSchedule, app.pruneLedger); err != nil {
		return fmt.Errorf("scheduling ledger pruning: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.server.Run(gctx)
	})

	if app.shouldWatchConfig() {
		g.Go(func() error {
			err := config.Watch(gctx, app.configPath, app.applyConfig, func(err error) {
				app.logger.Warn("config reload rejected", "path", app.configPath, "error", err)
			})
			if err != nil {
				app.logger.Warn("config watch disabled", "error", err)
			}
			return nil
		})
	}

	if app.fileRepo != nil && app.config.Registry.File.Watch {
		g.Go(func() error {
			if err := app.fileRepo.Watch(gctx); err != nil {
				app.logger.Warn("credentials file watch disabled", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Handler returns the routed HTTP handler without starting a listener.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Shutdown releases telemetry and storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down answer-bridge")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error

	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Error("failed to shutdown telemetry", "error", err)
			errs = append(errs, err)
		}
	}

	if app.dbCloser != nil {
		if err := app.dbCloser.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
			errs = append(errs, err)
		}
	}

	app.logger.Info("answer-bridge stopped")
	return errors.Join(errs...)
}

func (app *Application) pruneLedger() {
	if removed := app.ledger.Prune(); removed > 0 {
		app.logger.Debug("pruned event ledger", "removed", removed, "remaining", app.ledger.Len())
	}
}

func (app *Application) shouldWatchConfig() bool {
	if app.configPath == "" {
		return false
	}
	_, err := os.Stat(app.configPath)
	return err == nil
}
