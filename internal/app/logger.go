package app

import (
	"log/slog"
	"os"

	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/config"
)

// setupLogger builds the process logger. The level lives in a LevelVar so
// config reloads can change it without rebuilding the handler.
func (app *Application) setupLogger() {
	app.level = new(slog.LevelVar)
	app.level.Set(parseLevel(app.config.Logging.Level))
	app.logger = newLogger(app.config.Logging.Format, app.level)
	slog.SetDefault(app.logger)
}

func newLogger(format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyConfig is called by the config watcher with each valid reload.
// Only reloadable keys take effect; the rest are logged.
func (app *Application) applyConfig(updated *config.Config) {
	changed := config.ChangedKeys(app.config, updated)
	if len(changed) == 0 {
		return
	}

	for _, key := range changed {
		if !config.IsReloadable(key) {
			app.logger.Warn("config change requires restart",
				"key", key,
				"reason", config.RestartReason(key),
			)
			continue
		}

		switch key {
		case "logging.level":
			app.level.Set(parseLevel(updated.Logging.Level))
			app.config.Logging.Level = updated.Logging.Level
		}
		app.logger.Info("config reloaded", "key", key)
	}
}

// slogAdapter adapts slog.Logger to logger.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Info(msg, keysAndValues...)
}

func (a *slogAdapter) Warn(msg string, keysAndValues ...any) {
	a.logger.Warn(msg, keysAndValues...)
}

func (a *slogAdapter) Error(msg string, keysAndValues ...any) {
	a.logger.Error(msg, keysAndValues...)
}
