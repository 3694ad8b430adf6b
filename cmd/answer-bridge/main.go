package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/qj0r9j0vc2/answer-bridge/internal/app"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/config"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "answer-bridge",
		Short:         "Bridge Slack mentions to an answer service, one webhook per bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath(), "path to the YAML config file (env CONFIG_PATH)")

	root.AddCommand(newServeCmd(&configPath), newCheckConfigCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(*configPath)
			if err != nil {
				slog.Error("failed to initialize application", "config", *configPath, "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runErr := application.Start(ctx)
			if runErr != nil {
				slog.Error("server error", "error", runErr)
			}
			if err := application.Shutdown(); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
}

func newCheckConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid configuration: %v\n", err)
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configuration OK (%s)\n", *configPath)
			fmt.Fprintf(out, "  port:      %d\n", cfg.Server.Port)
			fmt.Fprintf(out, "  registry:  %s\n", cfg.Registry.Type)
			fmt.Fprintf(out, "  answer:    %s\n", cfg.Answer.URL)
			fmt.Fprintf(out, "  files:     %s\n", cfg.FileUpload.URL)
			return nil
		},
	}
}

func defaultPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

