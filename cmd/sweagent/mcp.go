package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/internal/mcpserver"
	"github.com/flemzord/sweagent/pkg/app"
)

func serveMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the tool set over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, config.Overrides{})
			if err != nil {
				return err
			}
			logger := newLogger(g, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newToolApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)
			if err := a.StartGateway(ctx); err != nil {
				return err
			}
			if err := a.StartScheduler(ctx); err != nil {
				return err
			}

			tools, err := buildAll(a.Tools, cfg.DefaultProvider, logger)
			if err != nil {
				return err
			}
			defer closeTools(tools, logger)

			srv, err := mcpserver.New("sweagent", version, tools, logger)
			if err != nil {
				return err
			}
			srv.SetRecorder(a.Metrics)
			if err := srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// newToolApp builds an App without a model client.
func newToolApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.App, error) {
	return app.New(ctx, app.Options{Config: cfg, Logger: logger, WithoutModel: true})
}
