package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/internal/tool"
)

func toolsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, config.Overrides{})
			if err != nil {
				return err
			}
			logger := newLogger(g, cfg)
			a, err := newToolApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			tools, err := buildAll(a.Tools, cfg.DefaultProvider, logger)
			if err != nil {
				return err
			}
			defer closeTools(tools, logger)
			printTools(cmd.OutOrStdout(), tools)
			return nil
		},
	}
}

// buildAll instantiates every registered tool.
func buildAll(r *tool.Registry, providerName string, logger *slog.Logger) ([]tool.Tool, error) {
	return r.Build(r.Names(), tool.Options{Provider: providerName, Logger: logger})
}

func closeTools(tools []tool.Tool, logger *slog.Logger) {
	var errs []error
	for _, t := range tools {
		if c, ok := t.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("closing tools failed", "error", err)
	}
}

func printTools(w io.Writer, tools []tool.Tool) {
	fmt.Fprintln(w, "Available tools:")
	for _, t := range tools {
		summary, _, _ := strings.Cut(strings.TrimSpace(t.Description()), "\n")
		fmt.Fprintf(w, "  %-28s %s\n", t.Name(), summary)
	}
}
