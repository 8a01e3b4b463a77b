// Package main is the entry point for the sweagent CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "sweagent",
		Short:         "An LLM agent for software engineering tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		versionCmd(),
		runCmd(g),
		interactiveCmd(g),
		toolsCmd(g),
		configCmd(g),
		ckgCmd(g),
		serveMCPCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sweagent %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadConfig reads .env, resolves and loads the configuration, applies
// command-line overrides, and validates the result.
func loadConfig(g *globalFlags, o config.Overrides) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	path, err := config.ResolvePath(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o != (config.Overrides{}) {
		cfg.Apply(o)
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(g *globalFlags, cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel()
	if g.verbose {
		level = slog.LevelDebug
	}
	return app.NewLogger(os.Stderr, cfg, level)
}
