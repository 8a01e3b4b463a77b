package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/internal/config"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with API keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, config.Overrides{})
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := *g
			if len(args) == 1 {
				flags.configPath = args[0]
			}
			cfg, err := loadConfig(&flags, config.Overrides{})
			if err != nil {
				return err
			}
			p := cfg.ModelProviders[cfg.DefaultProvider]
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (provider: %s, model: %s, max steps: %d)\n",
				cfg.DefaultProvider, p.Model, cfg.MaxSteps)
			return nil
		},
	})
	return cmd
}
