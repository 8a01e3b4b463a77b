package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/internal/tool"
	"github.com/flemzord/sweagent/modules/tool/ckgtool"
	"github.com/flemzord/sweagent/pkg/app"
)

func ckgCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ckg",
		Short: "Operate the code knowledge graph index",
	}
	cmd.AddCommand(ckgBuildCmd(g), ckgQueryCmd(g), ckgSweepCmd(g))
	return cmd
}

func ckgBuildCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build <path>",
		Short: "Index a codebase, reusing the store while it is unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, config.Overrides{})
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			manager := app.NewManager(cfg, newLogger(g, cfg), nil)

			start := time.Now()
			db, err := manager.Open(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			fmt.Fprintf(cmd.OutOrStdout(), "Index for %s ready at %s (%s)\n", root, db.Path, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func ckgQueryCmd(g *globalFlags) *cobra.Command {
	var noBody bool
	cmd := &cobra.Command{
		Use:       "query <path> <search_function|search_class|search_class_method> <identifier>",
		Short:     "Look up functions, classes or methods by name",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"search_function", "search_class", "search_class_method"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, config.Overrides{})
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			logger := newLogger(g, cfg)
			t := ckgtool.New(app.NewManager(cfg, logger, nil), tool.Options{Logger: logger})
			defer func() { _ = t.Close() }()

			res, err := t.Execute(cmd.Context(), map[string]any{
				"command":    args[1],
				"path":       root,
				"identifier": args[2],
				"print_body": !noBody,
			})
			if err != nil {
				return err
			}
			if res.Error != "" {
				return errors.New(res.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBody, "no-body", false, "Omit function and class bodies")
	return cmd
}

func ckgSweepCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete index stores older than the retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, config.Overrides{})
			if err != nil {
				return err
			}
			manager := app.NewManager(cfg, newLogger(g, cfg), nil)
			n, err := manager.Sweep(time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale stores from %s\n", n, manager.Dir)
			return nil
		},
	}
}

