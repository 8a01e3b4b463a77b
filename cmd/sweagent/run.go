package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/pkg/app"
)

var errTaskFailed = errors.New("task did not complete")

// taskFlags configure the model and the repository of a task run.
type taskFlags struct {
	provider       string
	model          string
	baseURL        string
	apiKey         string
	maxSteps       int
	workingDir     string
	mustPatch      bool
	trajectoryFile string
	patchPath      string
	baseCommit     string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.provider, "provider", "p", "", "Model provider (anthropic, openai, openrouter, ollama, azure, doubao, qwen)")
	fl.StringVarP(&f.model, "model", "m", "", "Model name")
	fl.StringVar(&f.baseURL, "model-base-url", "", "Base URL of the provider API")
	fl.StringVarP(&f.apiKey, "api-key", "k", "", "API key, overrides config and environment")
	fl.IntVar(&f.maxSteps, "max-steps", 0, "Maximum number of agent steps")
	fl.StringVarP(&f.workingDir, "working-dir", "w", "", "Repository to work in (default: current directory)")
	fl.BoolVar(&f.mustPatch, "must-patch", false, "Only accept task_done once the diff is non-empty")
	fl.StringVarP(&f.trajectoryFile, "trajectory-file", "t", "", "Trajectory output file")
	fl.StringVar(&f.patchPath, "patch-path", "", "Write the final diff to this file")
	fl.StringVar(&f.baseCommit, "base-commit", "", "Commit the diff is taken against")
}

func (f *taskFlags) overrides() config.Overrides {
	return config.Overrides{
		Provider: f.provider,
		Model:    f.model,
		BaseURL:  f.baseURL,
		APIKey:   f.apiKey,
		MaxSteps: f.maxSteps,
	}
}

// projectPath returns the absolute working directory.
func (f *taskFlags) projectPath() (string, error) {
	dir := f.workingDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %s is not a directory", abs)
	}
	return abs, nil
}

func (f *taskFlags) params(task, projectPath string) app.TaskParams {
	return app.TaskParams{
		Task:           task,
		ProjectPath:    projectPath,
		BaseCommit:     f.baseCommit,
		MustPatch:      f.mustPatch,
		PatchPath:      f.patchPath,
		TrajectoryFile: f.trajectoryFile,
	}
}

func runCmd(g *globalFlags) *cobra.Command {
	f := &taskFlags{}
	var taskFile string
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run one task against a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := readTask(args, taskFile)
			if err != nil {
				return err
			}
			projectPath, err := f.projectPath()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(g, f.overrides())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, app.Options{Config: cfg, Logger: newLogger(g, cfg)})
			if err != nil {
				return err
			}
			defer closeApp(a)
			if err := a.StartGateway(ctx); err != nil {
				return err
			}

			res, err := a.RunTask(ctx, f.params(task, projectPath))
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			if err != nil {
				return err
			}
			if !res.Execution.Success {
				return errTaskFailed
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&taskFile, "file", "f", "", "Read the task from a file")
	return cmd
}

// readTask returns the task from the argument or from file, not both.
func readTask(args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("provide the task as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading task file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", errors.New("a task is required, as an argument or with --file")
}

func printResult(w io.Writer, res *app.TaskResult) {
	exec := res.Execution
	if exec != nil {
		status := "failed"
		if exec.Success {
			status = "completed"
		}
		fmt.Fprintf(w, "Task %s in %d steps (%s)\n", status, len(exec.Steps), exec.ExecutionTime.Round(time.Millisecond))
		if exec.TotalTokens != nil {
			fmt.Fprintf(w, "Tokens: %d input, %d output\n", exec.TotalTokens.InputTokens, exec.TotalTokens.OutputTokens)
		}
		if exec.FinalResult != "" {
			fmt.Fprintf(w, "\n%s\n\n", exec.FinalResult)
		}
	}
	fmt.Fprintf(w, "Trajectory saved to %s\n", res.TrajectoryPath)
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Logger.Warn("shutdown incomplete", "error", err)
	}
}
