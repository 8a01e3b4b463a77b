package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/sweagent/pkg/app"
)

const interactiveHelp = `Commands:
  help         show this help
  status       show the model, the repository and the last trajectory
  clear        clear the screen
  exit, quit   leave interactive mode
Anything else is run as a task.`

// prompter asks the user for one line of input.
type prompter interface {
	Ask(title, placeholder string) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) Ask(title, placeholder string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&value).
		Run()
	return strings.TrimSpace(value), err
}

// taskRunner is the part of *app.App the session drives.
type taskRunner interface {
	RunTask(ctx context.Context, p app.TaskParams) (*app.TaskResult, error)
}

// session is the state of one interactive run.
type session struct {
	prompt   prompter
	runner   taskRunner
	out      io.Writer
	flags    *taskFlags
	provider string
	model    string
	maxSteps int

	projectPath    string
	lastTrajectory string
}

func interactiveCmd(g *globalFlags) *cobra.Command {
	f := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Run tasks one after another from a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			if err := a.StartScheduler(ctx); err != nil {
				return err
			}

			s := &session{
				prompt:      huhPrompter{},
				runner:      a,
				out:         cmd.OutOrStdout(),
				flags:       f,
				provider:    a.LLM.Provider(),
				model:       a.LLM.Model(),
				maxSteps:    cfg.MaxSteps,
				projectPath: projectPath,
			}
			return s.loop(ctx)
		},
	}
	f.register(cmd)
	return cmd
}

// loop reads tasks until exit, quit, an aborted prompt, or ctx is done.
func (s *session) loop(ctx context.Context) error {
	fmt.Fprintln(s.out, "sweagent interactive mode. Type 'help' for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := s.prompt.Ask("Task", "describe what to do, or 'help'")
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		case "help":
			fmt.Fprintln(s.out, interactiveHelp)
			continue
		case "status":
			s.status()
			continue
		case "clear":
			fmt.Fprint(s.out, "\033[H\033[2J")
			continue
		}

		if err := s.runTask(ctx, input); err != nil {
			return err
		}
	}
}

func (s *session) runTask(ctx context.Context, task string) error {
	dir, err := s.prompt.Ask("Working directory", s.projectPath)
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return err
	}
	if dir != "" {
		s.flags.workingDir = dir
		path, err := s.flags.projectPath()
		if err != nil {
			fmt.Fprintln(s.out, "Error:", err)
			return nil
		}
		s.projectPath = path
	}

	params := s.flags.params(task, s.projectPath)
	// Every task gets its own timestamped trajectory.
	params.TrajectoryFile = ""
	res, err := s.runner.RunTask(ctx, params)
	if res != nil {
		printResult(s.out, res)
		s.lastTrajectory = res.TrajectoryPath
	}
	if err != nil {
		fmt.Fprintln(s.out, "Error:", err)
	}
	return nil
}

func (s *session) status() {
	fmt.Fprintf(s.out, "Provider: %s\nModel: %s\nMax steps: %d\nWorking directory: %s\n",
		s.provider, s.model, s.maxSteps, s.projectPath)
	if s.lastTrajectory != "" {
		fmt.Fprintf(s.out, "Last trajectory: %s\n", s.lastTrajectory)
	}
}
