// Package swe specializes the agent loop for repository work: it sets up
// the task from a project path and an issue, ends the run when the model
// calls task_done with a real patch, and writes the final diff to disk.
package swe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/flemzord/sweagent/internal/agent"
	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

// Setup errors returned by NewTask. Their text is shown to users as is.
var (
	ErrExtraArgsRequired   = errors.New("Project path and issue information are required.") //nolint:staticcheck // user-facing text
	ErrProjectPathRequired = errors.New("Project path is required")                          //nolint:staticcheck // user-facing text
	ErrNoTask              = errors.New("swe: no task set")
)

// DefaultToolNames is the tool set used when NewTask is given none.
var DefaultToolNames = []string{
	"str_replace_based_edit_tool",
	"sequentialthinking",
	"json_edit_tool",
	"task_done",
	"bash",
}

// ToolBuilder instantiates tools by name. *tool.Registry satisfies it.
type ToolBuilder interface {
	Build(names []string, opts tool.Options) ([]tool.Tool, error)
}

// Recorder persists a run. *trajectory.Recorder satisfies it.
type Recorder interface {
	agent.Recorder
	Start(task, providerName, model string, maxSteps int)
	Finalize(success bool, finalResult string)
}

// Sweeper removes stale code knowledge graph stores. *ckg.Manager
// satisfies it.
type Sweeper interface {
	Sweep(now time.Time) (int, error)
}

// Options holds the dependencies of an Agent.
type Options struct {
	Config    agent.Config
	LLM       agent.LLM
	Provider  string
	Model     string
	Tools     ToolBuilder
	Recorder  Recorder
	Observers []agent.Observer
	Metrics   agent.Metrics
	// ToolMetrics observes every tool call of the task.
	ToolMetrics tool.Recorder
	Sweeper     Sweeper
	Logger      *slog.Logger

	// Diff overrides GitDiff for the patch check and the patch file.
	Diff func(ctx context.Context, dir, baseCommit string) string
}

// Agent runs software engineering tasks against a repository.
type Agent struct {
	opts   Options
	logger *slog.Logger

	task      string
	initial   []provider.LLMMessage
	tools     []tool.Tool
	policy    Policy
	patchPath string
	loop      *agent.Agent
}

// New creates an Agent. When a Sweeper is configured, stale knowledge
// graph stores are swept once in the background.
func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{opts: opts, logger: logger.With("component", "swe")}
	if opts.Sweeper != nil {
		go a.sweep(opts.Sweeper)
	}
	return a
}

func (a *Agent) sweep(s Sweeper) {
	n, err := s.Sweep(time.Now())
	if err != nil {
		a.logger.Warn("ckg sweep failed", "error", err)
		return
	}
	if n > 0 {
		a.logger.Info("ckg sweep removed stale stores", "removed", n)
	}
}

// NewTask prepares task. extra must carry project_path and may carry
// issue, base_commit, must_patch ("true" enables the patch check) and
// patch_path. A nil toolNames selects DefaultToolNames.
func (a *Agent) NewTask(task string, extra map[string]string, toolNames []string) error {
	if len(extra) == 0 {
		return ErrExtraArgsRequired
	}
	projectPath, ok := extra["project_path"]
	if !ok {
		return ErrProjectPathRequired
	}
	if toolNames == nil {
		toolNames = DefaultToolNames
	}

	_ = a.closeTools()
	tools, err := a.opts.Tools.Build(toolNames, tool.Options{Provider: a.opts.Provider, Logger: a.logger})
	if err != nil {
		return fmt.Errorf("swe: building tools: %w", err)
	}

	a.task = task
	a.tools = tools
	a.policy = Policy{
		ProjectPath: projectPath,
		BaseCommit:  extra["base_commit"],
		MustPatch:   extra["must_patch"] == "true",
		Diff:        a.opts.Diff,
	}
	a.patchPath = extra["patch_path"]
	a.initial = []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: SystemPrompt},
		{Role: provider.MessageRoleUser, Content: userMessage(projectPath, extra)},
	}

	var recorder agent.Recorder
	if a.opts.Recorder != nil {
		recorder = a.opts.Recorder
	}
	executor := tool.NewExecutor(tools)
	if a.opts.ToolMetrics != nil {
		executor.SetRecorder(a.opts.ToolMetrics)
	}
	a.loop = agent.New(agent.Options{
		Config:    a.opts.Config,
		LLM:       a.opts.LLM,
		Executor:  executor,
		Policy:    a.policy,
		Reflector: agent.NoReflection{},
		Recorder:  recorder,
		Observers: a.opts.Observers,
		Metrics:   a.opts.Metrics,
		Logger:    a.opts.Logger,
	})

	if a.opts.Recorder != nil {
		a.opts.Recorder.Start(task, a.opts.Provider, a.opts.Model, a.loop.MaxSteps())
	}
	a.logger.Info("task prepared", "project_path", projectPath, "tools", toolNames, "must_patch", a.policy.MustPatch)
	return nil
}

// InitialMessages returns the messages the next run starts from.
func (a *Agent) InitialMessages() []provider.LLMMessage {
	return a.initial
}

// Tools returns the tools built for the current task.
func (a *Agent) Tools() []tool.Tool {
	return a.tools
}

// Execute runs the prepared task, finalizes the trajectory and writes
// the patch file when one was requested.
func (a *Agent) Execute(ctx context.Context) (*agent.Execution, error) {
	if a.loop == nil {
		return nil, ErrNoTask
	}

	exec := a.loop.Execute(ctx, a.task, a.initial)

	if a.opts.Recorder != nil {
		a.opts.Recorder.Finalize(exec.Success, exec.FinalResult)
	}
	if a.patchPath != "" {
		diff := a.policy.diff(ctx)
		if err := os.WriteFile(a.patchPath, []byte(diff), 0o644); err != nil {
			return exec, fmt.Errorf("swe: writing patch %s: %w", a.patchPath, err)
		}
		a.logger.Info("patch written", "path", a.patchPath, "bytes", len(diff))
	}
	return exec, nil
}

// Close releases tools holding resources, such as the bash session.
func (a *Agent) Close() error {
	return a.closeTools()
}

func (a *Agent) closeTools() error {
	var errs []error
	for _, t := range a.tools {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	a.tools = nil
	return errors.Join(errs...)
}
