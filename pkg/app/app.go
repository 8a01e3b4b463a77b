// Package app wires configuration, the model backend, tools, and the
// observability surfaces into a runnable agent for the sweagent binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/sweagent/internal/agent"
	"github.com/flemzord/sweagent/internal/agent/swe"
	"github.com/flemzord/sweagent/internal/ckg"
	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/internal/cron"
	"github.com/flemzord/sweagent/internal/gateway"
	"github.com/flemzord/sweagent/internal/llm"
	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/telemetry"
	"github.com/flemzord/sweagent/internal/tool"
	"github.com/flemzord/sweagent/internal/trajectory"
)

// Errors returned by RunTask.
var (
	ErrNoTask  = errors.New("app: task is required")
	ErrNoModel = errors.New("app: built without a model client")
)

// Options configures New.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Backend replaces the provider built from the configuration.
	Backend provider.Provider
	// WithoutModel skips the model client, for commands that only serve
	// tools.
	WithoutModel bool
}

// App holds the long-lived components shared by every task of a process.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	CKG     *ckg.Manager
	Tools   *tool.Registry
	// LLM is nil when built WithoutModel.
	LLM *llm.Client
	// Gateway is nil unless telemetry.metrics_addr is set.
	Gateway *gateway.Gateway

	scheduler       *cron.Scheduler
	shutdownTracing telemetry.ShutdownFunc
}

// New builds an App from opts.Config.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewMetrics()
	manager := NewManager(cfg, logger, metrics)
	tools, err := NewRegistry(cfg, manager)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	a := &App{
		Config:          cfg,
		Logger:          logger,
		Metrics:         metrics,
		CKG:             manager,
		Tools:           tools,
		shutdownTracing: shutdown,
	}
	if !opts.WithoutModel {
		a.LLM, err = newClient(cfg, opts.Backend, logger)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		a.LLM.SetMetrics(metrics)
	}
	if cfg.Telemetry.MetricsAddr != "" {
		gw := gateway.Options{
			Config: gateway.Config{
				Bind: cfg.Telemetry.MetricsAddr,
				Auth: gateway.AuthConfig{BearerToken: cfg.Telemetry.GatewayToken},
			},
			Metrics: metrics.Handler(),
			Logger:  logger,
		}
		if a.LLM != nil {
			gw.Breaker = a.LLM
		}
		a.Gateway = gateway.New(gw)
	}
	return a, nil
}

func newClient(cfg *config.Config, backend provider.Provider, logger *slog.Logger) (*llm.Client, error) {
	name := cfg.DefaultProvider
	params, err := cfg.ProviderParams(name)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		backend, err = NewProvider(name, params, logger)
		if err != nil {
			return nil, err
		}
	}
	return llm.New(backend, llm.Config{
		Provider:          name,
		Params:            params,
		RetryMinWait:      cfg.LLM.RetryMinWait,
		RetryMaxWait:      cfg.LLM.RetryMaxWait,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Breaker: llm.BreakerConfig{
			Enabled:      cfg.LLM.Breaker.Enabled,
			MinRequests:  cfg.LLM.Breaker.MinRequests,
			FailureRatio: cfg.LLM.Breaker.FailureRatio,
			OpenTimeout:  cfg.LLM.Breaker.OpenTimeout,
		},
	}, logger), nil
}

// TaskParams describes one task run.
type TaskParams struct {
	Task        string
	ProjectPath string
	Issue       string
	BaseCommit  string
	MustPatch   bool
	PatchPath   string
	// TrajectoryFile overrides the timestamped file under trajectory.dir.
	TrajectoryFile string
	// ToolNames overrides tools.enabled.
	ToolNames []string
}

func (p TaskParams) extra() map[string]string {
	extra := map[string]string{"project_path": p.ProjectPath}
	if p.Issue != "" {
		extra["issue"] = p.Issue
	}
	if p.BaseCommit != "" {
		extra["base_commit"] = p.BaseCommit
	}
	if p.MustPatch {
		extra["must_patch"] = "true"
	}
	if p.PatchPath != "" {
		extra["patch_path"] = p.PatchPath
	}
	return extra
}

// TaskResult is the outcome of RunTask.
type TaskResult struct {
	Execution      *agent.Execution
	TrajectoryPath string
}

// RunTask runs one task to completion on a fresh conversation. The
// trajectory is written even when the run fails.
func (a *App) RunTask(ctx context.Context, p TaskParams) (*TaskResult, error) {
	if p.Task == "" {
		return nil, ErrNoTask
	}
	if a.LLM == nil {
		return nil, ErrNoModel
	}
	if p.Issue == "" {
		p.Issue = p.Task
	}

	path := p.TrajectoryFile
	if path == "" {
		path = trajectory.DefaultPath(a.Config.Trajectory.Dir, time.Now())
	}
	recorder := trajectory.New(path, a.Logger)

	a.LLM.SetHistory(nil)
	a.LLM.SetRecorder(recorder)
	defer a.LLM.SetRecorder(nil)

	observers := []agent.Observer{agent.LogObserver{Logger: a.Logger.With("component", "agent")}}
	if a.Gateway != nil {
		a.Gateway.SetTrajectory(recorder)
		observers = append(observers, a.Gateway.Hub())
	}

	names := p.ToolNames
	if names == nil && len(a.Config.Tools.Enabled) > 0 {
		names = a.Config.Tools.Enabled
	}

	runner := swe.New(swe.Options{
		Config: agent.Config{
			MaxSteps:          a.Config.MaxSteps,
			ParallelToolCalls: a.LLM.Params().ParallelToolCalls,
		},
		LLM:         a.LLM,
		Provider:    a.LLM.Provider(),
		Model:       a.LLM.Model(),
		Tools:       a.Tools,
		Recorder:    recorder,
		Observers:   observers,
		Metrics:     a.Metrics,
		ToolMetrics: a.Metrics,
		Sweeper:     a.CKG,
		Logger:      a.Logger,
	})
	defer func() {
		if err := runner.Close(); err != nil {
			a.Logger.Warn("closing tools failed", "error", err)
		}
	}()

	if err := runner.NewTask(p.Task, p.extra(), names); err != nil {
		return nil, err
	}
	exec, err := runner.Execute(ctx)
	return &TaskResult{Execution: exec, TrajectoryPath: recorder.Path()}, err
}

// StartGateway starts the HTTP gateway when one is configured.
func (a *App) StartGateway(ctx context.Context) error {
	if a.Gateway == nil {
		return nil
	}
	return a.Gateway.Start(ctx)
}

// StartScheduler runs the periodic ckg sweep for long-lived modes.
func (a *App) StartScheduler(ctx context.Context) error {
	s := cron.NewScheduler(a.Logger)
	if err := s.Register(&cron.SweepJob{
		Sweeper:      a.CKG,
		ScheduleExpr: a.Config.CKG.SweepSchedule,
		Logger:       a.Logger,
	}); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.scheduler = s
	return nil
}

// Close stops the background components and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.Gateway != nil {
		errs = append(errs, a.Gateway.Stop(ctx))
	}
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
	}
	return errors.Join(errs...)
}
