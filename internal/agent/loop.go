package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
	"github.com/flemzord/sweagent/internal/trajectory"
)

var tracer = otel.Tracer("github.com/flemzord/sweagent/internal/agent")

// ErrStepPanic wraps a panic recovered inside a step.
var ErrStepPanic = errors.New("agent: step panicked")

// LLM is the model conversation the loop drives. *llm.Client satisfies it.
type LLM interface {
	Chat(ctx context.Context, msgs []provider.LLMMessage, tools []tool.Tool) (provider.CompletionResponse, error)
}

// Options holds the dependencies of an Agent. LLM and Executor are
// required; everything else has a default.
type Options struct {
	Config    Config
	LLM       LLM
	Executor  *tool.Executor
	Policy    CompletionPolicy
	Reflector Reflector
	Recorder  Recorder
	Observers []Observer
	Metrics   Metrics
	Logger    *slog.Logger
}

// Agent runs tasks through the execution loop. The loop itself carries no
// task policy: completion and reflection are delegated.
type Agent struct {
	cfg       Config
	llm       LLM
	executor  *tool.Executor
	policy    CompletionPolicy
	reflector Reflector
	recorder  Recorder
	observers []Observer
	metrics   Metrics
	logger    *slog.Logger
}

// New creates an Agent.
func New(opts Options) *Agent {
	a := &Agent{
		cfg:       opts.Config.withDefaults(),
		llm:       opts.LLM,
		executor:  opts.Executor,
		policy:    opts.Policy,
		reflector: opts.Reflector,
		recorder:  opts.Recorder,
		observers: opts.Observers,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if a.executor == nil {
		a.executor = tool.NewExecutor(nil)
	}
	if a.policy == nil {
		a.policy = KeywordPolicy{}
	}
	if a.reflector == nil {
		a.reflector = FailureReflector{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "agent")
	return a
}

// MaxSteps returns the configured step budget.
func (a *Agent) MaxSteps() int { return a.cfg.MaxSteps }

// Tools returns the tools offered to the model.
func (a *Agent) Tools() []tool.Tool { return a.executor.Tools() }

// AddObserver registers o for subsequent runs.
func (a *Agent) AddObserver(o Observer) {
	a.observers = append(a.observers, o)
}

// SetRecorder replaces the step recorder. Nil disables recording.
func (a *Agent) SetRecorder(r Recorder) {
	a.recorder = r
}

// Execute runs task starting from initial, the system prompt and task
// description. It never fails: every outcome, including errors and an
// exhausted budget, is reported through the returned Execution.
func (a *Agent) Execute(ctx context.Context, task string, initial []provider.LLMMessage) (exec *Execution) {
	start := time.Now()
	exec = &Execution{Task: task}

	ctx, span := tracer.Start(ctx, "agent.execute", trace.WithAttributes(attribute.Int("agent.max_steps", a.cfg.MaxSteps)))
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			exec.Success = false
			exec.FinalResult = fmt.Sprintf("%s%v", failedPrefix, r)
		}
		exec.ExecutionTime = time.Since(start)
		span.SetAttributes(attribute.Int("agent.steps", len(exec.Steps)), attribute.Bool("agent.success", exec.Success))
		if !exec.Success {
			span.SetStatus(codes.Error, exec.FinalResult)
		}
		span.End()
		if a.metrics != nil {
			a.metrics.ObserveExecution(exec.Success, exec.ExecutionTime)
		}
		a.logger.Info("agent execution finished",
			"success", exec.Success,
			"steps", len(exec.Steps),
			"elapsed", exec.ExecutionTime,
		)
	}()

	messages := initial
	stepNumber := 1
	for stepNumber <= a.cfg.MaxSteps {
		step := &Step{Number: stepNumber, State: StateThinking}

		next, err := a.runStep(ctx, step, messages, exec)
		if err != nil {
			step.State = StateError
			step.Error = err.Error()
			a.notifyState(*step)
			a.finishStep(step, messages, exec)
			break
		}

		messages = next
		a.finishStep(step, messages, exec)
		if step.State == StateCompleted {
			break
		}
		stepNumber++
	}

	if stepNumber > a.cfg.MaxSteps && !exec.Success {
		exec.FinalResult = ExceededStepsMessage
	}
	return exec
}

// runStep performs one iteration and returns the messages for the next.
// A panic anywhere in the step is converted into the returned error.
func (a *Agent) runStep(ctx context.Context, step *Step, messages []provider.LLMMessage, exec *Execution) (next []provider.LLMMessage, err error) {
	ctx, span := tracer.Start(ctx, "agent.step", trace.WithAttributes(attribute.Int("agent.step", step.Number)))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanic, r)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("agent.state", string(step.State)))
		span.End()
	}()

	a.notifyState(*step)
	resp, err := a.llm.Chat(ctx, messages, a.executor.Tools())
	if err != nil {
		return nil, err
	}
	step.Response = &resp
	step.Usage = resp.Usage
	exec.TotalTokens = exec.TotalTokens.Add(resp.Usage)
	a.notifyState(*step)

	if a.policy.IndicatesCompletion(resp) {
		if a.policy.IsActuallyComplete(ctx, resp) {
			step.State = StateCompleted
			exec.FinalResult = resp.Content
			exec.Success = true
			a.notifyState(*step)
			return messages, nil
		}
		step.State = StateThinking
		return []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: a.policy.IncompleteMessage()}}, nil
	}

	return a.handleToolCalls(ctx, step, resp.ToolCalls), nil
}

// handleToolCalls dispatches the calls of a reply and builds the next
// turn: one user message per result, then the reflection if any.
func (a *Agent) handleToolCalls(ctx context.Context, step *Step, calls []tool.Call) []provider.LLMMessage {
	if len(calls) == 0 {
		return []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: NotCompletedMessage}}
	}

	step.State = StateCallingTool
	step.ToolCalls = calls
	a.notifyState(*step)

	results := a.executor.Run(ctx, calls, a.cfg.ParallelToolCalls)
	step.ToolResults = results
	a.notifyState(*step)

	next := make([]provider.LLMMessage, 0, len(results)+1)
	for i := range results {
		result := results[i]
		next = append(next, provider.LLMMessage{Role: provider.MessageRoleUser, ToolResult: &result})
	}

	if reflection := a.reflector.Reflect(results); reflection != "" {
		step.State = StateReflecting
		step.Reflection = reflection
		a.notifyState(*step)
		next = append(next, provider.LLMMessage{Role: provider.MessageRoleAssistant, Content: reflection})
	}
	return next
}

// finishStep records the step, notifies observers and appends it.
func (a *Agent) finishStep(step *Step, messages []provider.LLMMessage, exec *Execution) {
	if a.recorder != nil {
		a.recorder.RecordStep(stepRecord(*step, messages))
	}
	if a.metrics != nil {
		a.metrics.ObserveStep(string(step.State))
	}
	for _, o := range a.observers {
		o.OnStepFinished(*step)
	}
	exec.Steps = append(exec.Steps, *step)
}

func (a *Agent) notifyState(step Step) {
	for _, o := range a.observers {
		o.OnStateChange(step)
	}
}

func stepRecord(step Step, messages []provider.LLMMessage) trajectory.StepRecord {
	return trajectory.StepRecord{
		StepNumber:  step.Number,
		State:       string(step.State),
		Messages:    messages,
		Response:    step.Response,
		ToolCalls:   step.ToolCalls,
		ToolResults: step.ToolResults,
		Reflection:  step.Reflection,
		Error:       step.Error,
	}
}
