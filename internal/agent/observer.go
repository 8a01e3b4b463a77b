package agent

import (
	"log/slog"
	"time"

	"github.com/flemzord/sweagent/internal/trajectory"
)

// Observer is notified as a run progresses. Steps are passed by value;
// observers must not retain their slices for mutation.
type Observer interface {
	// OnStateChange fires at every state transition within a step.
	OnStateChange(step Step)

	// OnStepFinished fires once a step has been recorded.
	OnStepFinished(step Step)
}

// Recorder persists finished steps. *trajectory.Recorder satisfies it.
type Recorder interface {
	RecordStep(step trajectory.StepRecord)
}

// Metrics receives loop observations.
type Metrics interface {
	ObserveStep(state string)
	ObserveExecution(success bool, elapsed time.Duration)
}

// LogObserver logs step progress.
type LogObserver struct {
	Logger *slog.Logger
}

// OnStateChange implements Observer.
func (o LogObserver) OnStateChange(step Step) {
	o.logger().Debug("agent step state", "step", step.Number, "state", step.State)
}

// OnStepFinished implements Observer.
func (o LogObserver) OnStepFinished(step Step) {
	attrs := []any{"step", step.Number, "state", step.State}
	if len(step.ToolCalls) > 0 {
		names := make([]string, len(step.ToolCalls))
		for i, c := range step.ToolCalls {
			names[i] = c.Name
		}
		attrs = append(attrs, "tools", names)
	}
	if step.Usage != nil {
		attrs = append(attrs, "input_tokens", step.Usage.InputTokens, "output_tokens", step.Usage.OutputTokens)
	}
	if step.Error != "" {
		o.logger().Warn("agent step failed", append(attrs, "error", step.Error)...)
		return
	}
	o.logger().Info("agent step finished", attrs...)
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
