// Package agent implements the step-bounded execution loop that drives a
// model through think and act cycles: call the model, check completion,
// dispatch tool calls, reflect on failures, and record every step.
package agent

import (
	"time"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

// State is the phase a step is in.
type State string

// State constants. StateCompleted and StateError end a run.
const (
	StateIdle        State = "idle"
	StateThinking    State = "thinking"
	StateCallingTool State = "calling_tool"
	StateReflecting  State = "reflecting"
	StateCompleted   State = "completed"
	StateError       State = "error"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Step records one loop iteration.
type Step struct {
	Number      int                          `json:"step_number"`
	State       State                        `json:"state"`
	Thought     string                       `json:"thought,omitempty"`
	ToolCalls   []tool.Call                  `json:"tool_calls,omitempty"`
	ToolResults []tool.Result                `json:"tool_results,omitempty"`
	Response    *provider.CompletionResponse `json:"llm_response,omitempty"`
	Reflection  string                       `json:"reflection,omitempty"`
	Error       string                       `json:"error,omitempty"`
	Usage       *provider.Usage              `json:"llm_usage,omitempty"`
}

// Execution is the outcome of one task run.
type Execution struct {
	Task        string          `json:"task"`
	Steps       []Step          `json:"steps"`
	FinalResult string          `json:"final_result,omitempty"`
	Success     bool            `json:"success"`
	TotalTokens *provider.Usage `json:"total_tokens,omitempty"`
	// ExecutionTime is the wall-clock duration of Execute.
	ExecutionTime time.Duration `json:"execution_time"`
}

// Fixed result texts.
const (
	ExceededStepsMessage = "Task execution exceeded maximum steps without completion."
	NotCompletedMessage  = "It seems that you have not completed the task."
	failedPrefix         = "Agent execution failed: "
)
