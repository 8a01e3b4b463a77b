// Package trajectory records every LLM interaction and agent step of one
// task run to a JSON file, rewriting the file after each record so a
// crashed run still leaves a readable partial trajectory.
package trajectory

import (
	"time"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

// Trajectory is the persisted document.
type Trajectory struct {
	Task            string           `json:"task"`
	StartTime       *time.Time       `json:"start_time"`
	EndTime         *time.Time       `json:"end_time"`
	Provider        string           `json:"provider"`
	Model           string           `json:"model"`
	MaxSteps        int              `json:"max_steps"`
	LLMInteractions []LLMInteraction `json:"llm_interactions"`
	AgentSteps      []AgentStep      `json:"agent_steps"`
	Success         bool             `json:"success"`
	FinalResult     *string          `json:"final_result"`
	ExecutionTime   float64          `json:"execution_time"`
}

// LLMInteraction is one call to the model.
type LLMInteraction struct {
	Timestamp      time.Time `json:"timestamp"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	InputMessages  []Message `json:"input_messages"`
	Response       Response  `json:"response"`
	ToolsAvailable []string  `json:"tools_available"`
}

// Response is a serialized model reply.
type Response struct {
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	FinishReason string     `json:"finish_reason"`
	Usage        *Usage     `json:"usage"`
	ToolCalls    []ToolCall `json:"tool_calls"`
}

// Usage holds token counters. Interactions fill every counter, steps
// only the input and output counts; counters a reply did not carry are null.
type Usage struct {
	InputTokens              *int `json:"input_tokens"`
	OutputTokens             *int `json:"output_tokens"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens,omitempty"`
	ReasoningTokens          *int `json:"reasoning_tokens,omitempty"`
}

// Message is a serialized conversation message.
type Message struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolCall is a serialized tool invocation.
type ToolCall struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	ID        *string        `json:"id"`
}

// ToolResult is a serialized tool outcome.
type ToolResult struct {
	CallID  string  `json:"call_id"`
	Name    string  `json:"name,omitempty"`
	Success bool    `json:"success"`
	Result  *string `json:"result"`
	Error   *string `json:"error"`
	ID      *string `json:"id"`
}

// AgentStep is one loop iteration.
type AgentStep struct {
	StepNumber  int          `json:"step_number"`
	Timestamp   time.Time    `json:"timestamp"`
	State       string       `json:"state"`
	LLMMessages []Message    `json:"llm_messages"`
	LLMResponse *Response    `json:"llm_response"`
	ToolCalls   []ToolCall   `json:"tool_calls"`
	ToolResults []ToolResult `json:"tool_results"`
	Reflection  *string      `json:"reflection"`
	Error       *string      `json:"error"`
}

// StepRecord is what the agent loop hands to RecordStep.
type StepRecord struct {
	StepNumber  int
	State       string
	Messages    []provider.LLMMessage
	Response    *provider.CompletionResponse
	ToolCalls   []tool.Call
	ToolResults []tool.Result
	Reflection  string
	Error       string
}

func messages(in []provider.LLMMessage) []Message {
	if len(in) == 0 {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = Message{Role: string(m.Role), Content: m.Content}
		if m.ToolCall != nil {
			tc := toolCall(*m.ToolCall)
			out[i].ToolCall = &tc
		}
		if m.ToolResult != nil {
			tr := toolResult(*m.ToolResult)
			out[i].ToolResult = &tr
		}
	}
	return out
}

func toolCalls(in []tool.Call) []ToolCall {
	if len(in) == 0 {
		return nil
	}
	out := make([]ToolCall, len(in))
	for i, c := range in {
		out[i] = toolCall(c)
	}
	return out
}

func toolCall(c tool.Call) ToolCall {
	return ToolCall{CallID: c.CallID, Name: c.Name, Arguments: c.Arguments, ID: optional(c.ID)}
}

func toolResults(in []tool.Result) []ToolResult {
	if len(in) == 0 {
		return nil
	}
	out := make([]ToolResult, len(in))
	for i, r := range in {
		out[i] = toolResult(r)
	}
	return out
}

func toolResult(r tool.Result) ToolResult {
	return ToolResult{
		CallID:  r.CallID,
		Name:    r.Name,
		Success: r.Success,
		Result:  optional(r.Result),
		Error:   optional(r.Error),
		ID:      optional(r.ID),
	}
}

// interactionResponse serializes resp with all five usage counters. A
// reply without usage reports zero input and output tokens.
func interactionResponse(resp provider.CompletionResponse) Response {
	out := Response{
		Content:      resp.Content,
		Model:        resp.Model,
		FinishReason: resp.FinishReason,
		ToolCalls:    toolCalls(resp.ToolCalls),
	}
	if u := resp.Usage; u != nil {
		out.Usage = &Usage{
			InputTokens:              intPtr(u.InputTokens),
			OutputTokens:             intPtr(u.OutputTokens),
			CacheCreationInputTokens: intPtr(u.CacheCreationInputTokens),
			CacheReadInputTokens:     intPtr(u.CacheReadInputTokens),
			ReasoningTokens:          intPtr(u.ReasoningTokens),
		}
	} else {
		out.Usage = &Usage{InputTokens: intPtr(0), OutputTokens: intPtr(0)}
	}
	return out
}

// stepResponse serializes resp with only input and output counters.
func stepResponse(resp *provider.CompletionResponse) *Response {
	if resp == nil {
		return nil
	}
	out := &Response{
		Content:      resp.Content,
		Model:        resp.Model,
		FinishReason: resp.FinishReason,
		ToolCalls:    toolCalls(resp.ToolCalls),
	}
	if u := resp.Usage; u != nil {
		out.Usage = &Usage{InputTokens: intPtr(u.InputTokens), OutputTokens: intPtr(u.OutputTokens)}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int { return &n }
