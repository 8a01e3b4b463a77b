package provider

import (
	"strings"

	"github.com/flemzord/sweagent/internal/tool"
)

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants for conversation messages.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// LLMMessage is one provider-neutral conversation message.
//
// A user message carrying ToolResult feeds a tool's outcome back to the
// model. An assistant message carrying ToolCall replays a call the model
// made earlier. Backends merge consecutive messages of the same kind
// into whatever grouping their wire format requires.
type LLMMessage struct {
	Role       MessageRole  `json:"role"`
	Content    string       `json:"content,omitempty"`
	ToolCall   *tool.Call   `json:"tool_call,omitempty"`
	ToolResult *tool.Result `json:"tool_result,omitempty"`
}

// ModelParameters configures one model invocation.
type ModelParameters struct {
	Model             string   `yaml:"model" json:"model"`
	APIKey            string   `yaml:"api_key" json:"-"`
	BaseURL           string   `yaml:"base_url" json:"base_url,omitempty"`
	APIVersion        string   `yaml:"api_version" json:"api_version,omitempty"`
	MaxTokens         int      `yaml:"max_tokens" json:"max_tokens"`
	Temperature       float64  `yaml:"temperature" json:"temperature"`
	TopP              float64  `yaml:"top_p" json:"top_p"`
	TopK              int      `yaml:"top_k" json:"top_k"`
	ParallelToolCalls bool     `yaml:"parallel_tool_calls" json:"parallel_tool_calls"`
	MaxRetries        int      `yaml:"max_retries" json:"max_retries"`
	CandidateCount    int      `yaml:"candidate_count" json:"candidate_count,omitempty"`
	StopSequences     []string `yaml:"stop_sequences" json:"stop_sequences,omitempty"`
}

// CompletionRequest is the input to Provider.Complete.
type CompletionRequest struct {
	Messages []LLMMessage
	Tools    []tool.Definition
	Params   ModelParameters
}

// CompletionResponse is the output of Provider.Complete.
type CompletionResponse struct {
	Content      string      `json:"content"`
	Model        string      `json:"model"`
	FinishReason string      `json:"finish_reason"`
	Usage        *Usage      `json:"usage"`
	ToolCalls    []tool.Call `json:"tool_calls"`
}

// Usage tracks token consumption for one or more completions.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	ReasoningTokens          int `json:"reasoning_tokens"`
}

// Add returns the field-wise sum of u and other. A nil operand counts as
// zero; the result is nil only when both operands are nil.
func (u *Usage) Add(other *Usage) *Usage {
	switch {
	case u == nil && other == nil:
		return nil
	case u == nil:
		c := *other
		return &c
	case other == nil:
		c := *u
		return &c
	}
	return &Usage{
		InputTokens:              u.InputTokens + other.InputTokens,
		OutputTokens:             u.OutputTokens + other.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens + other.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens + other.CacheReadInputTokens,
		ReasoningTokens:          u.ReasoningTokens + other.ReasoningTokens,
	}
}

// Total returns input plus output tokens.
func (u *Usage) Total() int {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.OutputTokens
}

// ToolResultText renders a tool result the way it is fed back to a model:
// the result text, then the error under a failure banner, trimmed.
func ToolResultText(r tool.Result) string {
	var text string
	if r.Result != "" {
		text = r.Result + "\n"
	}
	if r.Error != "" {
		text += "Tool call failed with error:\n" + r.Error
	}
	return strings.TrimSpace(text)
}
