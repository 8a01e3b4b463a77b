package openai

import (
	"encoding/json"
	"log/slog"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
	"github.com/google/uuid"
)

type chatRequest struct {
	Model             string        `json:"model"`
	Messages          []chatMessage `json:"messages"`
	Tools             []chatTool    `json:"tools,omitempty"`
	ParallelToolCalls *bool         `json:"parallel_tool_calls,omitempty"`
	MaxTokens         int           `json:"max_tokens,omitempty"`
	Temperature       *float64      `json:"temperature,omitempty"`
	TopP              *float64      `json:"top_p,omitempty"`
	Stop              []string      `json:"stop,omitempty"`
	N                 int           `json:"n,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason *string     `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens            int                `json:"prompt_tokens"`
	CompletionTokens        int                `json:"completion_tokens"`
	PromptTokensDetails     *promptDetails     `json:"prompt_tokens_details"`
	CompletionTokensDetails *completionDetails `json:"completion_tokens_details"`
}

type promptDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type completionDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// toMessages converts conversation messages to chat messages. Tool
// calls join the assistant message before them, or open a new one, and
// tool results become role "tool" messages.
func toMessages(msgs []provider.LLMMessage) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.ToolCall != nil:
			call := chatToolCall{
				ID:       m.ToolCall.CallID,
				Type:     "function",
				Function: chatFunctionCall{Name: m.ToolCall.Name, Arguments: encodeArguments(m.ToolCall.Arguments)},
			}
			if n := len(out); n > 0 && out[n-1].Role == string(provider.MessageRoleAssistant) {
				out[n-1].ToolCalls = append(out[n-1].ToolCalls, call)
				continue
			}
			out = append(out, chatMessage{Role: string(provider.MessageRoleAssistant), ToolCalls: []chatToolCall{call}})

		case m.ToolResult != nil:
			out = append(out, chatMessage{
				Role:       "tool",
				Content:    provider.ToolResultText(*m.ToolResult),
				ToolCallID: m.ToolResult.CallID,
			})

		default:
			out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
		}
	}
	return out
}

func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// toTools converts tool definitions to the function tool format. Schemas
// with additionalProperties false are sent in strict mode.
func toTools(defs []tool.Definition) []chatTool {
	out := make([]chatTool, len(defs))
	for i, d := range defs {
		additional, ok := d.InputSchema["additionalProperties"].(bool)
		out[i] = chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
				Strict:      ok && !additional,
			},
		}
	}
	return out
}

// fromResponse converts the first choice of a chat response. Tool calls
// without an id get a generated one.
func fromResponse(resp *chatResponse, logger *slog.Logger) provider.CompletionResponse {
	choice := resp.Choices[0]
	cr := provider.CompletionResponse{
		Content: choice.Message.Content,
		Model:   resp.Model,
	}
	if choice.FinishReason != nil {
		cr.FinishReason = *choice.FinishReason
	}

	for _, c := range choice.Message.ToolCalls {
		args := map[string]any{}
		if c.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil && logger != nil {
				logger.Warn("tool call arguments are not a JSON object", "tool", c.Function.Name, "error", err)
			}
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		cr.ToolCalls = append(cr.ToolCalls, tool.Call{CallID: id, Name: c.Function.Name, Arguments: args})
	}

	if u := resp.Usage; u != nil {
		cr.Usage = &provider.Usage{
			InputTokens:  u.PromptTokens,
			OutputTokens: u.CompletionTokens,
		}
		if u.PromptTokensDetails != nil {
			cr.Usage.CacheReadInputTokens = u.PromptTokensDetails.CachedTokens
		}
		if u.CompletionTokensDetails != nil {
			cr.Usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
		}
	}
	return cr
}
