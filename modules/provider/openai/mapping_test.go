package openai

import (
	"testing"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
	"github.com/google/go-cmp/cmp"
)

func TestToMessages_AllRoles(t *testing.T) {
	t.Parallel()

	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: "You are helpful."},
		{Role: provider.MessageRoleUser, Content: "Hello"},
		{Role: provider.MessageRoleAssistant, Content: "Let me look."},
		{Role: provider.MessageRoleAssistant, ToolCall: &tool.Call{CallID: "call_1", Name: "bash", Arguments: map[string]any{"command": "ls"}}},
		{Role: provider.MessageRoleAssistant, ToolCall: &tool.Call{CallID: "call_2", Name: "task_done"}},
		{Role: provider.MessageRoleUser, ToolResult: &tool.Result{CallID: "call_1", Name: "bash", Success: true, Result: "a.go\n"}},
		{Role: provider.MessageRoleUser, ToolResult: &tool.Result{CallID: "call_2", Name: "task_done", Error: "boom"}},
	}

	got := toMessages(msgs)
	want := []chatMessage{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Let me look.", ToolCalls: []chatToolCall{
			{ID: "call_1", Type: "function", Function: chatFunctionCall{Name: "bash", Arguments: `{"command":"ls"}`}},
			{ID: "call_2", Type: "function", Function: chatFunctionCall{Name: "task_done", Arguments: "{}"}},
		}},
		{Role: "tool", Content: "a.go", ToolCallID: "call_1"},
		{Role: "tool", Content: "Tool call failed with error:\nboom", ToolCallID: "call_2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessages_ToolCallOpensAssistantMessage(t *testing.T) {
	t.Parallel()

	got := toMessages([]provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: "go"},
		{Role: provider.MessageRoleAssistant, ToolCall: &tool.Call{CallID: "c", Name: "bash"}},
	})
	if len(got) != 2 || got[1].Role != "assistant" || len(got[1].ToolCalls) != 1 {
		t.Errorf("expected a new assistant message with the call, got %+v", got)
	}
}

func TestToTools(t *testing.T) {
	t.Parallel()

	defs := []tool.Definition{
		{Name: "strict", Description: "d", InputSchema: map[string]any{"type": "object", "additionalProperties": false}},
		{Name: "loose", InputSchema: map[string]any{"type": "object"}},
	}

	out := toTools(defs)

	if len(out) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(out))
	}
	if out[0].Type != "function" || out[0].Function.Name != "strict" || !out[0].Function.Strict {
		t.Errorf("expected a strict function tool, got %+v", out[0])
	}
	if out[1].Function.Strict {
		t.Errorf("expected a non-strict tool, got %+v", out[1])
	}
}

func TestFromResponse(t *testing.T) {
	t.Parallel()

	reason := "tool_calls"
	resp := &chatResponse{
		Model: "gpt-4o",
		Choices: []chatChoice{{
			Message: chatMessage{Role: "assistant", Content: "ok", ToolCalls: []chatToolCall{
				{ID: "call_1", Type: "function", Function: chatFunctionCall{Name: "bash", Arguments: `{"command":"pwd"}`}},
				{Type: "function", Function: chatFunctionCall{Name: "task_done"}},
			}},
			FinishReason: &reason,
		}},
		Usage: &chatUsage{
			PromptTokens:            12,
			CompletionTokens:        4,
			PromptTokensDetails:     &promptDetails{CachedTokens: 8},
			CompletionTokensDetails: &completionDetails{ReasoningTokens: 2},
		},
	}

	got := fromResponse(resp, nil)

	if got.Content != "ok" || got.Model != "gpt-4o" || got.FinishReason != "tool_calls" {
		t.Errorf("unexpected response %+v", got)
	}
	if len(got.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(got.ToolCalls))
	}
	if got.ToolCalls[0].CallID != "call_1" || got.ToolCalls[0].Arguments["command"] != "pwd" {
		t.Errorf("unexpected first call %+v", got.ToolCalls[0])
	}
	if got.ToolCalls[1].CallID == "" {
		t.Error("expected a generated call id")
	}
	if len(got.ToolCalls[1].Arguments) != 0 {
		t.Errorf("expected empty arguments, got %v", got.ToolCalls[1].Arguments)
	}
	want := &provider.Usage{InputTokens: 12, OutputTokens: 4, CacheReadInputTokens: 8, ReasoningTokens: 2}
	if diff := cmp.Diff(want, got.Usage); diff != "" {
		t.Errorf("usage mismatch (-want +got):\n%s", diff)
	}
}

func TestFromResponse_NoUsage(t *testing.T) {
	t.Parallel()

	got := fromResponse(&chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: "hi"}}}}, nil)
	if got.Usage != nil || got.FinishReason != "" {
		t.Errorf("expected nil usage and empty finish reason, got %+v", got)
	}
}
