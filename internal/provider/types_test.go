package provider

import (
	"encoding/json"
	"testing"

	"github.com/flemzord/sweagent/internal/tool"
	"github.com/google/go-cmp/cmp"
)

func TestLLMMessageOmitempty(t *testing.T) {
	t.Parallel()

	msg := LLMMessage{Role: MessageRoleSystem, Content: "you are helpful"}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["tool_call"]; ok {
		t.Error("expected tool_call to be omitted when nil")
	}
	if _, ok := raw["tool_result"]; ok {
		t.Error("expected tool_result to be omitted when nil")
	}
}

func TestUsageAdd(t *testing.T) {
	t.Parallel()

	var none *Usage
	if got := none.Add(nil); got != nil {
		t.Errorf("expected nil + nil = nil, got %+v", got)
	}

	u := &Usage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 1}
	got := none.Add(u)
	if diff := cmp.Diff(u, got); diff != "" {
		t.Errorf("nil + u mismatch (-want +got):\n%s", diff)
	}
	if got == u {
		t.Error("expected Add to return a copy")
	}

	sum := u.Add(&Usage{InputTokens: 1, OutputTokens: 2, CacheCreationInputTokens: 3, ReasoningTokens: 4})
	want := &Usage{InputTokens: 11, OutputTokens: 7, CacheCreationInputTokens: 3, CacheReadInputTokens: 1, ReasoningTokens: 4}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("sum mismatch (-want +got):\n%s", diff)
	}
	if sum.Total() != 18 {
		t.Errorf("expected total 18, got %d", sum.Total())
	}
	if none.Total() != 0 {
		t.Errorf("expected nil total 0, got %d", none.Total())
	}
}

func TestToolResultText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   tool.Result
		want string
	}{
		{"result only", tool.Result{Result: "ok\n"}, "ok"},
		{"error only", tool.Result{Error: "boom"}, "Tool call failed with error:\nboom"},
		{"both", tool.Result{Result: "out", Error: "err"}, "out\nTool call failed with error:\nerr"},
		{"empty", tool.Result{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ToolResultText(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
