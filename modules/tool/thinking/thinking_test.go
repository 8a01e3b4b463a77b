package thinking

import (
	"context"
	"strings"
	"testing"

	"github.com/flemzord/sweagent/internal/tool"
)

func thoughtArgs(n, total int, next bool) map[string]any {
	return map[string]any{
		"thought":             "consider the failing test",
		"thought_number":      float64(n),
		"total_thoughts":      float64(total),
		"next_thought_needed": next,
	}
}

func TestExecute_Status(t *testing.T) {
	t.Parallel()

	tt := New(tool.Options{})
	res, err := tt.Execute(context.Background(), thoughtArgs(1, 3, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Sequential thinking step completed.\n\nStatus:\n{\n" +
		"  \"thought_number\": 1,\n" +
		"  \"total_thoughts\": 3,\n" +
		"  \"next_thought_needed\": true,\n" +
		"  \"branches\": [],\n" +
		"  \"thought_history_length\": 1\n}"
	if res.Output != want {
		t.Errorf("expected %q, got %q", want, res.Output)
	}
}

func TestExecute_TotalRaisedToNumber(t *testing.T) {
	t.Parallel()

	tt := New(tool.Options{})
	res, _ := tt.Execute(context.Background(), thoughtArgs(5, 2, false))
	if !strings.Contains(res.Output, "\"total_thoughts\": 5") {
		t.Errorf("expected total_thoughts raised to 5, got %q", res.Output)
	}
}

func TestExecute_Branches(t *testing.T) {
	t.Parallel()

	tt := New(tool.Options{})
	for _, id := range []string{"b", "a", "b"} {
		args := thoughtArgs(2, 3, true)
		args["branch_from_thought"] = float64(1)
		args["branch_id"] = id
		if _, err := tt.Execute(context.Background(), args); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	res, _ := tt.Execute(context.Background(), thoughtArgs(3, 3, false))
	if !strings.Contains(res.Output, "\"branches\": [\n    \"b\",\n    \"a\"\n  ]") {
		t.Errorf("expected branches in first-seen order, got %q", res.Output)
	}
	if !strings.Contains(res.Output, "\"thought_history_length\": 4") {
		t.Errorf("expected history length 4, got %q", res.Output)
	}
	if len(tt.History()) != 4 {
		t.Errorf("expected 4 thoughts, got %d", len(tt.History()))
	}
}

func TestExecute_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"missing thought", func(a map[string]any) { delete(a, "thought") }, "Invalid thought: must be a string"},
		{"bad number", func(a map[string]any) { a["thought_number"] = "one" }, "Invalid thought_number: must be a number"},
		{"bad total", func(a map[string]any) { delete(a, "total_thoughts") }, "Invalid total_thoughts: must be a number"},
		{"bad next", func(a map[string]any) { a["next_thought_needed"] = "yes" }, "Invalid next_thought_needed: must be a boolean"},
		{"zero number", func(a map[string]any) { a["thought_number"] = float64(0) }, "thought_number must be at least 1"},
		{"zero total", func(a map[string]any) { a["total_thoughts"] = float64(0) }, "total_thoughts must be at least 1"},
		{"negative revision", func(a map[string]any) { a["revises_thought"] = float64(-2) }, "revises_thought must be a positive integer"},
		{"fractional branch", func(a map[string]any) { a["branch_from_thought"] = 1.5 }, "branch_from_thought must be a positive integer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			args := thoughtArgs(1, 2, true)
			tc.mutate(args)
			res, err := New(tool.Options{}).Execute(context.Background(), args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			prefix := "Sequential thinking failed: " + tc.want + "\n\nDetails:\n"
			if !strings.HasPrefix(res.Error, prefix) || res.ErrorCode != -1 {
				t.Errorf("expected error starting with %q, got %+v", prefix, res)
			}
			if !strings.Contains(res.Error, "\"status\": \"failed\"") {
				t.Errorf("expected failed status in details, got %q", res.Error)
			}
		})
	}
}

func TestValidate_ZeroReferencesIgnored(t *testing.T) {
	t.Parallel()

	args := thoughtArgs(1, 1, false)
	args["revises_thought"] = float64(0)
	args["branch_from_thought"] = nil
	th, err := Validate(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.RevisesThought != 0 || th.BranchFromThought != 0 {
		t.Errorf("expected unset references, got %+v", th)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	yes := true
	got := Format(Thought{Thought: "x", ThoughtNumber: 2, TotalThoughts: 4, IsRevision: &yes, RevisesThought: 1})
	if !strings.Contains(got, "🔄 Revision 2/4 (revising thought 1)") {
		t.Errorf("unexpected header in %q", got)
	}

	got = Format(Thought{Thought: "x", ThoughtNumber: 1, TotalThoughts: 1})
	lines := strings.Split(strings.TrimPrefix(got, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "│ 💭 Thought 1/1") {
		t.Errorf("unexpected header line %q", lines[1])
	}
}
