package tool

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBase_Metadata(t *testing.T) {
	t.Parallel()

	b := Base{
		ToolName:        "task_done",
		ToolDescription: "Report completion",
		ToolParameters:  []Parameter{{Name: "x", Type: []string{"string"}}},
	}
	if b.Name() != "task_done" {
		t.Errorf("expected name task_done, got %q", b.Name())
	}
	if b.Description() != "Report completion" {
		t.Errorf("unexpected description %q", b.Description())
	}
	if len(b.Parameters()) != 1 {
		t.Errorf("expected 1 parameter, got %d", len(b.Parameters()))
	}
}

func TestFailureAndSuccess(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff(ExecResult{Error: "bad", ErrorCode: -1}, Failure("bad")); diff != "" {
		t.Errorf("Failure mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ExecResult{Output: "ok"}, Success("ok")); diff != "" {
		t.Errorf("Success mismatch (-want +got):\n%s", diff)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected untouched content, got %q", got)
	}
	got := Truncate("abcdefghij", 4)
	if got != "abcd"+TruncatedMessage {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Errorf("expected zero limit to disable truncation, got %q", got)
	}
}

func TestClipString_RuneBoundary(t *testing.T) {
	t.Parallel()

	// "é" is two bytes; clipping in the middle must back off.
	got := ClipString("aé", 2)
	if got != "a" {
		t.Errorf("expected 'a', got %q", got)
	}
}

func TestArgHelpers(t *testing.T) {
	t.Parallel()

	args := map[string]any{
		"s":     "text",
		"b":     true,
		"f":     float64(3),
		"frac":  1.5,
		"list":  []any{float64(1), float64(-1)},
		"bad":   []any{"x"},
		"null":  nil,
		"plain": 7,
	}

	if s, ok := String(args, "s"); !ok || s != "text" {
		t.Errorf("String: got %q, %v", s, ok)
	}
	if _, ok := String(args, "b"); ok {
		t.Error("String should reject non-strings")
	}
	if b, ok := Bool(args, "b"); !ok || !b {
		t.Errorf("Bool: got %v, %v", b, ok)
	}
	if n, ok := Int(args, "f"); !ok || n != 3 {
		t.Errorf("Int: got %d, %v", n, ok)
	}
	if n, ok := Int(args, "plain"); !ok || n != 7 {
		t.Errorf("Int plain: got %d, %v", n, ok)
	}
	if _, ok := Int(args, "frac"); ok {
		t.Error("Int should reject fractional numbers")
	}
	if l, ok := IntSlice(args, "list"); !ok || len(l) != 2 || l[1] != -1 {
		t.Errorf("IntSlice: got %v, %v", l, ok)
	}
	if _, ok := IntSlice(args, "bad"); ok {
		t.Error("IntSlice should reject non-numeric elements")
	}
	if Has(args, "null") {
		t.Error("Has should treat null as absent")
	}
	if !Has(args, "s") {
		t.Error("Has should report present keys")
	}
}
