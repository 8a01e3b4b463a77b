package tool

import (
	"context"
	"errors"
	"testing"
)

type registryTestTool struct {
	Base
	provider string
}

func (registryTestTool) Execute(context.Context, map[string]any) (ExecResult, error) {
	return Success("ok"), nil
}

func factoryFor(name string) Factory {
	return func(opts Options) Tool {
		return registryTestTool{Base: Base{ToolName: name}, provider: opts.Provider}
	}
}

func TestRegistryRegister_EmptyName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("  ", factoryFor("x")); !errors.Is(err, ErrEmptyToolName) {
		t.Fatalf("expected ErrEmptyToolName, got %v", err)
	}
}

func TestRegistryRegister_Duplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("bash", factoryFor("bash")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("bash", factoryFor("bash")); !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistryBuild_OrderAndOptions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, n := range []string{"bash", "task_done", "json_edit_tool"} {
		if err := r.Register(n, factoryFor(n)); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}

	tools, err := r.Build([]string{"task_done", "bash"}, Options{Provider: "openai"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools) != 2 || tools[0].Name() != "task_done" || tools[1].Name() != "bash" {
		t.Fatalf("unexpected tools: %v", tools)
	}
	if tools[0].(registryTestTool).provider != "openai" {
		t.Error("expected options to reach the factory")
	}
}

func TestRegistryBuild_Unknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Build([]string{"nope"}, Options{}); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistryNames_Sorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_ = r.Register("task_done", factoryFor("task_done"))
	_ = r.Register("bash", factoryFor("bash"))

	names := r.Names()
	if len(names) != 2 || names[0] != "bash" || names[1] != "task_done" {
		t.Errorf("expected [bash task_done], got %v", names)
	}
}
