package tool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/sweagent/internal/tool"
	"github.com/flemzord/sweagent/internal/tool/tooltest"
)

func call(id, name string) tool.Call {
	return tool.Call{CallID: id, Name: name, Arguments: map[string]any{}}
}

func TestExecute_Success(t *testing.T) {
	t.Parallel()

	mt := &tooltest.MockTool{
		NameValue: "echo",
		ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
			return tool.ExecResult{Output: "hello"}, nil
		},
	}
	exec := tool.NewExecutor([]tool.Tool{mt})

	res := exec.Execute(context.Background(), tool.Call{CallID: "c1", Name: "echo", ID: "p1"})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Result != "hello" {
		t.Errorf("expected result 'hello', got %q", res.Result)
	}
	if res.CallID != "c1" || res.ID != "p1" || res.Name != "echo" {
		t.Errorf("expected identifiers to be carried over, got %+v", res)
	}
}

func TestExecute_NonZeroErrorCodeFails(t *testing.T) {
	t.Parallel()

	mt := &tooltest.MockTool{
		NameValue: "bash",
		ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
			return tool.ExecResult{Output: "partial", Error: "exit 2", ErrorCode: 2}, nil
		},
	}
	res := tool.NewExecutor([]tool.Tool{mt}).Execute(context.Background(), call("c1", "bash"))

	if res.Success {
		t.Fatal("expected failure for non-zero error code")
	}
	if res.Result != "partial" || res.Error != "exit 2" {
		t.Errorf("expected output and error to be preserved, got %+v", res)
	}
}

func TestExecute_NormalizedName(t *testing.T) {
	t.Parallel()

	mt := &tooltest.MockTool{NameValue: "str_replace_based_edit_tool"}
	exec := tool.NewExecutor([]tool.Tool{mt})

	for _, name := range []string{"str_replace_based_edit_tool", "strreplacebasededittool", "Str_Replace_Based_Edit_Tool"} {
		res := exec.Execute(context.Background(), call("c", name))
		if !res.Success {
			t.Errorf("expected %q to resolve, got error %q", name, res.Error)
		}
		if res.Name != name {
			t.Errorf("expected result name %q, got %q", name, res.Name)
		}
	}
	if mt.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mt.Calls())
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	t.Parallel()

	exec := tool.NewExecutor([]tool.Tool{
		&tooltest.MockTool{NameValue: "bash"},
		&tooltest.MockTool{NameValue: "task_done"},
	})

	res := exec.Execute(context.Background(), call("c1", "missing"))
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	want := "Tool 'missing' not found. Available tools: ['bash', 'task_done']"
	if res.Error != want {
		t.Errorf("expected %q, got %q", want, res.Error)
	}
	if res.CallID != "c1" {
		t.Errorf("expected call id c1, got %q", res.CallID)
	}
}

func TestExecute_ErrorContained(t *testing.T) {
	t.Parallel()

	mt := &tooltest.MockTool{
		NameValue: "broken",
		ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
			return tool.ExecResult{}, errors.New("disk on fire")
		},
	}
	res := tool.NewExecutor([]tool.Tool{mt}).Execute(context.Background(), call("c1", "broken"))

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "Error executing tool 'broken': disk on fire" {
		t.Errorf("unexpected error: %q", res.Error)
	}
}

func TestExecute_PanicContained(t *testing.T) {
	t.Parallel()

	mt := &tooltest.MockTool{
		NameValue: "panicky",
		ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
			panic("boom")
		},
	}
	res := tool.NewExecutor([]tool.Tool{mt}).Execute(context.Background(), call("c1", "panicky"))

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "boom") {
		t.Errorf("expected panic text in error, got %q", res.Error)
	}
}

func TestParallel_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	delays := map[string]time.Duration{"a": 30 * time.Millisecond, "b": 10 * time.Millisecond, "c": 20 * time.Millisecond}
	var mu sync.Mutex
	var completion []string

	var tools []tool.Tool
	for name, d := range delays {
		name, d := name, d
		tools = append(tools, &tooltest.MockTool{
			NameValue: name,
			ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
				time.Sleep(d)
				mu.Lock()
				completion = append(completion, name)
				mu.Unlock()
				return tool.ExecResult{Output: name}, nil
			},
		})
	}
	exec := tool.NewExecutor(tools)

	results := exec.Parallel(context.Background(), []tool.Call{call("1", "a"), call("2", "b"), call("3", "c")})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].Result != want {
			t.Errorf("result %d: expected %q, got %q", i, want, results[i].Result)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(completion) != 3 {
		t.Errorf("expected 3 completions, got %v", completion)
	}
}

func TestSequential_OrderDependentEffects(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared.txt")
	writer := &tooltest.MockTool{
		NameValue: "writer",
		ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
			time.Sleep(20 * time.Millisecond)
			return tool.ExecResult{}, os.WriteFile(path, []byte("written"), 0o600)
		},
	}
	reader := &tooltest.MockTool{
		NameValue: "reader",
		ExecuteFunc: func(context.Context, map[string]any) (tool.ExecResult, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return tool.ExecResult{}, err
			}
			return tool.ExecResult{Output: string(data)}, nil
		},
	}
	exec := tool.NewExecutor([]tool.Tool{writer, reader})

	results := exec.Sequential(context.Background(), []tool.Call{call("1", "writer"), call("2", "reader")})

	if !results[1].Success {
		t.Fatalf("expected reader to observe the file, got error %q", results[1].Error)
	}
	if results[1].Result != "written" {
		t.Errorf("expected 'written', got %q", results[1].Result)
	}
}

type countingRecorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRecorder) ObserveToolCall(name string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name + ":fail"
	if success {
		key = name + ":ok"
	}
	r.calls[key]++
}

func TestExecute_RecorderObservesOutcome(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{calls: map[string]int{}}
	exec := tool.NewExecutor([]tool.Tool{&tooltest.MockTool{NameValue: "echo"}})
	exec.SetRecorder(rec)

	exec.Run(context.Background(), []tool.Call{call("1", "echo"), call("2", "echo")}, true)

	if rec.calls["echo:ok"] != 2 {
		t.Errorf("expected 2 successful observations, got %v", rec.calls)
	}
}
