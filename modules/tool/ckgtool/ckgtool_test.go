package ckgtool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/sweagent/internal/ckg"
	"github.com/flemzord/sweagent/internal/tool"
)

const source = `class Cache:
    def get(self, key):
        return key


def lookup(key):
    return Cache().get(key)
`

type countingOpener struct {
	inner *ckg.Manager
	mu    sync.Mutex
	opens int
}

func (o *countingOpener) Open(ctx context.Context, path string) (*ckg.Database, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()
	return o.inner.Open(ctx, path)
}

func setup(t *testing.T) (*Tool, *countingOpener, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "cache.py"), []byte(source), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	opener := &countingOpener{inner: &ckg.Manager{Dir: t.TempDir()}}
	ct := New(opener, tool.Options{})
	t.Cleanup(func() { _ = ct.Close() })
	return ct, opener, root
}

func TestExecute_Searches(t *testing.T) {
	t.Parallel()

	ct, opener, root := setup(t)
	file := filepath.Join(root, "cache.py")

	tests := []struct {
		command    string
		identifier string
		want       string
	}{
		{"search_function", "lookup", "Found 1 functions named lookup:\n1. " + file + ":6-7\n"},
		{"search_class_method", "get", "Found 1 class methods named get:\n1. " + file + ":2-3 within class Cache\n"},
		{"search_class", "Cache", "Found 1 classes named Cache:\n1. " + file + ":1-3\nMethods:\n- get(self, key)\n"},
		{"search_function", "get", "No functions named get found."},
		{"search_class", "Missing", "No classes named Missing found."},
	}
	for _, tt := range tests {
		res, err := ct.Execute(context.Background(), map[string]any{
			"command": tt.command, "path": root, "identifier": tt.identifier, "print_body": false,
		})
		if err != nil {
			t.Fatalf("%s %s: unexpected error: %v", tt.command, tt.identifier, err)
		}
		if res.Output != tt.want {
			t.Errorf("%s %s: expected %q, got %q", tt.command, tt.identifier, tt.want, res.Output)
		}
	}

	if opener.opens != 1 {
		t.Errorf("expected the database to be opened once, got %d", opener.opens)
	}
}

func TestExecute_PrintBodyByDefault(t *testing.T) {
	t.Parallel()

	ct, _, root := setup(t)
	tests := []struct {
		name string
		args map[string]any
	}{
		{"absent", map[string]any{}},
		{"null", map[string]any{"print_body": nil}},
		{"true", map[string]any{"print_body": true}},
	}
	for _, tt := range tests {
		args := map[string]any{"command": "search_function", "path": root, "identifier": "lookup"}
		for k, v := range tt.args {
			args[k] = v
		}
		res, err := ct.Execute(context.Background(), args)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if !strings.Contains(res.Output, "def lookup(key):\n    return Cache().get(key)\n\n") {
			t.Errorf("%s: expected body in output, got %q", tt.name, res.Output)
		}
	}
}

func TestExecute_Validation(t *testing.T) {
	t.Parallel()

	ct, _, root := setup(t)
	file := filepath.Join(root, "cache.py")

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no command", map[string]any{"path": root, "identifier": "x"}, "No command provided for the ckg tool"},
		{"no path", map[string]any{"command": "search_class", "identifier": "x"}, "No path provided for the ckg tool"},
		{"no identifier", map[string]any{"command": "search_class", "path": root}, "No identifier provided for the ckg tool"},
		{"missing path", map[string]any{"command": "search_class", "path": "/does/not/exist", "identifier": "x"}, "Codebase path /does/not/exist does not exist"},
		{"file path", map[string]any{"command": "search_class", "path": file, "identifier": "x"}, "Codebase path " + file + " is not a directory"},
		{"bad command", map[string]any{"command": "search_all", "path": root, "identifier": "x"}, "Invalid command: search_all"},
	}
	for _, tt := range tests {
		res, err := ct.Execute(context.Background(), tt.args)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if res.Error != tt.want || res.ErrorCode != -1 {
			t.Errorf("%s: expected %q, got %+v", tt.name, tt.want, res)
		}
	}
}
