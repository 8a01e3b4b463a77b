// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"sync"

	"github.com/flemzord/sweagent/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameValue        string
	DescriptionValue string
	ParametersValue  []tool.Parameter
	ExecuteFunc      func(ctx context.Context, args map[string]any) (tool.ExecResult, error)

	mu           sync.Mutex
	ExecuteCalls int
	LastArgs     map[string]any
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock_tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.DescriptionValue != "" {
		return m.DescriptionValue
	}
	return "a mock tool"
}

// Parameters implements tool.Tool.
func (m *MockTool) Parameters() []tool.Parameter {
	return m.ParametersValue
}

// Execute implements tool.Tool. Without ExecuteFunc it returns "ok".
func (m *MockTool) Execute(ctx context.Context, args map[string]any) (tool.ExecResult, error) {
	m.mu.Lock()
	m.ExecuteCalls++
	m.LastArgs = args
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args)
	}
	return tool.Success("ok"), nil
}

// Calls returns the number of Execute invocations.
func (m *MockTool) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}

// Interface guard.
var _ tool.Tool = (*MockTool)(nil)
