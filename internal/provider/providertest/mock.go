// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/sweagent/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set CompleteFunc to control behavior; when it is nil, queued
// Responses are returned in order. All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	Responses    []provider.CompletionResponse
	NameValue    string

	mu            sync.Mutex
	CompleteCalls int
	Requests      []provider.CompletionRequest
}

// Complete delegates to CompleteFunc, or pops the next queued response.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	fn := m.CompleteFunc
	var resp provider.CompletionResponse
	var err error
	if fn == nil {
		if len(m.Responses) == 0 {
			err = fmt.Errorf("providertest: no more mock responses")
		} else {
			resp = m.Responses[0]
			m.Responses = m.Responses[1:]
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Name returns NameValue, or "mock" when unset.
func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Calls returns the number of Complete invocations.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CompleteCalls
}

// Interface guard.
var _ provider.Provider = (*MockProvider)(nil)
