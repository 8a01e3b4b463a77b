package provider_test

import (
	"context"
	"testing"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/provider/providertest"
)

func TestMockProviderQueuedResponses(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		Responses: []provider.CompletionResponse{{Content: "first"}, {Content: "second"}},
	}

	for _, want := range []string{"first", "second"} {
		resp, err := mock.Complete(context.Background(), provider.CompletionRequest{})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if resp.Content != want {
			t.Errorf("content = %q, want %q", resp.Content, want)
		}
	}
	if _, err := mock.Complete(context.Background(), provider.CompletionRequest{}); err == nil {
		t.Error("expected error once responses are exhausted")
	}
	if mock.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.Calls())
	}
	if mock.Name() != "mock" {
		t.Errorf("expected default name mock, got %q", mock.Name())
	}
}
