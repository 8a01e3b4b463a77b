package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

func newTestProvider(t *testing.T, name string, params provider.ModelParameters, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	params.BaseURL = srv.URL
	if params.Model == "" {
		params.Model = "gpt-4o"
	}
	if params.APIKey == "" {
		params.APIKey = "sk-test"
	}
	p, err := New(name, params, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readRequestBody(t *testing.T, r *http.Request) chatRequest {
	t.Helper()
	body, _ := io.ReadAll(r.Body)
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Errorf("invalid request body: %v", err)
	}
	return req
}

func okResponse() map[string]any {
	return map[string]any{
		"model": "gpt-4o",
		"choices": []map[string]any{{
			"message":       map[string]any{"role": "assistant", "content": "Hello!"},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	}
}

func TestComplete_Success(t *testing.T) {
	t.Parallel()

	var got chatRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("missing authorization header")
		}
		got = readRequestBody(t, r)
		writeJSON(t, w, okResponse())
	})
	p := newTestProvider(t, "openai", provider.ModelParameters{MaxTokens: 256, Temperature: 0.5, ParallelToolCalls: true}, handler)

	resp, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "Hello"}},
		Tools:    []tool.Definition{{Name: "bash", InputSchema: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Hello!" || resp.Usage.Total() != 15 {
		t.Errorf("unexpected response %+v", resp)
	}

	if got.Model != "gpt-4o" || got.MaxTokens != 256 || got.N != 1 {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", got.Temperature)
	}
	if got.ParallelToolCalls == nil || !*got.ParallelToolCalls {
		t.Errorf("expected parallel_tool_calls true, got %v", got.ParallelToolCalls)
	}
	if len(got.Tools) != 1 {
		t.Errorf("expected 1 tool, got %d", len(got.Tools))
	}
}

func TestComplete_NoToolsOmitsParallelFlag(t *testing.T) {
	t.Parallel()

	var got chatRequest
	p := newTestProvider(t, "openai", provider.ModelParameters{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = readRequestBody(t, r)
		writeJSON(t, w, okResponse())
	}))

	if _, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "Hello"}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ParallelToolCalls != nil || got.Temperature != nil {
		t.Errorf("expected optional fields to be omitted, got %+v", got)
	}
}

func TestComplete_HTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, provider.ErrRateLimit},
		{"server error", http.StatusBadGateway, `bad gateway`, provider.ErrProviderDown},
		{"context length", http.StatusBadRequest, `{"error":{"message":"This model's maximum context length is 8192 tokens","code":"context_length_exceeded"}}`, provider.ErrContextLength},
		{"auth", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, errAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProvider(t, "openai", provider.ModelParameters{}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := p.Complete(context.Background(), provider.CompletionRequest{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestComplete_ErrorNamesFlavor(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, "ollama", provider.ModelParameters{}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("model \"llama3\" not found\n"))
	}))

	_, err := p.Complete(context.Background(), provider.CompletionRequest{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if want := `ollama: HTTP 404: model "llama3" not found`; err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if provider.IsRetryable(err) {
		t.Error("expected a 404 not to be retryable")
	}
}

func TestComplete_NoChoices(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, "openai", provider.ModelParameters{}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"choices": []any{}})
	}))

	if _, err := p.Complete(context.Background(), provider.CompletionRequest{}); !errors.Is(err, errNoChoices) {
		t.Errorf("expected errNoChoices, got %v", err)
	}
}

func TestComplete_Azure(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt-4o/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-06-01" {
			t.Errorf("unexpected api-version %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("api-key") != "sk-test" || r.Header.Get("Authorization") != "" {
			t.Error("expected api-key header auth")
		}
		writeJSON(t, w, okResponse())
	})
	p := newTestProvider(t, "azure", provider.ModelParameters{APIVersion: "2024-06-01"}, handler)

	if _, err := p.Complete(context.Background(), provider.CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "azure" {
		t.Errorf("expected name azure, got %q", p.Name())
	}
}

func TestNew_Errors(t *testing.T) {
	t.Setenv("AZURE_API_KEY", "")
	t.Setenv("DOUBAO_API_KEY", "")

	if _, err := New("nope", provider.ModelParameters{}, nil); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := New("doubao", provider.ModelParameters{}, nil); !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("expected ErrAPIKeyRequired, got %v", err)
	}
	if _, err := New("azure", provider.ModelParameters{APIKey: "k"}, nil); !errors.Is(err, ErrBaseURLRequired) {
		t.Errorf("expected ErrBaseURLRequired, got %v", err)
	}
	if _, err := New("ollama", provider.ModelParameters{}, nil); err != nil {
		t.Errorf("expected ollama to work without a key, got %v", err)
	}
}

func TestNew_KeyFromEnvironment(t *testing.T) {
	t.Setenv("QWEN_API_KEY", "from-env")

	p, err := New("qwen", provider.ModelParameters{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.params.APIKey != "from-env" {
		t.Errorf("expected key from env, got %q", p.params.APIKey)
	}
	if p.endpoint != "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions" {
		t.Errorf("unexpected endpoint %q", p.endpoint)
	}
}

func TestOpenRouterHeaders(t *testing.T) {
	t.Setenv("OPENROUTER_SITE_URL", "https://example.com")
	t.Setenv("OPENROUTER_SITE_NAME", "sweagent")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("HTTP-Referer") != "https://example.com" || r.Header.Get("X-Title") != "sweagent" {
			t.Errorf("missing OpenRouter headers: %v", r.Header)
		}
		writeJSON(t, w, okResponse())
	}))
	defer srv.Close()

	p, err := New("openrouter", provider.ModelParameters{APIKey: "k", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Complete(context.Background(), provider.CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
