package openai

import (
	"os"
	"strings"
	"time"

	"github.com/flemzord/sweagent/internal/provider"
)

// defaultTimeout bounds one non-streaming completion request.
const defaultTimeout = 5 * time.Minute

// flavor describes how one OpenAI-compatible service differs from the
// reference API.
type flavor struct {
	baseURL      string
	keyOptional  bool
	needsBaseURL bool
	azure        bool
	headers      func() map[string]string
}

// flavors lists the services this backend drives.
var flavors = map[string]flavor{
	"openai":     {baseURL: "https://api.openai.com/v1"},
	"openrouter": {baseURL: "https://openrouter.ai/api/v1", headers: openRouterHeaders},
	"ollama":     {baseURL: "http://localhost:11434/v1", keyOptional: true},
	"azure":      {needsBaseURL: true, azure: true},
	"doubao":     {baseURL: "https://ark.cn-beijing.volces.com/api/v3"},
	"qwen":       {baseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1"},
}

// Names returns the provider names this backend serves.
func Names() []string {
	return []string{"openai", "openrouter", "ollama", "azure", "doubao", "qwen"}
}

// openRouterHeaders identifies the calling site to OpenRouter when
// OPENROUTER_SITE_URL or OPENROUTER_SITE_NAME are set.
func openRouterHeaders() map[string]string {
	h := map[string]string{}
	if v := os.Getenv("OPENROUTER_SITE_URL"); v != "" {
		h["HTTP-Referer"] = v
	}
	if v := os.Getenv("OPENROUTER_SITE_NAME"); v != "" {
		h["X-Title"] = v
	}
	return h
}

// apiKeyEnv returns the environment variable holding the key for name.
func apiKeyEnv(name string) string {
	return strings.ToUpper(name) + "_API_KEY"
}

// merge overlays the request parameters on the configured ones. Only
// fields set on the request win.
func merge(base, req provider.ModelParameters) provider.ModelParameters {
	if req.Model != "" {
		base.Model = req.Model
	}
	if req.MaxTokens > 0 {
		base.MaxTokens = req.MaxTokens
	}
	if req.Temperature != 0 {
		base.Temperature = req.Temperature
	}
	if req.TopP != 0 {
		base.TopP = req.TopP
	}
	if req.ParallelToolCalls {
		base.ParallelToolCalls = true
	}
	if len(req.StopSequences) > 0 {
		base.StopSequences = req.StopSequences
	}
	return base
}
