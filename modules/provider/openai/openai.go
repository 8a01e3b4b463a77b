// Package openai is the OpenAI chat completions backend. It also drives
// the services that speak the same protocol: OpenRouter, Ollama, Azure
// OpenAI, Doubao and Qwen.
package openai

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/flemzord/sweagent/internal/provider"
)

// Errors returned by New.
var (
	ErrBaseURLRequired = errors.New("openai: base_url is required")
	ErrAPIKeyRequired  = errors.New("openai: api_key is required")
)

// Interface guard.
var _ provider.Provider = (*Provider)(nil)

// Provider implements provider.Provider over the chat completions API.
type Provider struct {
	name     string
	flavor   flavor
	params   provider.ModelParameters
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a backend for the named service. The API key falls back to
// the <NAME>_API_KEY environment variable.
func New(name string, params provider.ModelParameters, logger *slog.Logger) (*Provider, error) {
	fl, ok := flavors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnknownProvider, name)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if params.APIKey == "" {
		params.APIKey = os.Getenv(apiKeyEnv(name))
	}
	if params.APIKey == "" && !fl.keyOptional {
		return nil, fmt.Errorf("%w for %s (set %s)", ErrAPIKeyRequired, name, apiKeyEnv(name))
	}

	base := strings.TrimRight(params.BaseURL, "/")
	if base == "" {
		if fl.needsBaseURL {
			return nil, fmt.Errorf("%w for %s", ErrBaseURLRequired, name)
		}
		base = fl.baseURL
	}

	return &Provider{
		name:     name,
		flavor:   fl,
		params:   params,
		endpoint: endpoint(fl, base, params),
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.With("component", "provider", "provider", name),
	}, nil
}

// endpoint returns the chat completions URL. Azure routes by deployment
// and pins an API version.
func endpoint(fl flavor, base string, params provider.ModelParameters) string {
	if !fl.azure {
		return base + "/chat/completions"
	}
	u := base + "/openai/deployments/" + url.PathEscape(params.Model) + "/chat/completions"
	if params.APIVersion != "" {
		u += "?api-version=" + url.QueryEscape(params.APIVersion)
	}
	return u
}

// Name implements provider.Provider.
func (p *Provider) Name() string {
	return p.name
}
