// Package anthropic is the Anthropic Messages API backend.
package anthropic

import (
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/sweagent/internal/provider"
)

// Name is the provider identifier.
const Name = "anthropic"

// Interface guard.
var _ provider.Provider = (*Provider)(nil)

// Provider implements provider.Provider on top of the Anthropic SDK.
type Provider struct {
	params provider.ModelParameters
	client *sdkanthropic.Client
	logger *slog.Logger
}

// New creates a backend for params. The API key falls back to the
// ANTHROPIC_API_KEY environment variable. SDK retries are disabled; the
// llm client retries.
func New(params provider.ModelParameters, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	params = withDefaults(params)

	apiKey := params.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}

	client := sdkanthropic.NewClient(opts...)
	return &Provider{
		params: params,
		client: &client,
		logger: logger.With("component", "provider", "provider", Name),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string {
	return Name
}
