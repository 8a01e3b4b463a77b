package anthropic

import (
	"context"

	"github.com/flemzord/sweagent/internal/provider"
)

// Complete sends a synchronous completion request to the Anthropic Messages API.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	params := convertRequest(req, merge(p.params, req.Params), p.logger)

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}

	return convertResponse(msg, p.logger), nil
}
