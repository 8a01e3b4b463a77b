package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/flemzord/sweagent/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

var errNoChoices = errors.New("openai: response has no choices")

// buildChatRequest creates a chat request from a CompletionRequest,
// merging request-level parameters over the configured ones.
func (p *Provider) buildChatRequest(req provider.CompletionRequest) chatRequest {
	params := merge(p.params, req.Params)

	cr := chatRequest{
		Model:     params.Model,
		Messages:  toMessages(req.Messages),
		MaxTokens: params.MaxTokens,
		N:         1,
	}
	if params.Temperature != 0 {
		cr.Temperature = &params.Temperature
	}
	if params.TopP != 0 {
		cr.TopP = &params.TopP
	}
	if len(params.StopSequences) > 0 {
		cr.Stop = params.StopSequences
	}
	if len(req.Tools) > 0 {
		cr.Tools = toTools(req.Tools)
		parallel := params.ParallelToolCalls
		cr.ParallelToolCalls = &parallel
	}
	return cr
}

// newHTTPRequest creates an authenticated HTTP request.
func (p *Provider) newHTTPRequest(ctx context.Context, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	switch {
	case p.params.APIKey == "":
	case p.flavor.azure:
		httpReq.Header.Set("api-key", p.params.APIKey)
	default:
		httpReq.Header.Set("Authorization", "Bearer "+p.params.APIKey)
	}
	if p.flavor.headers != nil {
		for k, v := range p.flavor.headers() {
			httpReq.Header.Set(k, v)
		}
	}
	return httpReq, nil
}

// doPost sends a POST request and returns the response body and status code.
// The response body is limited to maxResponseSize bytes.
func (p *Provider) doPost(ctx context.Context, payload any) ([]byte, int, error) {
	httpReq, err := p.newHTTPRequest(ctx, payload)
	if err != nil {
		return nil, 0, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, mapConnectionError(p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("openai: read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	body, statusCode, err := p.doPost(ctx, p.buildChatRequest(req))
	if err != nil {
		return provider.CompletionResponse{}, err
	}

	if httpErr := mapHTTPError(p.name, statusCode, body); httpErr != nil {
		return provider.CompletionResponse{}, httpErr
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return provider.CompletionResponse{}, errNoChoices
	}

	return fromResponse(&resp, p.logger), nil
}
