// Package provider defines the provider-neutral conversation model and
// the interface every LLM backend implements.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live under modules/provider.
type Provider interface {
	// Complete sends the whole conversation and returns the model's reply.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Name returns the provider identifier, for example "anthropic".
	Name() string
}
