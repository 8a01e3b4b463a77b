package anthropic

import "github.com/flemzord/sweagent/internal/provider"

// defaultModel is the model used when none is specified.
const defaultModel = "claude-sonnet-4-20250514"

const defaultMaxTokens = 4096

// withDefaults fills in zero-value fields.
func withDefaults(p provider.ModelParameters) provider.ModelParameters {
	if p.Model == "" {
		p.Model = defaultModel
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = defaultMaxTokens
	}
	return p
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
	if req.TopK != 0 {
		base.TopK = req.TopK
	}
	if len(req.StopSequences) > 0 {
		base.StopSequences = req.StopSequences
	}
	return base
}
