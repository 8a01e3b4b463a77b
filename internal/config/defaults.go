package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flemzord/sweagent/internal/provider"
)

// Built-in defaults.
const (
	DefaultVersion     = "1"
	DefaultProvider    = "anthropic"
	DefaultMaxSteps    = 20
	DefaultMaxTokens   = 4096
	DefaultMaxRetries  = 10
	DefaultBashTimeout = 120 * time.Second
	DefaultRetention   = 7 * 24 * time.Hour
	DefaultServiceName = "sweagent"
)

const defaultSweepSchedule = "0 * * * *"

// defaultModels holds the model used when a provider entry names none.
var defaultModels = map[string]string{
	"anthropic":  "claude-sonnet-4-20250514",
	"openai":     "gpt-4o",
	"openrouter": "openai/gpt-4o",
	"ollama":     "llama3.1",
	"azure":      "gpt-4o",
	"doubao":     "doubao-seed-1.6",
	"qwen":       "qwen3-coder-plus",
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Version:         DefaultVersion,
		DefaultProvider: DefaultProvider,
		MaxSteps:        DefaultMaxSteps,
		ModelProviders: map[string]provider.ModelParameters{
			"anthropic": {Temperature: 0.5, TopP: 1},
			"openai":    {Temperature: 0.5, TopP: 1, ParallelToolCalls: true},
		},
		LLM: LLMConfig{
			RetryMinWait: 3 * time.Second,
			RetryMaxWait: 30 * time.Second,
			Breaker: BreakerConfig{
				Enabled:      true,
				MinRequests:  5,
				FailureRatio: 0.6,
				OpenTimeout:  time.Minute,
			},
		},
		CKG: CKGConfig{
			Dir:           filepath.Join("~", ".trae-agent", "ckg"),
			Retention:     DefaultRetention,
			SweepSchedule: defaultSweepSchedule,
			Exclude:       []string{"**/node_modules/**", "**/vendor/**"},
		},
		Tools:      ToolsConfig{BashTimeout: DefaultBashTimeout},
		Trajectory: TrajectoryConfig{Dir: "trajectories"},
		Log:        LogConfig{Level: "info", Format: "text"},
		Telemetry:  TelemetryConfig{ServiceName: DefaultServiceName},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued fields left by a partial file.
func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = DefaultProvider
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	for name, p := range c.ModelProviders {
		if p.Model == "" {
			p.Model = defaultModels[name]
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = DefaultMaxTokens
		}
		if p.MaxRetries == 0 {
			p.MaxRetries = DefaultMaxRetries
		}
		c.ModelProviders[name] = p
	}
	if c.Tools.BashTimeout == 0 {
		c.Tools.BashTimeout = DefaultBashTimeout
	}
	if c.CKG.Retention == 0 {
		c.CKG.Retention = DefaultRetention
	}
	c.CKG.Dir = expandHome(c.CKG.Dir)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
