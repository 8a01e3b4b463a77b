package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/flemzord/sweagent/internal/provider"
	"gopkg.in/yaml.v3"
)

// ErrProviderNotConfigured is returned for a provider with no entry.
var ErrProviderNotConfigured = errors.New("config: provider not configured")

// Overrides carries command-line values that win over the file.
type Overrides struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	MaxSteps int
}

// Apply merges o into c. A provider named by o that has no entry yet is
// created with defaults.
func (c *Config) Apply(o Overrides) {
	if o.Provider != "" {
		c.DefaultProvider = o.Provider
	}
	if o.MaxSteps > 0 {
		c.MaxSteps = o.MaxSteps
	}

	if c.ModelProviders == nil {
		c.ModelProviders = map[string]provider.ModelParameters{}
	}
	p := c.ModelProviders[c.DefaultProvider]
	if o.Model != "" {
		p.Model = o.Model
	}
	if o.BaseURL != "" {
		p.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		p.APIKey = o.APIKey
	}
	c.ModelProviders[c.DefaultProvider] = p
	c.applyDefaults()
}

// ProviderParams returns the model parameters for name with the API key
// falling back to the <NAME>_API_KEY environment variable.
func (c *Config) ProviderParams(name string) (provider.ModelParameters, error) {
	p, ok := c.ModelProviders[name]
	if !ok {
		return provider.ModelParameters{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv(strings.ToUpper(name) + "_API_KEY")
	}
	return p, nil
}

// LogLevel parses Log.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Masked returns a copy of c safe to print: API keys keep only their
// last four characters.
func (c *Config) Masked() *Config {
	out := *c
	out.ModelProviders = make(map[string]provider.ModelParameters, len(c.ModelProviders))
	for name, p := range c.ModelProviders {
		p.APIKey = maskKey(p.APIKey)
		out.ModelProviders[name] = p
	}
	out.Telemetry.GatewayToken = maskKey(c.Telemetry.GatewayToken)
	return &out
}

// YAML renders c as YAML with API keys masked.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c.Masked())
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}
