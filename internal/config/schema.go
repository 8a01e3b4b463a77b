// Package config loads the sweagent YAML configuration: environment
// variable expansion, built-in defaults, flag overrides and validation.
package config

import (
	"time"

	"github.com/flemzord/sweagent/internal/provider"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DefaultProvider names the entry of ModelProviders used for runs.
	DefaultProvider string `yaml:"default_provider"`

	// MaxSteps bounds the iterations of one agent run.
	MaxSteps int `yaml:"max_steps"`

	// ModelProviders maps provider names (anthropic, openai, openrouter,
	// ollama, azure, doubao, qwen) to their model parameters.
	ModelProviders map[string]provider.ModelParameters `yaml:"model_providers"`

	LLM        LLMConfig        `yaml:"llm"`
	CKG        CKGConfig        `yaml:"ckg"`
	Tools      ToolsConfig      `yaml:"tools"`
	Trajectory TrajectoryConfig `yaml:"trajectory"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// LLMConfig tunes the resilience layer around provider calls.
type LLMConfig struct {
	RetryMinWait      time.Duration `yaml:"retry_min_wait"`
	RetryMaxWait      time.Duration `yaml:"retry_max_wait"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
}

// CKGConfig configures the code knowledge graph stores.
type CKGConfig struct {
	Dir             string        `yaml:"dir"`
	Retention       time.Duration `yaml:"retention"`
	SweepSchedule   string        `yaml:"sweep_schedule"`
	Exclude         []string      `yaml:"exclude"`
	MaxParseWorkers int           `yaml:"max_parse_workers"`
}

// ToolsConfig configures the tool set.
type ToolsConfig struct {
	// Enabled lists tool names for runs. Empty selects the default set.
	Enabled     []string      `yaml:"enabled"`
	BashTimeout time.Duration `yaml:"bash_timeout"`
}

// TrajectoryConfig configures where run trajectories are written.
type TrajectoryConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures the metrics gateway and trace export.
type TelemetryConfig struct {
	// MetricsAddr enables the HTTP gateway when set, e.g. 127.0.0.1:9464.
	MetricsAddr string `yaml:"metrics_addr"`
	// OTLPEndpoint enables OTLP/HTTP trace export when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	// GatewayToken, when set, is required as a bearer token on every
	// gateway route except /health.
	GatewayToken string `yaml:"gateway_token"`
}
