package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config and reports every
// problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("config: max_steps must be positive, got %d", cfg.MaxSteps))
	}

	if cfg.DefaultProvider == "" {
		errs = append(errs, errors.New("config: default_provider is required"))
	} else if _, ok := cfg.ModelProviders[cfg.DefaultProvider]; !ok {
		errs = append(errs, fmt.Errorf("config: default_provider %q has no model_providers entry", cfg.DefaultProvider))
	}

	errs = append(errs, validateProviders(cfg)...)
	errs = append(errs, validateLLM(cfg.LLM)...)
	errs = append(errs, validateCKG(cfg.CKG)...)
	errs = append(errs, validateLog(cfg.Log)...)

	if cfg.Tools.BashTimeout < 0 {
		errs = append(errs, errors.New("config: tools.bash_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

func validateProviders(cfg *Config) []error {
	names := make([]string, 0, len(cfg.ModelProviders))
	for name := range cfg.ModelProviders {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		p := cfg.ModelProviders[name]
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("config: model_providers.%s: model is required", name))
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("config: model_providers.%s: max_tokens must not be negative", name))
		}
		if p.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("config: model_providers.%s: max_retries must not be negative", name))
		}
		if p.TopK < 0 {
			errs = append(errs, fmt.Errorf("config: model_providers.%s: top_k must not be negative", name))
		}
	}
	return errs
}

func validateLLM(c LLMConfig) []error {
	var errs []error
	if c.RetryMinWait < 0 || c.RetryMaxWait < 0 {
		errs = append(errs, errors.New("config: llm retry waits must not be negative"))
	} else if c.RetryMaxWait < c.RetryMinWait {
		errs = append(errs, fmt.Errorf("config: llm.retry_max_wait (%s) is below llm.retry_min_wait (%s)", c.RetryMaxWait, c.RetryMinWait))
	}
	if c.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("config: llm.requests_per_minute must not be negative"))
	}
	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		errs = append(errs, fmt.Errorf("config: llm.breaker.failure_ratio must be in (0, 1], got %g", c.Breaker.FailureRatio))
	}
	return errs
}

func validateCKG(c CKGConfig) []error {
	var errs []error
	if c.Dir == "" {
		errs = append(errs, errors.New("config: ckg.dir is required"))
	}
	if c.Retention < 0 {
		errs = append(errs, errors.New("config: ckg.retention must not be negative"))
	}
	if c.MaxParseWorkers < 0 {
		errs = append(errs, errors.New("config: ckg.max_parse_workers must not be negative"))
	}
	if c.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: ckg.sweep_schedule %q: %w", c.SweepSchedule, err))
		}
	}
	for i, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("config: ckg.exclude[%d]: invalid pattern %q", i, pattern))
		}
	}
	return errs
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

func validateLog(c LogConfig) []error {
	var errs []error
	if !slices.Contains(logLevels, c.Level) {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of %v", c.Level, logLevels))
	}
	if !slices.Contains(logFormats, c.Format) {
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of %v", c.Format, logFormats))
	}
	return errs
}
