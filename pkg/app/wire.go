package app

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/flemzord/sweagent/internal/ckg"
	"github.com/flemzord/sweagent/internal/config"
	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/security"
	"github.com/flemzord/sweagent/internal/tool"
	"github.com/flemzord/sweagent/modules/provider/anthropic"
	"github.com/flemzord/sweagent/modules/provider/openai"
	"github.com/flemzord/sweagent/modules/tool/bash"
	"github.com/flemzord/sweagent/modules/tool/ckgtool"
	"github.com/flemzord/sweagent/modules/tool/edit"
	"github.com/flemzord/sweagent/modules/tool/jsonedit"
	"github.com/flemzord/sweagent/modules/tool/taskdone"
	"github.com/flemzord/sweagent/modules/tool/thinking"
)

// NewProvider creates the backend serving the named provider.
func NewProvider(name string, params provider.ModelParameters, logger *slog.Logger) (provider.Provider, error) {
	if name == anthropic.Name {
		return anthropic.New(params, logger), nil
	}
	if slices.Contains(openai.Names(), name) {
		p, err := openai.New(name, params, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", provider.ErrUnknownProvider, name)
}

// NewManager creates the ckg store manager described by cfg.CKG.
func NewManager(cfg *config.Config, logger *slog.Logger, metrics ckg.Metrics) *ckg.Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ckg.Manager{
		Dir:       cfg.CKG.Dir,
		Retention: cfg.CKG.Retention,
		Exclude:   cfg.CKG.Exclude,
		Workers:   cfg.CKG.MaxParseWorkers,
		Logger:    logger.With("component", "ckg"),
		Metrics:   metrics,
	}
}

// NewRegistry registers every built-in tool. The edit tools work on the
// host filesystem and ckg queries go through opener.
func NewRegistry(cfg *config.Config, opener ckgtool.Opener) (*tool.Registry, error) {
	fs := afero.NewOsFs()
	factories := []struct {
		name    string
		factory tool.Factory
	}{
		{bash.Name, func(opts tool.Options) tool.Tool { return bash.New(opts, cfg.Tools.BashTimeout) }},
		{edit.Name, func(tool.Options) tool.Tool { return edit.New(fs) }},
		{jsonedit.Name, func(tool.Options) tool.Tool { return jsonedit.New(fs) }},
		{thinking.Name, func(opts tool.Options) tool.Tool { return thinking.New(opts) }},
		{taskdone.Name, func(tool.Options) tool.Tool { return taskdone.New() }},
		{ckgtool.Name, func(opts tool.Options) tool.Tool { return ckgtool.New(opener, opts) }},
	}

	r := tool.NewRegistry()
	for _, f := range factories {
		if err := r.Register(f.name, f.factory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewLogger builds the process logger. Every configured API key and the
// gateway token are redacted from the output.
func NewLogger(w io.Writer, cfg *config.Config, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewHandler(h, security.NewRedactor(secrets(cfg)...)))
}

func secrets(cfg *config.Config) []string {
	var out []string
	for name := range cfg.ModelProviders {
		if p, err := cfg.ProviderParams(name); err == nil && p.APIKey != "" {
			out = append(out, p.APIKey)
		}
	}
	if cfg.Telemetry.GatewayToken != "" {
		out = append(out, cfg.Telemetry.GatewayToken)
	}
	return out
}
