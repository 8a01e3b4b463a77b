package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SWEAGENT_TEST_KEY", "secret")

	got, err := expandEnv([]byte("a: ${SWEAGENT_TEST_KEY}\nb: ${SWEAGENT_TEST_MISSING:-fallback}\nc: ${SWEAGENT_TEST_MISSING:-}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "a: secret\nb: fallback\nc: \n"; string(got) != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExpandEnv_Unresolved(t *testing.T) {
	_, err := expandEnv([]byte("a: ${SWEAGENT_TEST_NOPE_1}\nb: ${SWEAGENT_TEST_NOPE_2}\n"))
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"SWEAGENT_TEST_NOPE_1", "SWEAGENT_TEST_NOPE_2"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in %v", name, err)
		}
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultProvider != "anthropic" || cfg.MaxSteps != 20 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("SWEAGENT_TEST_OPENAI_KEY", "sk-from-env")

	path := writeFile(t, t.TempDir(), "sweagent.yaml", `
version: "1"
default_provider: openai
max_steps: 7
model_providers:
  openai:
    model: gpt-4.1
    api_key: ${SWEAGENT_TEST_OPENAI_KEY}
llm:
  retry_max_wait: 10s
ckg:
  exclude: ["**/dist/**"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DefaultProvider != "openai" || cfg.MaxSteps != 7 {
		t.Errorf("unexpected top-level values %+v", cfg)
	}
	p := cfg.ModelProviders["openai"]
	if p.Model != "gpt-4.1" || p.APIKey != "sk-from-env" {
		t.Errorf("unexpected openai params %+v", p)
	}
	if p.MaxTokens != DefaultMaxTokens || p.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected provider defaults, got %+v", p)
	}
	if cfg.LLM.RetryMinWait != 3*time.Second || cfg.LLM.RetryMaxWait != 10*time.Second {
		t.Errorf("unexpected retry waits %s %s", cfg.LLM.RetryMinWait, cfg.LLM.RetryMaxWait)
	}
	if !cfg.LLM.Breaker.Enabled {
		t.Error("expected the breaker to stay enabled")
	}
	if diff := cmp.Diff([]string{"**/dist/**"}, cfg.CKG.Exclude); diff != "" {
		t.Errorf("exclude mismatch (-want +got):\n%s", diff)
	}
	if strings.HasPrefix(cfg.CKG.Dir, "~") {
		t.Errorf("expected the home directory to be expanded, got %q", cfg.CKG.Dir)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
	bad := writeFile(t, dir, "bad.yaml", "max_steps: [\n")
	if _, err := Load(bad); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWEAGENT_TEST_PRESET", "kept")
	path := writeFile(t, dir, ".env", "SWEAGENT_TEST_DOTENV=loaded\nSWEAGENT_TEST_PRESET=overridden\n")
	t.Cleanup(func() { _ = os.Unsetenv("SWEAGENT_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("SWEAGENT_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected loaded, got %q", got)
	}
	if got := os.Getenv("SWEAGENT_TEST_PRESET"); got != "kept" {
		t.Errorf("expected existing variables to win, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "nope.env")); err != nil {
		t.Errorf("expected a missing file to be ignored, got %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, "sweagent"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := writeFile(t, filepath.Join(dir, "sweagent"), FileName, "version: \"1\"\n")

	got, err := ResolvePath("")
	if err != nil || got != want {
		t.Errorf("expected %q, got %q (%v)", want, got, err)
	}

	explicit := writeFile(t, dir, "other.yaml", "")
	if got, _ := ResolvePath(explicit); got != explicit {
		t.Errorf("expected explicit path, got %q", got)
	}
	if _, err := ResolvePath(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("expected an error for a missing explicit path")
	}
}

func TestResolvePath_NoneFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())

	got, err := ResolvePath("")
	if err != nil || got != "" {
		t.Errorf("expected no path and no error, got %q (%v)", got, err)
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Apply(Overrides{Provider: "openrouter", Model: "anthropic/claude-sonnet-4", APIKey: "k", MaxSteps: 3})

	if cfg.DefaultProvider != "openrouter" || cfg.MaxSteps != 3 {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	p := cfg.ModelProviders["openrouter"]
	if p.Model != "anthropic/claude-sonnet-4" || p.APIKey != "k" || p.MaxRetries != DefaultMaxRetries {
		t.Errorf("unexpected openrouter params %+v", p)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestProviderParams(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	cfg := Default()
	p, err := cfg.ProviderParams("anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.APIKey != "from-env" {
		t.Errorf("expected the env key, got %q", p.APIKey)
	}
	if _, err := cfg.ProviderParams("nope"); !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestYAML_MasksKeys(t *testing.T) {
	t.Parallel()

	cfg := Default()
	p := cfg.ModelProviders["openai"]
	p.APIKey = "sk-abcdefghijkl1234"
	cfg.ModelProviders["openai"] = p

	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "abcdefghijkl") {
		t.Errorf("expected the key to be masked:\n%s", data)
	}
	if !strings.Contains(string(data), "****1234") {
		t.Errorf("expected the masked key suffix:\n%s", data)
	}
	if cfg.ModelProviders["openai"].APIKey != "sk-abcdefghijkl1234" {
		t.Error("expected the original config to be untouched")
	}
}

func TestMaskKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{"": "", "short": "****", "sk-1234567890": "****7890"}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Log.Level = "debug"
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("expected debug, got %v", cfg.LogLevel())
	}
	cfg.Log.Level = "loud"
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("expected info fallback, got %v", cfg.LogLevel())
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Version = "2"
	cfg.MaxSteps = 0
	cfg.DefaultProvider = "missing"
	cfg.LLM.RetryMinWait = time.Minute
	cfg.LLM.RetryMaxWait = time.Second
	cfg.LLM.Breaker.FailureRatio = 2
	cfg.CKG.SweepSchedule = "every day"
	cfg.CKG.Exclude = []string{"[unclosed"}
	cfg.Log.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"unsupported version",
		"max_steps must be positive",
		`default_provider "missing"`,
		"retry_max_wait",
		"failure_ratio",
		"sweep_schedule",
		"ckg.exclude[0]",
		"log.format",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_UnknownProviderNeedsModel(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.ModelProviders["custom"] = provider.ModelParameters{}
	cfg.applyDefaults()

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "model_providers.custom: model is required") {
		t.Errorf("expected a missing model error, got %v", err)
	}
}
