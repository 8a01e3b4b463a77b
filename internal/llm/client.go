// Package llm wraps a provider.Provider with the conversation history,
// retry, circuit breaking, pacing, and trajectory recording the agent
// loop relies on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

var tracer = otel.Tracer("github.com/flemzord/sweagent/internal/llm")

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("llm: circuit breaker open")

// Default retry waits.
const (
	DefaultRetryMinWait = 3 * time.Second
	DefaultRetryMaxWait = 30 * time.Second
)

// Recorder receives every completed model call.
type Recorder interface {
	RecordLLMInteraction(msgs []provider.LLMMessage, resp provider.CompletionResponse, providerName, model string, toolNames []string)
}

// Metrics receives one observation per model call attempt.
type Metrics interface {
	ObserveLLMCall(providerName, outcome string, elapsed time.Duration)
	ObserveLLMTokens(providerName string, usage *provider.Usage)
}

// BreakerConfig configures the per-client circuit breaker.
type BreakerConfig struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// Config configures a Client.
type Config struct {
	// Provider is the configured provider name, for example "openrouter".
	// It selects strict tool schemas and labels records. Empty means the
	// backend's own name.
	Provider          string
	Params            provider.ModelParameters
	RetryMinWait      time.Duration
	RetryMaxWait      time.Duration
	RequestsPerMinute int
	Breaker           BreakerConfig
}

// Client is a stateful conversation with one model.
type Client struct {
	backend  provider.Provider
	name     string
	cfg      Config
	logger   *slog.Logger
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[provider.CompletionResponse]
	recorder Recorder
	metrics  Metrics

	mu      sync.Mutex
	history []provider.LLMMessage
}

// New creates a Client over backend.
func New(backend provider.Provider, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryMinWait <= 0 {
		cfg.RetryMinWait = DefaultRetryMinWait
	}
	if cfg.RetryMaxWait < cfg.RetryMinWait {
		cfg.RetryMaxWait = max(DefaultRetryMaxWait, cfg.RetryMinWait)
	}
	name := cfg.Provider
	if name == "" {
		name = backend.Name()
	}

	c := &Client{
		backend: backend,
		name:    name,
		cfg:     cfg,
		logger:  logger.With("component", "llm", "provider", name),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(name, cfg.Breaker, c.logger)
	}
	return c
}

// SetRecorder attaches a trajectory recorder. Nil detaches it.
func (c *Client) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// SetMetrics attaches a metrics sink. Nil detaches it.
func (c *Client) SetMetrics(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.name }

// Model returns the configured model.
func (c *Client) Model() string { return c.cfg.Params.Model }

// Params returns the model parameters sent with every call.
func (c *Client) Params() provider.ModelParameters { return c.cfg.Params }

// BreakerState reports the circuit breaker state: "closed", "half-open",
// "open", or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// SetHistory replaces the conversation history.
func (c *Client) SetHistory(msgs []provider.LLMMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = slices.Clone(msgs)
}

// History returns a copy of the conversation history.
func (c *Client) History() []provider.LLMMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Chat appends msgs to the history, sends the whole history, and appends
// the reply.
func (c *Client) Chat(ctx context.Context, msgs []provider.LLMMessage, tools []tool.Tool) (provider.CompletionResponse, error) {
	return c.chat(ctx, msgs, tools, true)
}

// ChatOnce sends msgs without the prior history. The history is reset
// to msgs followed by the reply.
func (c *Client) ChatOnce(ctx context.Context, msgs []provider.LLMMessage, tools []tool.Tool) (provider.CompletionResponse, error) {
	return c.chat(ctx, msgs, tools, false)
}

func (c *Client) chat(ctx context.Context, msgs []provider.LLMMessage, tools []tool.Tool, reuse bool) (provider.CompletionResponse, error) {
	c.mu.Lock()
	if reuse {
		c.history = append(c.history, msgs...)
	} else {
		c.history = slices.Clone(msgs)
	}
	req := provider.CompletionRequest{
		Messages: slices.Clone(c.history),
		Tools:    tool.Definitions(tools, c.name == "openai"),
		Params:   c.cfg.Params,
	}
	recorder, metrics := c.recorder, c.metrics
	c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "llm.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.name),
		attribute.String("llm.model", c.cfg.Params.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	resp, err := c.completeWithRetry(ctx, req, metrics)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return provider.CompletionResponse{}, err
	}
	if resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
		)
	}

	c.mu.Lock()
	c.history = append(c.history, replyMessages(resp)...)
	c.mu.Unlock()

	if recorder != nil {
		recorder.RecordLLMInteraction(msgs, resp, c.name, c.cfg.Params.Model, toolNames(tools))
	}
	return resp, nil
}

// completeWithRetry makes up to MaxRetries+1 attempts, sleeping a random
// wait between attempts.
func (c *Client) completeWithRetry(ctx context.Context, req provider.CompletionRequest, metrics Metrics) (provider.CompletionResponse, error) {
	attempt := 0
	operation := func() (provider.CompletionResponse, error) {
		attempt++
		resp, err := c.attempt(ctx, req, metrics)
		if err != nil && !retryable(err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}

	tries := uint(max(c.cfg.Params.MaxRetries, 0)) + 1
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(randomWait{min: c.cfg.RetryMinWait, max: c.cfg.RetryMaxWait}),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("llm call failed, retrying",
				"attempt", attempt,
				"max_attempts", tries,
				"wait", wait,
				"transient", provider.IsRetryable(err),
				"error", err,
			)
		}),
	)
}

func (c *Client) attempt(ctx context.Context, req provider.CompletionRequest, metrics Metrics) (provider.CompletionResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return provider.CompletionResponse{}, err
		}
	}

	start := time.Now()
	var (
		resp provider.CompletionResponse
		err  error
	)
	if c.breaker != nil {
		resp, err = c.breaker.Execute(func() (provider.CompletionResponse, error) {
			return c.backend.Complete(ctx, req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.name, err)
		}
	} else {
		resp, err = c.backend.Complete(ctx, req)
	}

	if metrics != nil {
		metrics.ObserveLLMCall(c.name, outcome(err), time.Since(start))
		if err == nil {
			metrics.ObserveLLMTokens(c.name, resp.Usage)
		}
	}
	return resp, err
}

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[provider.CompletionResponse] {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	return gobreaker.NewCircuitBreaker[provider.CompletionResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, provider.ErrContextLength) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// retryable reports whether another attempt could succeed. Everything is
// retried except cancellation, context overflow and an open breaker.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, provider.ErrContextLength), errors.Is(err, ErrCircuitOpen):
		return false
	}
	return true
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, provider.ErrRateLimit):
		return "rate_limited"
	default:
		return "error"
	}
}

// replyMessages turns a reply into the assistant messages appended to
// the history: the text first, then one message per tool call.
func replyMessages(resp provider.CompletionResponse) []provider.LLMMessage {
	out := make([]provider.LLMMessage, 0, 1+len(resp.ToolCalls))
	if resp.Content != "" {
		out = append(out, provider.LLMMessage{Role: provider.MessageRoleAssistant, Content: resp.Content})
	}
	for i := range resp.ToolCalls {
		call := resp.ToolCalls[i]
		out = append(out, provider.LLMMessage{Role: provider.MessageRoleAssistant, ToolCall: &call})
	}
	return out
}

func toolNames(tools []tool.Tool) []string {
	if len(tools) == 0 {
		return nil
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

// randomWait waits a uniformly random duration in [min, max].
type randomWait struct {
	min, max time.Duration
}

func (w randomWait) NextBackOff() time.Duration {
	if w.max <= w.min {
		return w.min
	}
	return w.min + rand.N(w.max-w.min+1)
}

func (randomWait) Reset() {}
