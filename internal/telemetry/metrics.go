// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// setup shared by the agent, the tools, the LLM client and the code
// knowledge graph.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/sweagent/internal/provider"
)

const namespace = "sweagent"

// Metrics records observations on a private registry. It satisfies
// agent.Metrics, tool.Recorder, llm.Metrics and ckg.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	steps          *prometheus.CounterVec
	executions     *prometheus.CounterVec
	executionTime  prometheus.Histogram
	toolCalls      *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	llmCalls       *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	ckgBuilds      *prometheus.CounterVec
	ckgBuildTime   prometheus.Histogram
	ckgCacheHits   prometheus.Counter
	ckgSweptStores prometheus.Counter
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "steps_total",
			Help:      "Agent steps by final state.",
		}, []string{"state"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "executions_total",
			Help:      "Agent executions by outcome.",
		}, []string{"outcome"}),
		executionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "execution_duration_seconds",
			Help:      "Wall time of agent executions.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool call duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Model call attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Model call attempt duration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens reported by providers, by kind.",
		}, []string{"provider", "kind"}),
		ckgBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ckg",
			Name:      "builds_total",
			Help:      "Code knowledge graph builds by outcome.",
		}, []string{"outcome"}),
		ckgBuildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ckg",
			Name:      "build_duration_seconds",
			Help:      "Code knowledge graph build duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ckgCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ckg",
			Name:      "cache_hits_total",
			Help:      "Opens served by an existing store.",
		}),
		ckgSweptStores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ckg",
			Name:      "swept_stores_total",
			Help:      "Stale stores removed by sweeps.",
		}),
	}

	m.registry.MustRegister(
		m.steps, m.executions, m.executionTime,
		m.toolCalls, m.toolDuration,
		m.llmCalls, m.llmDuration, m.llmTokens,
		m.ckgBuilds, m.ckgBuildTime, m.ckgCacheHits, m.ckgSweptStores,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStep implements agent.Metrics.
func (m *Metrics) ObserveStep(state string) {
	m.steps.WithLabelValues(state).Inc()
}

// ObserveExecution implements agent.Metrics.
func (m *Metrics) ObserveExecution(success bool, elapsed time.Duration) {
	m.executions.WithLabelValues(outcome(success)).Inc()
	m.executionTime.Observe(elapsed.Seconds())
}

// ObserveToolCall implements tool.Recorder.
func (m *Metrics) ObserveToolCall(name string, success bool, elapsed time.Duration) {
	m.toolCalls.WithLabelValues(name, outcome(success)).Inc()
	m.toolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveLLMCall implements llm.Metrics.
func (m *Metrics) ObserveLLMCall(providerName, result string, elapsed time.Duration) {
	m.llmCalls.WithLabelValues(providerName, result).Inc()
	m.llmDuration.WithLabelValues(providerName).Observe(elapsed.Seconds())
}

// ObserveLLMTokens implements llm.Metrics.
func (m *Metrics) ObserveLLMTokens(providerName string, usage *provider.Usage) {
	if usage == nil {
		return
	}
	for kind, n := range map[string]int{
		"input":          usage.InputTokens,
		"output":         usage.OutputTokens,
		"cache_creation": usage.CacheCreationInputTokens,
		"cache_read":     usage.CacheReadInputTokens,
		"reasoning":      usage.ReasoningTokens,
	} {
		if n > 0 {
			m.llmTokens.WithLabelValues(providerName, kind).Add(float64(n))
		}
	}
}

// ObserveCKGBuild implements ckg.Metrics.
func (m *Metrics) ObserveCKGBuild(result string, elapsed time.Duration) {
	m.ckgBuilds.WithLabelValues(result).Inc()
	m.ckgBuildTime.Observe(elapsed.Seconds())
}

// ObserveCKGCacheHit implements ckg.Metrics.
func (m *Metrics) ObserveCKGCacheHit() {
	m.ckgCacheHits.Inc()
}

// ObserveCKGSwept implements ckg.Metrics.
func (m *Metrics) ObserveCKGSwept(n int) {
	if n > 0 {
		m.ckgSweptStores.Add(float64(n))
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
