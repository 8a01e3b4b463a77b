package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/flemzord/sweagent/internal/tool")

// Recorder receives one observation per completed tool call.
type Recorder interface {
	ObserveToolCall(name string, success bool, elapsed time.Duration)
}

// Executor resolves calls against a fixed tool list and runs them.
// It never returns an error: unknown tools, returned errors and panics
// all surface as failed Results.
type Executor struct {
	tools    []Tool
	byName   map[string]Tool
	recorder Recorder
}

// NewExecutor creates an Executor over tools. Lookups are done by
// normalized name so minor naming drift on the provider side still
// resolves to the right tool.
func NewExecutor(tools []Tool) *Executor {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[NormalizeName(t.Name())] = t
	}
	return &Executor{tools: tools, byName: byName}
}

// SetRecorder attaches a metrics recorder. A nil recorder disables metrics.
func (e *Executor) SetRecorder(r Recorder) {
	e.recorder = r
}

// Tools returns the tools the executor was built with, in order.
func (e *Executor) Tools() []Tool {
	return e.tools
}

// NormalizeName lowercases name and strips underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// Run dispatches calls in parallel or sequentially.
func (e *Executor) Run(ctx context.Context, calls []Call, parallel bool) []Result {
	if parallel {
		return e.Parallel(ctx, calls)
	}
	return e.Sequential(ctx, calls)
}

// Parallel runs all calls concurrently and returns results in input order.
func (e *Executor) Parallel(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c Call) {
			defer wg.Done()
			results[idx] = e.Execute(ctx, c)
		}(i, call)
	}

	wg.Wait()
	return results
}

// Sequential runs calls one at a time, each finished before the next starts.
func (e *Executor) Sequential(ctx context.Context, calls []Call) []Result {
	results := make([]Result, 0, len(calls))
	for _, c := range calls {
		results = append(results, e.Execute(ctx, c))
	}
	return results
}

// Execute runs a single call.
func (e *Executor) Execute(ctx context.Context, call Call) (result Result) {
	result = Result{CallID: call.CallID, Name: call.Name, ID: call.ID}

	t, ok := e.byName[NormalizeName(call.Name)]
	if !ok {
		result.Error = fmt.Sprintf("Tool '%s' not found. Available tools: %s", call.Name, e.availableNames())
		return result
	}

	ctx, span := tracer.Start(ctx, "tool.execute")
	span.SetAttributes(attribute.String("tool.name", t.Name()))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Result = ""
			result.Error = fmt.Sprintf("Error executing tool '%s': %v", call.Name, r)
		}
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
		}
		span.End()
		if e.recorder != nil {
			e.recorder.ObserveToolCall(t.Name(), result.Success, time.Since(start))
		}
	}()

	out, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		result.Error = fmt.Sprintf("Error executing tool '%s': %v", call.Name, err)
		return result
	}

	result.Success = out.ErrorCode == 0
	result.Result = out.Output
	result.Error = out.Error
	return result
}

// availableNames formats the tool names as a bracketed, quoted list.
func (e *Executor) availableNames() string {
	quoted := make([]string, len(e.tools))
	for i, t := range e.tools {
		quoted[i] = "'" + t.Name() + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
