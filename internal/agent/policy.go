package agent

import (
	"context"
	"strings"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

// CompletionPolicy decides when a run is over.
type CompletionPolicy interface {
	// IndicatesCompletion is the cheap check: does the reply claim the
	// task is done?
	IndicatesCompletion(resp provider.CompletionResponse) bool

	// IsActuallyComplete verifies the claim. It may inspect the
	// environment, for instance the working tree.
	IsActuallyComplete(ctx context.Context, resp provider.CompletionResponse) bool

	// IncompleteMessage is sent back to the model when the claim does not
	// hold.
	IncompleteMessage() string
}

// DefaultCompletionKeywords are matched against the lowercased reply by
// KeywordPolicy.
var DefaultCompletionKeywords = []string{
	"task completed",
	"task finished",
	"done",
	"completed successfully",
	"finished successfully",
}

// DefaultIncompleteMessage is KeywordPolicy's nudge.
const DefaultIncompleteMessage = "The task is incomplete. Please try again."

// KeywordPolicy treats any reply containing one of Keywords as complete.
// It is a fallback; concrete agents should use a precise signal.
type KeywordPolicy struct {
	// Keywords defaults to DefaultCompletionKeywords when empty.
	Keywords []string
}

// IndicatesCompletion implements CompletionPolicy.
func (p KeywordPolicy) IndicatesCompletion(resp provider.CompletionResponse) bool {
	keywords := p.Keywords
	if len(keywords) == 0 {
		keywords = DefaultCompletionKeywords
	}
	content := strings.ToLower(resp.Content)
	for _, k := range keywords {
		if strings.Contains(content, k) {
			return true
		}
	}
	return false
}

// IsActuallyComplete implements CompletionPolicy. The claim is trusted.
func (KeywordPolicy) IsActuallyComplete(context.Context, provider.CompletionResponse) bool {
	return true
}

// IncompleteMessage implements CompletionPolicy.
func (KeywordPolicy) IncompleteMessage() string {
	return DefaultIncompleteMessage
}

// Reflector turns the results of a step into a corrective message for
// the model. An empty string means nothing to say.
type Reflector interface {
	Reflect(results []tool.Result) string
}

// FailureReflector emits one line per failed result.
type FailureReflector struct{}

// Reflect implements Reflector.
func (FailureReflector) Reflect(results []tool.Result) string {
	var lines []string
	for _, r := range results {
		if !r.Success {
			lines = append(lines, "The tool execution failed with error: "+r.Error+". Consider a different approach.")
		}
	}
	return strings.Join(lines, "\n")
}

// NoReflection never reflects.
type NoReflection struct{}

// Reflect implements Reflector.
func (NoReflection) Reflect([]tool.Result) string { return "" }
