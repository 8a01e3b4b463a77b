package swe

import (
	"context"
	"strings"

	"github.com/flemzord/sweagent/internal/agent"
	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/modules/tool/taskdone"
)

// EmptyPatchMessage is sent back when the model claims completion
// without a patch.
const EmptyPatchMessage = "ERROR! Your Patch is empty. Please provide a patch that fixes the problem."

// Policy completes a run when the model calls task_done and, if
// MustPatch is set, the working tree carries a non-test change.
type Policy struct {
	ProjectPath string
	BaseCommit  string
	MustPatch   bool

	// Diff produces the patch to verify. Nil means GitDiff.
	Diff func(ctx context.Context, dir, baseCommit string) string
}

// IndicatesCompletion implements agent.CompletionPolicy.
func (Policy) IndicatesCompletion(resp provider.CompletionResponse) bool {
	for _, c := range resp.ToolCalls {
		if c.Name == taskdone.Name {
			return true
		}
	}
	return false
}

// IsActuallyComplete implements agent.CompletionPolicy.
func (p Policy) IsActuallyComplete(ctx context.Context, _ provider.CompletionResponse) bool {
	if !p.MustPatch {
		return true
	}
	patch := RemovePatchesToTests(p.diff(ctx))
	return strings.TrimSpace(patch) != ""
}

// IncompleteMessage implements agent.CompletionPolicy.
func (Policy) IncompleteMessage() string {
	return EmptyPatchMessage
}

func (p Policy) diff(ctx context.Context) string {
	if p.Diff != nil {
		return p.Diff(ctx, p.ProjectPath, p.BaseCommit)
	}
	return GitDiff(ctx, p.ProjectPath, p.BaseCommit)
}

// Interface guard.
var _ agent.CompletionPolicy = Policy{}
