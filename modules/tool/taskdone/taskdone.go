// Package taskdone implements the task_done tool the model calls to
// report that it has finished.
package taskdone

import (
	"context"

	"github.com/flemzord/sweagent/internal/tool"
)

// Name is the tool name the completion policy looks for.
const Name = "task_done"

const description = "Report the completion of the task. Note that you cannot call this tool before any " +
	"verification is done. You can write reproduce / test script to verify your solution."

// Tool is the task_done tool. It takes no parameters.
type Tool struct {
	tool.Base
}

// New creates the task_done tool.
func New() *Tool {
	return &Tool{Base: tool.Base{ToolName: Name, ToolDescription: description}}
}

// Execute implements tool.Tool.
func (t *Tool) Execute(context.Context, map[string]any) (tool.ExecResult, error) {
	return tool.Success("Task done."), nil
}

// Interface guard.
var _ tool.Tool = (*Tool)(nil)
