// Package bash implements the bash tool: a persistent shell session the
// model drives one command at a time.
package bash

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/sweagent/internal/tool"
)

// Name is the tool name exposed to the model.
const Name = "bash"

const description = `Run commands in a bash shell
* When invoking this tool, the contents of the "command" parameter does NOT need to be XML-escaped.
* You have access to a mirror of common linux and python packages via apt and pip.
* State is persistent across command calls and discussions with the user.
* To inspect a particular line range of a file, e.g. lines 10-25, try 'sed -n 10,25p /path/to/the/file'.
* Please avoid commands that may produce a very large amount of output.
* Please run long lived commands in the background, e.g. 'sleep 10 &' or start a server in the background.
`

// Tool runs commands in a lazily started Session. Calls are serialized.
type Tool struct {
	tool.Base

	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	session *Session
}

// New creates the bash tool. The restart parameter is only declared
// required for providers that demand every parameter be required.
func New(opts tool.Options, timeout time.Duration) *Tool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		Base: tool.Base{
			ToolName:        Name,
			ToolDescription: description,
			ToolParameters: []tool.Parameter{
				{Name: "command", Type: []string{"string"}, Description: "The bash command to run.", Required: true},
				{Name: "restart", Type: []string{"boolean"}, Description: "Set to true to restart the bash session.", Required: opts.Provider == "openai"},
			},
		},
		timeout: timeout,
		logger:  logger.With("component", "tool.bash"),
	}
}

// Execute implements tool.Tool.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (tool.ExecResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if restart, _ := tool.Bool(args, "restart"); restart {
		if t.session != nil {
			_ = t.session.Stop()
		}
		t.session = NewSession(t.timeout)
		if err := t.session.Start(); err != nil {
			return tool.Failure(fmt.Sprintf("Error starting bash session: %v", err)), nil
		}
		t.logger.Info("bash session restarted")
		return tool.Success("tool has been restarted."), nil
	}

	if t.session == nil {
		s := NewSession(t.timeout)
		if err := s.Start(); err != nil {
			return tool.Failure(fmt.Sprintf("Error starting bash session: %v", err)), nil
		}
		t.session = s
	}

	command, ok := args["command"]
	if !ok || command == nil {
		return tool.Failure("No command provided for the bash tool"), nil
	}

	res, err := t.session.Run(ctx, fmt.Sprint(command))
	if err != nil {
		t.logger.Warn("bash command failed", "error", err)
		return tool.Failure(fmt.Sprintf("Error running bash command: %v", err)), nil
	}
	return tool.ExecResult{Output: res.Output, Error: res.Error, ErrorCode: res.ExitCode}, nil
}

// Close stops the underlying session, if any.
func (t *Tool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	err := t.session.Stop()
	t.session = nil
	return err
}

// Interface guard.
var _ tool.Tool = (*Tool)(nil)
