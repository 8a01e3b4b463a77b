// Package mcpserver exposes the agent tool set to external hosts over the
// Model Context Protocol on stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

const instructions = "Tools for working on a local repository: a persistent bash session, " +
	"a file editor, a JSON editor, structured thinking, and code knowledge graph queries. " +
	"Paths must be absolute."

// Server serves a fixed tool set. Calls go through a tool.Executor so
// failures and panics come back as error results.
type Server struct {
	mcp      *server.MCPServer
	executor *tool.Executor
	logger   *slog.Logger
}

// New registers tools on a new MCP server.
func New(name, version string, tools []tool.Tool, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
		executor: tool.NewExecutor(tools),
		logger:   logger.With("component", "mcp"),
	}

	for _, t := range tools {
		schema, err := json.Marshal(tool.InputSchema(t.Parameters(), false))
		if err != nil {
			return nil, fmt.Errorf("mcpserver: schema for %s: %w", t.Name(), err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema), s.handler(t.Name()))
	}
	return s, nil
}

// SetRecorder attaches a tool metrics sink.
func (s *Server) SetRecorder(r tool.Recorder) {
	s.executor.SetRecorder(r)
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		res := s.executor.Execute(ctx, tool.Call{Name: name, CallID: uuid.NewString(), Arguments: args})
		text := provider.ToolResultText(res)
		if !res.Success {
			s.logger.Debug("tool call failed", "tool", name, "error", res.Error)
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// Serve speaks MCP over in and out until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(slogWriter{s.logger}, "", 0))
	s.logger.Info("mcp server ready", "tools", len(s.executor.Tools()))
	return stdio.Listen(ctx, in, out)
}

// slogWriter adapts the stdlib logger mcp-go uses for transport errors.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Warn("mcp transport", "message", string(p))
	return len(p), nil
}
