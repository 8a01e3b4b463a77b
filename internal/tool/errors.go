package tool

import "errors"

var (
	// ErrUnknownTool is returned when building a tool whose name has no
	// registered factory.
	ErrUnknownTool = errors.New("tool: unknown tool")

	// ErrEmptyToolName is returned when registering a factory without a name.
	ErrEmptyToolName = errors.New("tool: tool name must not be empty")

	// ErrDuplicateTool is returned when registering a factory under a name
	// that is already taken.
	ErrDuplicateTool = errors.New("tool: tool already registered")
)
