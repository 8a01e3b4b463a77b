// Package tool defines the contract between the agent loop and the
// capabilities it exposes to the model: parameter schemas, execution
// results, and an executor that dispatches calls sequentially or in
// parallel without ever letting a tool failure escape as an error.
package tool

import "context"

// Tool is the interface that every agent capability implements.
//
// Name, Description and Parameters are metadata fixed at construction.
// Execute may be stateful (a persistent shell session) or pure.
type Tool interface {
	// Name returns the identifier exposed to the model.
	Name() string

	// Description returns the text shown to the model for this tool.
	Description() string

	// Parameters returns the declared parameter list used to build the
	// JSON schema sent to the provider.
	Parameters() []Parameter

	// Execute runs the tool. A returned error is converted by the executor
	// into a failed Result; tools report expected failures through
	// ExecResult.Error and a non-zero ExecResult.ErrorCode.
	Execute(ctx context.Context, args map[string]any) (ExecResult, error)
}

// Parameter declares one named argument of a tool.
type Parameter struct {
	Name string
	// Type holds one JSON type name, or several for a union
	// (for instance "string" and "null").
	Type        []string
	Description string
	Enum        []string
	// Items is the JSON schema of array elements.
	Items    map[string]any
	Required bool
}

// ExecResult is the low-level outcome of a single tool execution.
type ExecResult struct {
	Output    string
	Error     string
	ErrorCode int
}

// Call is a tool invocation requested by the model.
type Call struct {
	Name string `json:"name"`
	// CallID correlates the call with its result on the provider side.
	CallID    string         `json:"call_id"`
	Arguments map[string]any `json:"arguments"`
	// ID is an optional provider-specific identifier.
	ID string `json:"id,omitempty"`
}

// Result is the outcome of a Call as fed back to the model.
type Result struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Base carries the metadata shared by concrete tools. Embedding it
// satisfies the metadata half of the Tool interface.
type Base struct {
	ToolName        string
	ToolDescription string
	ToolParameters  []Parameter
}

// Name implements Tool.
func (b Base) Name() string { return b.ToolName }

// Description implements Tool.
func (b Base) Description() string { return b.ToolDescription }

// Parameters implements Tool.
func (b Base) Parameters() []Parameter { return b.ToolParameters }

// Failure builds an ExecResult reporting msg with error code -1.
func Failure(msg string) ExecResult {
	return ExecResult{Error: msg, ErrorCode: -1}
}

// Success builds an ExecResult carrying output.
func Success(output string) ExecResult {
	return ExecResult{Output: output}
}
