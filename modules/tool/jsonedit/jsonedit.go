// Package jsonedit implements json_edit_tool: JSONPath driven view and
// modification of JSON files.
package jsonedit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flemzord/sweagent/internal/tool"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/afero"
)

// Name is the tool name exposed to the model.
const Name = "json_edit_tool"

const description = `Tool for editing JSON files with JSONPath expressions
* Supports targeted modifications to JSON structures using JSONPath syntax
* Operations: view, set, add, remove
* JSONPath examples: '$.users[0].name', '$.config.database.host', '$.items[*].price'
* Safe JSON parsing and validation with detailed error messages
* Preserves JSON formatting where possible

Operation details:
- ` + "`view`" + `: Display JSON content or specific paths
- ` + "`set`" + `: Update existing values at specified paths
- ` + "`add`" + `: Add new key-value pairs (for objects) or append to arrays
- ` + "`remove`" + `: Delete elements at specified paths

JSONPath syntax supported:
- ` + "`$`" + ` - root element
- ` + "`.key`" + ` - object property access
- ` + "`[index]`" + ` - array index access
- ` + "`[*]`" + ` - all elements in array/object
- ` + "`..key`" + ` - recursive descent (find key at any level)
- ` + "`[start:end]`" + ` - array slicing
`

// jsonError is an expected failure surfaced with the tool error prefix.
type jsonError struct{ msg string }

func (e *jsonError) Error() string { return e.msg }

func failf(format string, args ...any) error {
	return &jsonError{msg: fmt.Sprintf(format, args...)}
}

// Tool is the json_edit_tool.
type Tool struct {
	tool.Base
	fs afero.Fs
}

// New creates the JSON edit tool over fs. A nil fs uses the OS filesystem.
func New(fs afero.Fs) *Tool {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Tool{
		Base: tool.Base{
			ToolName:        Name,
			ToolDescription: description,
			ToolParameters: []tool.Parameter{
				{
					Name:        "operation",
					Type:        []string{"string"},
					Description: "The operation to perform on the JSON file.",
					Enum:        []string{"view", "set", "add", "remove"},
					Required:    true,
				},
				{
					Name:        "file_path",
					Type:        []string{"string"},
					Description: "The full, ABSOLUTE path to the JSON file to edit. You MUST combine the [Project root path] with the file's relative path to construct this. Relative paths are NOT allowed.",
					Required:    true,
				},
				{
					Name:        "json_path",
					Type:        []string{"string"},
					Description: "JSONPath expression to specify the target location (e.g., '$.users[0].name', '$.config.database'). Required for set, add, and remove operations. Optional for view to show specific paths.",
				},
				{
					Name:        "value",
					Type:        []string{"object"},
					Description: "The value to set or add. Must be JSON-serializable. Required for set and add operations.",
				},
				{
					Name:        "pretty_print",
					Type:        []string{"boolean"},
					Description: "Whether to format the JSON output with proper indentation. Defaults to true.",
				},
			},
		},
		fs: fs,
	}
}

// Execute implements tool.Tool.
func (t *Tool) Execute(_ context.Context, args map[string]any) (tool.ExecResult, error) {
	operation := ""
	if tool.Has(args, "operation") {
		operation = strings.ToLower(fmt.Sprint(args["operation"]))
	}
	if operation == "" {
		return tool.Failure("Operation parameter is required"), nil
	}

	path := ""
	if tool.Has(args, "file_path") {
		path = fmt.Sprint(args["file_path"])
	}
	if path == "" {
		return tool.Failure("file_path parameter is required"), nil
	}
	if !filepath.IsAbs(path) {
		return tool.Failure("File path must be absolute: " + path), nil
	}

	var jsonPath *string
	if tool.Has(args, "json_path") {
		s, ok := tool.String(args, "json_path")
		if !ok {
			return tool.Failure("json_path parameter must be a string."), nil
		}
		jsonPath = &s
	}

	pretty := true
	if tool.Has(args, "pretty_print") {
		b, ok := tool.Bool(args, "pretty_print")
		if !ok {
			return tool.Failure("pretty_print parameter must be a boolean."), nil
		}
		pretty = b
	}

	res, err := t.run(operation, path, jsonPath, args["value"], pretty)
	if err != nil {
		var je *jsonError
		if errors.As(err, &je) {
			return tool.Failure("JSON edit tool error: " + je.msg), nil
		}
		return tool.ExecResult{}, err
	}
	return res, nil
}

func (t *Tool) run(operation, path string, jsonPath *string, value any, pretty bool) (tool.ExecResult, error) {
	if operation == "view" {
		expr := ""
		if jsonPath != nil {
			expr = *jsonPath
		}
		return t.view(path, expr, pretty)
	}

	if jsonPath == nil {
		return tool.Failure(fmt.Sprintf("json_path parameter is required and must be a string for the '%s' operation.", operation)), nil
	}

	switch operation {
	case "set", "add":
		if value == nil {
			return tool.Failure(fmt.Sprintf("A 'value' parameter is required for the '%s' operation.", operation)), nil
		}
		if operation == "set" {
			return t.set(path, *jsonPath, value, pretty)
		}
		return t.add(path, *jsonPath, value, pretty)
	case "remove":
		return t.remove(path, *jsonPath, pretty)
	default:
		return tool.Failure(fmt.Sprintf("Unknown operation: %s. Supported operations: view, set, add, remove", operation)), nil
	}
}

func (t *Tool) load(path string) (any, error) {
	exists, err := afero.Exists(t.fs, path)
	if err != nil {
		return nil, failf("Error reading file %s: %v", path, err)
	}
	if !exists {
		return nil, failf("File does not exist: %s", path)
	}
	raw, err := afero.ReadFile(t.fs, path)
	if err != nil {
		return nil, failf("Error reading file %s: %v", path, err)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return nil, failf("File is empty: %s", path)
	}
	data, err := oj.ParseString(content)
	if err != nil {
		return nil, failf("Invalid JSON in file %s: %v", path, err)
	}
	return data, nil
}

func (t *Tool) save(path string, data any, pretty bool) error {
	out, err := encode(data, pretty)
	if err != nil {
		return failf("Error writing to file %s: %v", path, err)
	}
	perm := os.FileMode(0o644)
	if info, err := t.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := afero.WriteFile(t.fs, path, []byte(out), perm); err != nil {
		return failf("Error writing to file %s: %v", path, err)
	}
	return nil
}

// encode renders data without HTML escaping, indented by two spaces when
// pretty is set. Object keys come out sorted.
func encode(data any, pretty bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func parsePath(expr string) (jp.Expr, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, failf("Invalid JSONPath expression '%s': %v", expr, err)
	}
	return x, nil
}

func (t *Tool) view(path, expr string, pretty bool) (tool.ExecResult, error) {
	data, err := t.load(path)
	if err != nil {
		return tool.ExecResult{}, err
	}

	if expr == "" {
		out, err := encode(data, pretty)
		if err != nil {
			return tool.ExecResult{}, failf("%v", err)
		}
		return tool.Success("JSON content of " + path + ":\n" + out), nil
	}

	x, err := parsePath(expr)
	if err != nil {
		return tool.ExecResult{}, err
	}
	matches := x.Get(data)
	if len(matches) == 0 {
		return tool.Success("No matches found for JSONPath: " + expr), nil
	}

	var result any = matches
	if len(matches) == 1 {
		result = matches[0]
	}
	out, err := encode(result, pretty)
	if err != nil {
		return tool.ExecResult{}, failf("%v", err)
	}
	return tool.Success("JSONPath '" + expr + "' matches:\n" + out), nil
}

func (t *Tool) set(path, expr string, value any, pretty bool) (tool.ExecResult, error) {
	data, err := t.load(path)
	if err != nil {
		return tool.ExecResult{}, err
	}
	x, err := parsePath(expr)
	if err != nil {
		return tool.ExecResult{}, err
	}

	locs := x.Locate(data, 0)
	if len(locs) == 0 {
		return tool.Failure("No matches found for JSONPath: " + expr), nil
	}
	for _, loc := range locs {
		data = replaceAt(data, loc, value)
	}
	if err := t.save(path, data, pretty); err != nil {
		return tool.ExecResult{}, err
	}

	encoded, _ := json.Marshal(value)
	return tool.Success(fmt.Sprintf("Successfully updated %d location(s) at JSONPath '%s' with value: %s", len(locs), expr, encoded)), nil
}

func (t *Tool) add(path, expr string, value any, pretty bool) (tool.ExecResult, error) {
	data, err := t.load(path)
	if err != nil {
		return tool.ExecResult{}, err
	}
	x, err := parsePath(expr)
	if err != nil {
		return tool.ExecResult{}, err
	}
	if len(x) < 2 {
		return tool.Failure(fmt.Sprintf("Unsupported add operation for path type: %T. Path must end in a key or array index.", lastFrag(x))), nil
	}

	parent, target := x[:len(x)-1], x[len(x)-1]
	parents := parent.Locate(data, 0)
	if isRoot(parent) {
		parents = []jp.Expr{parent}
	}
	if len(parents) == 0 {
		return tool.Failure("Parent path not found: " + parent.String()), nil
	}

	for _, loc := range parents {
		obj := valueAt(data, loc)
		switch frag := target.(type) {
		case jp.Child:
			m, ok := obj.(map[string]any)
			if !ok {
				return tool.Failure("Cannot add key to non-object at path: " + parent.String()), nil
			}
			m[string(frag)] = value
		case jp.Nth:
			list, ok := obj.([]any)
			if !ok {
				return tool.Failure("Cannot add element to non-array at path: " + parent.String()), nil
			}
			data = replaceAt(data, loc, insertAt(list, int(frag), value))
		default:
			return tool.Failure(fmt.Sprintf("Unsupported add operation for path type: %T. Path must end in a key or array index.", target)), nil
		}
	}

	if err := t.save(path, data, pretty); err != nil {
		return tool.ExecResult{}, err
	}
	return tool.Success("Successfully added value at JSONPath '" + expr + "'"), nil
}

func (t *Tool) remove(path, expr string, pretty bool) (tool.ExecResult, error) {
	data, err := t.load(path)
	if err != nil {
		return tool.ExecResult{}, err
	}
	x, err := parsePath(expr)
	if err != nil {
		return tool.ExecResult{}, err
	}

	locs := x.Locate(data, 0)
	if len(locs) == 0 {
		return tool.Failure("No matches found for JSONPath: " + expr), nil
	}

	// Later matches first so earlier array indexes stay valid.
	for i := len(locs) - 1; i >= 0; i-- {
		loc := locs[i]
		if isRoot(loc) {
			continue
		}
		parent, target := loc[:len(loc)-1], loc[len(loc)-1]
		switch frag := target.(type) {
		case jp.Child:
			if m, ok := valueAt(data, parent).(map[string]any); ok {
				delete(m, string(frag))
			}
		case jp.Nth:
			list, ok := valueAt(data, parent).([]any)
			idx := int(frag)
			if !ok || idx < -len(list) || idx >= len(list) {
				continue
			}
			if idx < 0 {
				idx += len(list)
			}
			trimmed := append(append([]any{}, list[:idx]...), list[idx+1:]...)
			data = replaceAt(data, parent, trimmed)
		}
	}

	if err := t.save(path, data, pretty); err != nil {
		return tool.ExecResult{}, err
	}
	return tool.Success(fmt.Sprintf("Successfully removed %d element(s) at JSONPath '%s'", len(locs), expr)), nil
}

// isRoot reports whether x addresses the document itself.
func isRoot(x jp.Expr) bool {
	if len(x) == 0 {
		return true
	}
	if len(x) > 1 {
		return false
	}
	switch x[0].(type) {
	case jp.Root, jp.At:
		return true
	}
	return false
}

func lastFrag(x jp.Expr) jp.Frag {
	if len(x) == 0 {
		return nil
	}
	return x[len(x)-1]
}

// valueAt returns the node at the normalized path loc.
func valueAt(data any, loc jp.Expr) any {
	if isRoot(loc) {
		return data
	}
	return loc.First(data)
}

// replaceAt stores v at the normalized path loc and returns the new root.
func replaceAt(data any, loc jp.Expr, v any) any {
	if isRoot(loc) {
		return v
	}
	_ = loc.SetOne(data, v)
	return data
}

// insertAt inserts v before index i. Negative indexes count from the end;
// out of range indexes are clamped.
func insertAt(list []any, i int, v any) []any {
	if i < 0 {
		i += len(list)
		if i < 0 {
			i = 0
		}
	}
	if i > len(list) {
		i = len(list)
	}
	out := make([]any, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, v)
	return append(out, list[i:]...)
}

// Interface guard.
var _ tool.Tool = (*Tool)(nil)
