// Package edit implements str_replace_based_edit_tool, the file viewing
// and editing tool. All file access goes through an afero.Fs.
package edit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flemzord/sweagent/internal/tool"
	"github.com/spf13/afero"
)

// Name is the tool name exposed to the model.
const Name = "str_replace_based_edit_tool"

// snippetLines is the context shown around an edit.
const snippetLines = 4

var commands = []string{"view", "create", "str_replace", "insert"}

const description = "Custom editing tool for viewing, creating and editing files\n" +
	"* State is persistent across command calls and discussions with the user\n" +
	"* If `path` is a file, `view` displays the result of applying `cat -n`. If `path` is a directory, `view` lists non-hidden files and directories up to 2 levels deep\n" +
	"* The `create` command cannot be used if the specified `path` already exists as a file !!! If you know that the `path` already exists, please remove it first and then perform the `create` operation!\n" +
	"* If a `command` generates a long output, it will be truncated and marked with `<response clipped>`\n" +
	"\n" +
	"Notes for using the `str_replace` command:\n" +
	"* The `old_str` parameter should match EXACTLY one or more consecutive lines from the original file. Be mindful of whitespaces!\n" +
	"* If the `old_str` parameter is not unique in the file, the replacement will not be performed. Make sure to include enough context in `old_str` to make it unique\n" +
	"* The `new_str` parameter should contain the edited lines that should replace the `old_str`\n"

// editError is an expected failure reported back to the model verbatim.
type editError struct{ msg string }

func (e *editError) Error() string { return e.msg }

func failf(format string, args ...any) error {
	return &editError{msg: fmt.Sprintf(format, args...)}
}

// Tool is the str_replace_based_edit_tool.
type Tool struct {
	tool.Base
	fs afero.Fs
}

// New creates the edit tool over fs. A nil fs uses the OS filesystem.
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
					Name:        "command",
					Type:        []string{"string"},
					Description: "The commands to run. Allowed options are: " + strings.Join(commands, ", ") + ".",
					Enum:        commands,
					Required:    true,
				},
				{
					Name:        "file_text",
					Type:        []string{"string"},
					Description: "Required parameter of `create` command, with the content of the file to be created.",
				},
				{
					Name:        "insert_line",
					Type:        []string{"integer"},
					Description: "Required parameter of `insert` command. The `new_str` will be inserted AFTER the line `insert_line` of `path`.",
				},
				{
					Name:        "new_str",
					Type:        []string{"string"},
					Description: "Optional parameter of `str_replace` command containing the new string (if not given, no string will be added). Required parameter of `insert` command containing the string to insert.",
				},
				{
					Name:        "old_str",
					Type:        []string{"string"},
					Description: "Required parameter of `str_replace` command containing the string in `path` to replace.",
				},
				{
					Name:        "path",
					Type:        []string{"string"},
					Description: "Absolute path to file or directory, e.g. `/repo/file.py` or `/repo`.",
					Required:    true,
				},
				{
					Name:        "view_range",
					Type:        []string{"array"},
					Description: "Optional parameter of `view` command when `path` points to a file. If none is given, the full file is shown. If provided, the file will be shown in the indicated line number range, e.g. [11, 12] will show lines 11 and 12. Indexing at 1 to start. Setting `[start_line, -1]` shows all lines from `start_line` to the end of the file.",
					Items:       map[string]any{"type": "integer"},
				},
			},
		},
		fs: fs,
	}
}

// Execute implements tool.Tool.
func (t *Tool) Execute(_ context.Context, args map[string]any) (tool.ExecResult, error) {
	command, ok := args["command"]
	if !ok || command == nil {
		return tool.Failure("No command provided for the " + Name + " tool"), nil
	}
	rawPath, ok := args["path"]
	if !ok || rawPath == nil {
		return tool.Failure("No path provided for the " + Name + " tool"), nil
	}
	cmd := fmt.Sprint(command)
	path := fmt.Sprint(rawPath)

	res, err := t.dispatch(cmd, path, args)
	if err != nil {
		var ee *editError
		if errors.As(err, &ee) {
			return tool.Failure(ee.msg), nil
		}
		return tool.ExecResult{}, err
	}
	return res, nil
}

func (t *Tool) dispatch(cmd, path string, args map[string]any) (tool.ExecResult, error) {
	if err := t.validatePath(cmd, path); err != nil {
		return tool.ExecResult{}, err
	}

	switch cmd {
	case "view":
		return t.viewHandler(path, args)
	case "create":
		return t.createHandler(path, args)
	case "str_replace":
		return t.strReplaceHandler(path, args)
	case "insert":
		return t.insertHandler(path, args)
	default:
		return tool.Failure(fmt.Sprintf("Unrecognized command %s. The allowed commands for the %s tool are: %s",
			cmd, Name, strings.Join(commands, ", "))), nil
	}
}

func (t *Tool) validatePath(cmd, path string) error {
	if !filepath.IsAbs(path) {
		return failf("The path %s is not an absolute path, it should start with `/`. Maybe you meant %s?",
			path, filepath.Join("/", path))
	}
	exists, err := afero.Exists(t.fs, path)
	if err != nil {
		return err
	}
	if !exists && cmd != "create" {
		return failf("The path %s does not exist. Please provide a valid path.", path)
	}
	if exists && cmd == "create" {
		return failf("File already exists at: %s. Cannot overwrite files using command `create`.", path)
	}
	if exists && cmd != "view" {
		if isDir, _ := afero.IsDir(t.fs, path); isDir {
			return failf("The path %s is a directory and only the `view` command can be used on directories", path)
		}
	}
	return nil
}

func (t *Tool) viewHandler(path string, args map[string]any) (tool.ExecResult, error) {
	if !tool.Has(args, "view_range") {
		return t.view(path, nil)
	}
	viewRange, ok := tool.IntSlice(args, "view_range")
	if !ok {
		return tool.Failure("Parameter `view_range` should be a list of integers."), nil
	}
	return t.view(path, viewRange)
}

func (t *Tool) createHandler(path string, args map[string]any) (tool.ExecResult, error) {
	fileText, ok := tool.String(args, "file_text")
	if !ok {
		return tool.Failure("Parameter `file_text` is required and must be a string for command: create"), nil
	}
	if err := t.writeFile(path, fileText); err != nil {
		return tool.ExecResult{}, err
	}
	return tool.Success("File created successfully at: " + path), nil
}

func (t *Tool) strReplaceHandler(path string, args map[string]any) (tool.ExecResult, error) {
	oldStr, ok := tool.String(args, "old_str")
	if !ok {
		return tool.Failure("Parameter `old_str` is required and should be a string for command: str_replace"), nil
	}
	var newStr *string
	if tool.Has(args, "new_str") {
		s, ok := tool.String(args, "new_str")
		if !ok {
			return tool.Failure("Parameter `new_str` should be a string or null for command: str_replace"), nil
		}
		newStr = &s
	}
	return t.strReplace(path, oldStr, newStr)
}

func (t *Tool) insertHandler(path string, args map[string]any) (tool.ExecResult, error) {
	line, ok := tool.Int(args, "insert_line")
	if !ok {
		return tool.Failure("Parameter `insert_line` is required and should be integer for command: insert"), nil
	}
	newStr, ok := tool.String(args, "new_str")
	if !ok {
		return tool.Failure("Parameter `new_str` is required for command: insert"), nil
	}
	return t.insert(path, line, newStr)
}

func (t *Tool) readFile(path string) (string, error) {
	data, err := afero.ReadFile(t.fs, path)
	if err != nil {
		return "", failf("Ran into %v while trying to read %s", err, path)
	}
	return string(data), nil
}

func (t *Tool) writeFile(path, content string) error {
	perm := os.FileMode(0o644)
	if info, err := t.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := afero.WriteFile(t.fs, path, []byte(content), perm); err != nil {
		return failf("Ran into %v while trying to write to %s", err, path)
	}
	return nil
}

// makeOutput renders content in `cat -n` style starting at initLine.
func makeOutput(content, descriptor string, initLine int) string {
	content = expandTabs(tool.Truncate(content, tool.MaxResponseLen))
	lines := strings.Split(content, "\n")
	var b strings.Builder
	b.WriteString("Here's the result of running `cat -n` on " + descriptor + ":\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%6d\t%s", i+initLine, line)
	}
	b.WriteByte('\n')
	return b.String()
}

// expandTabs replaces tabs with spaces up to the next multiple of eight
// columns, restarting the column count after every line break.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n', '\r':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// intList formats ints as a bracketed, comma separated list.
func intList(values ...int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Interface guard.
var _ tool.Tool = (*Tool)(nil)
