// Package ckgtool exposes the code knowledge graph to the model as the
// ckg tool.
package ckgtool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/flemzord/sweagent/internal/ckg"
	"github.com/flemzord/sweagent/internal/tool"
)

// Name is the tool name exposed to the model.
const Name = "ckg"

var commands = []string{"search_function", "search_class", "search_class_method"}

const description = `Query the code knowledge graph of a codebase.
* State is persistent across command calls and discussions with the user
* The ` + "`search_function`" + ` command searches for functions in the codebase
* The ` + "`search_class`" + ` command searches for classes in the codebase
* The ` + "`search_class_method`" + ` command searches for class methods in the codebase
* If a ` + "`command`" + ` generates a long output, it will be truncated and marked with ` + "`<response clipped>`" + `
* If multiple entries are found, the tool will return all of them until the truncation is reached.
* By default, the tool will print function or class bodies as well as the file path and line number of the function or class. You can disable this by setting the ` + "`print_body`" + ` parameter to ` + "`false`" + `.
* The CKG is not completely accurate, and may not be able to find all functions or classes in the codebase.
`

// Opener opens the knowledge graph of a codebase. *ckg.Manager satisfies it.
type Opener interface {
	Open(ctx context.Context, codebasePath string) (*ckg.Database, error)
}

// Tool answers ckg queries, keeping one open database per codebase path
// for its lifetime.
type Tool struct {
	tool.Base

	opener Opener
	logger *slog.Logger

	mu        sync.Mutex
	databases map[string]*ckg.Database
}

// New creates the ckg tool.
func New(opener Opener, opts tool.Options) *Tool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		Base: tool.Base{
			ToolName:        Name,
			ToolDescription: description,
			ToolParameters: []tool.Parameter{
				{
					Name:        "command",
					Type:        []string{"string"},
					Description: "The command to run. Allowed options are " + strings.Join(commands, ", ") + ".",
					Enum:        commands,
					Required:    true,
				},
				{Name: "path", Type: []string{"string"}, Description: "The path to the codebase.", Required: true},
				{
					Name:        "identifier",
					Type:        []string{"string"},
					Description: "The identifier of the function or class to search for in the code knowledge graph.",
					Required:    true,
				},
				{
					Name:        "print_body",
					Type:        []string{"boolean"},
					Description: "Whether to print the body of the function or class. This is enabled by default.",
				},
			},
		},
		opener:    opener,
		logger:    logger.With("component", "tool.ckg"),
		databases: make(map[string]*ckg.Database),
	}
}

// Execute implements tool.Tool.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (tool.ExecResult, error) {
	command, ok := args["command"]
	if !ok {
		return tool.Failure("No command provided for the " + Name + " tool"), nil
	}
	path, ok := args["path"]
	if !ok {
		return tool.Failure("No path provided for the " + Name + " tool"), nil
	}
	identifier, ok := args["identifier"]
	if !ok {
		return tool.Failure("No identifier provided for the " + Name + " tool"), nil
	}
	printBody := true
	if tool.Has(args, "print_body") {
		printBody = truthy(args["print_body"])
	}

	codebase := fmt.Sprint(path)
	info, err := os.Stat(codebase)
	if err != nil {
		return tool.Failure(fmt.Sprintf("Codebase path %s does not exist", codebase)), nil
	}
	if !info.IsDir() {
		return tool.Failure(fmt.Sprintf("Codebase path %s is not a directory", codebase)), nil
	}

	db, err := t.database(ctx, codebase)
	if err != nil {
		return tool.ExecResult{}, err
	}

	name := fmt.Sprint(identifier)
	switch cmd := fmt.Sprint(command); cmd {
	case "search_function":
		entries, err := db.QueryFunctions(ctx, name, ckg.FreeFunction)
		if err != nil {
			return tool.ExecResult{}, err
		}
		return tool.Success(ckg.FormatFunctions(entries, name, printBody)), nil
	case "search_class":
		entries, err := db.QueryClasses(ctx, name)
		if err != nil {
			return tool.ExecResult{}, err
		}
		return tool.Success(ckg.FormatClasses(entries, name, printBody)), nil
	case "search_class_method":
		entries, err := db.QueryFunctions(ctx, name, ckg.ClassMethod)
		if err != nil {
			return tool.ExecResult{}, err
		}
		return tool.Success(ckg.FormatMethods(entries, name, printBody)), nil
	default:
		return tool.Failure("Invalid command: " + cmd), nil
	}
}

// database returns the cached database for path, opening it on first use.
func (t *Tool) database(ctx context.Context, path string) (*ckg.Database, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if db, ok := t.databases[path]; ok {
		return db, nil
	}
	db, err := t.opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("ckg database opened", "codebase", path, "store", db.Path)
	t.databases[path] = db
	return db, nil
}

// Close releases every cached database.
func (t *Tool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for path, db := range t.databases {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(t.databases, path)
	}
	return firstErr
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case float64:
		return b != 0
	default:
		return true
	}
}

// Interface guard.
var _ tool.Tool = (*Tool)(nil)
