package edit

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flemzord/sweagent/internal/tool"
	"github.com/spf13/afero"
)

// maxListDepth bounds the directory listing of view.
const maxListDepth = 2

func (t *Tool) view(path string, viewRange []int) (tool.ExecResult, error) {
	if isDir, _ := afero.IsDir(t.fs, path); isDir {
		if len(viewRange) > 0 {
			return tool.ExecResult{}, failf("The `view_range` parameter is not allowed when `path` points to a directory.")
		}
		listing, err := t.listDir(path)
		if err != nil {
			return tool.Failure(err.Error()), nil
		}
		return tool.Success("Here's the files and directories up to 2 levels deep in " + path +
			", excluding hidden items:\n" + listing + "\n"), nil
	}

	content, err := t.readFile(path)
	if err != nil {
		return tool.ExecResult{}, err
	}

	initLine := 1
	if len(viewRange) > 0 {
		if len(viewRange) != 2 {
			return tool.ExecResult{}, failf("Invalid `view_range`. It should be a list of two integers.")
		}
		lines := strings.Split(content, "\n")
		n := len(lines)
		start, end := viewRange[0], viewRange[1]
		rangeText := intList(viewRange...)
		if start < 1 || start > n {
			return tool.ExecResult{}, failf("Invalid `view_range`: %s. Its first element `%d` should be within the range of lines of the file: %s",
				rangeText, start, intList(1, n))
		}
		if end > n {
			return tool.ExecResult{}, failf("Invalid `view_range`: %s. Its second element `%d` should be smaller than the number of lines in the file: `%d`",
				rangeText, end, n)
		}
		if end != -1 && end < start {
			return tool.ExecResult{}, failf("Invalid `view_range`: %s. Its second element `%d` should be larger or equal than its first `%d`",
				rangeText, end, start)
		}
		if end == -1 {
			content = strings.Join(lines[start-1:], "\n")
		} else {
			content = strings.Join(lines[start-1:end], "\n")
		}
		initLine = start
	}

	return tool.Success(makeOutput(content, path, initLine)), nil
}

// listDir lists path and its non-hidden descendants up to maxListDepth
// levels, one path per line in walk order.
func (t *Tool) listDir(root string) (string, error) {
	var lines []string
	err := afero.Walk(t.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			lines = append(lines, path)
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if strings.HasPrefix(parts[len(parts)-1], ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		lines = append(lines, path)
		if info.IsDir() && len(parts) >= maxListDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (t *Tool) strReplace(path, oldStr string, newStr *string) (tool.ExecResult, error) {
	raw, err := t.readFile(path)
	if err != nil {
		return tool.ExecResult{}, err
	}
	content := expandTabs(raw)
	oldStr = expandTabs(oldStr)
	replacement := ""
	if newStr != nil {
		replacement = expandTabs(*newStr)
	}

	switch occurrences := strings.Count(content, oldStr); {
	case occurrences == 0:
		return tool.ExecResult{}, failf("No replacement was performed, old_str `%s` did not appear verbatim in %s.", oldStr, path)
	case occurrences > 1:
		var lines []int
		for i, line := range strings.Split(content, "\n") {
			if strings.Contains(line, oldStr) {
				lines = append(lines, i+1)
			}
		}
		return tool.ExecResult{}, failf("No replacement was performed. Multiple occurrences of old_str `%s` in lines %s. Please ensure it is unique",
			oldStr, intList(lines...))
	}

	updated := strings.Replace(content, oldStr, replacement, 1)
	if err := t.writeFile(path, updated); err != nil {
		return tool.ExecResult{}, err
	}

	replacementLine := strings.Count(content[:strings.Index(content, oldStr)], "\n")
	start := max(0, replacementLine-snippetLines)
	end := replacementLine + snippetLines + strings.Count(replacement, "\n")
	newLines := strings.Split(updated, "\n")
	snippet := strings.Join(newLines[start:min(end+1, len(newLines))], "\n")

	return tool.Success("The file " + path + " has been edited. " +
		makeOutput(snippet, "a snippet of "+path, start+1) +
		"Review the changes and make sure they are as expected. Edit the file again if necessary."), nil
}

func (t *Tool) insert(path string, line int, newStr string) (tool.ExecResult, error) {
	raw, err := t.readFile(path)
	if err != nil {
		return tool.ExecResult{}, err
	}
	lines := strings.Split(expandTabs(raw), "\n")
	n := len(lines)
	if line < 0 || line > n {
		return tool.ExecResult{}, failf("Invalid `insert_line` parameter: %d. It should be within the range of lines of the file: %s",
			line, intList(0, n))
	}

	inserted := strings.Split(expandTabs(newStr), "\n")

	updated := make([]string, 0, n+len(inserted))
	updated = append(updated, lines[:line]...)
	updated = append(updated, inserted...)
	updated = append(updated, lines[line:]...)

	var snippet []string
	snippet = append(snippet, lines[max(0, line-snippetLines):line]...)
	snippet = append(snippet, inserted...)
	snippet = append(snippet, lines[line:min(line+snippetLines, n)]...)

	if err := t.writeFile(path, strings.Join(updated, "\n")); err != nil {
		return tool.ExecResult{}, err
	}

	return tool.Success("The file " + path + " has been edited. " +
		makeOutput(strings.Join(snippet, "\n"), "a snippet of the edited file", max(1, line-snippetLines+1)) +
		"Review the changes and make sure they are as expected (correct indentation, no duplicate lines, etc). Edit the file again if necessary."), nil
}
