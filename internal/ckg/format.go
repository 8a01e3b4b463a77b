package ckg

import (
	"fmt"
	"strings"

	"github.com/flemzord/sweagent/internal/tool"
)

// clipped reports whether out outgrew the response limit and, if so,
// returns it cut with a note of how many entries were left out. index is
// the 1-based position of the entry after the last one written.
func clipped(out string, total, index int) (string, bool) {
	if len(out) <= tool.MaxResponseLen {
		return out, false
	}
	return tool.ClipString(out, tool.MaxResponseLen) +
		fmt.Sprintf("\n<response clipped> %d more entries not shown", total-index+1), true
}

// FormatFunctions renders free function matches for identifier.
func FormatFunctions(entries []FunctionEntry, identifier string, printBody bool) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No functions named %s found.", identifier)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d functions named %s:\n", len(entries), identifier)
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s:%d-%d\n", i+1, e.FilePath, e.StartLine, e.EndLine)
		if printBody {
			b.WriteString(e.Body + "\n\n")
		}
		if out, ok := clipped(b.String(), len(entries), i+2); ok {
			return out
		}
	}
	return b.String()
}

// FormatMethods renders class method matches for identifier.
func FormatMethods(entries []FunctionEntry, identifier string, printBody bool) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No class methods named %s found.", identifier)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d class methods named %s:\n", len(entries), identifier)
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s:%d-%d within class %s\n", i+1, e.FilePath, e.StartLine, e.EndLine, e.ParentClass)
		if printBody {
			b.WriteString(e.Body + "\n\n")
		}
		if out, ok := clipped(b.String(), len(entries), i+2); ok {
			return out
		}
	}
	return b.String()
}

// FormatClasses renders class matches for identifier, with field and
// method summaries.
func FormatClasses(entries []ClassEntry, identifier string, printBody bool) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No classes named %s found.", identifier)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d classes named %s:\n", len(entries), identifier)
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s:%d-%d\n", i+1, e.FilePath, e.StartLine, e.EndLine)
		if e.Fields != "" {
			b.WriteString("Fields:\n" + e.Fields + "\n")
		}
		if e.Methods != "" {
			b.WriteString("Methods:\n" + e.Methods + "\n")
		}
		if printBody {
			b.WriteString(e.Body + "\n\n")
		}
		if out, ok := clipped(b.String(), len(entries), i+2); ok {
			return out
		}
	}
	return b.String()
}
