// Package ckg builds and queries the code knowledge graph: a per-codebase
// SQLite index of the functions, methods and classes found by parsing the
// source tree with tree-sitter.
package ckg

// FunctionEntry is a function or method found in a source file. Lines are
// 1-based and inclusive. An empty parent means none.
type FunctionEntry struct {
	Name           string
	FilePath       string
	Body           string
	StartLine      int
	EndLine        int
	ParentFunction string
	ParentClass    string
}

// ClassEntry is a class found in a source file. Fields and Methods are
// newline separated "- ..." summaries.
type ClassEntry struct {
	Name      string
	FilePath  string
	Body      string
	StartLine int
	EndLine   int
	Fields    string
	Methods   string
}

// FunctionKind selects which function entries a query returns.
type FunctionKind int

const (
	// FreeFunction matches entries without a parent class.
	FreeFunction FunctionKind = iota
	// ClassMethod matches entries with a parent class.
	ClassMethod
)

// FileEntries holds everything extracted from one file, in discovery order.
type FileEntries struct {
	Path      string
	Functions []FunctionEntry
	Classes   []ClassEntry
}
