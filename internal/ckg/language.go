package ckg

import (
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a supported source language.
type Language string

// Supported languages.
const (
	Python     Language = "python"
	Java       Language = "java"
	CPP        Language = "cpp"
	C          Language = "c"
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
)

// source ties a file extension to its walker language and grammar.
type source struct {
	lang    Language
	grammar func() *sitter.Language
}

var extensions = map[string]source{
	".py":   {Python, python.GetLanguage},
	".java": {Java, java.GetLanguage},
	".cpp":  {CPP, cpp.GetLanguage},
	".hpp":  {CPP, cpp.GetLanguage},
	".c++":  {CPP, cpp.GetLanguage},
	".cxx":  {CPP, cpp.GetLanguage},
	".cc":   {CPP, cpp.GetLanguage},
	".c":    {C, c.GetLanguage},
	".h":    {C, c.GetLanguage},
	".ts":   {TypeScript, typescript.GetLanguage},
	".tsx":  {TypeScript, tsx.GetLanguage},
	".js":   {JavaScript, javascript.GetLanguage},
	".jsx":  {JavaScript, javascript.GetLanguage},
}

// LanguageOf returns the language indexed for path, if any.
func LanguageOf(path string) (Language, bool) {
	s, ok := extensions[filepath.Ext(path)]
	return s.lang, ok
}
