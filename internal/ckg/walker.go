package ckg

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitor collects entries from one parsed file. Each walker receives the
// innermost enclosing class and function seen so far.
type visitor struct {
	src  []byte
	path string
	out  *FileEntries
}

type walker func(v *visitor, n *sitter.Node, cls *ClassEntry, fn *FunctionEntry)

var walkers = map[Language]walker{
	Python:     walkPython,
	Java:       walkJava,
	CPP:        walkCPP,
	C:          walkC,
	TypeScript: walkScript,
	JavaScript: walkScript,
}

func (v *visitor) text(n *sitter.Node) string {
	return n.Content(v.src)
}

func (v *visitor) function(n, name *sitter.Node) *FunctionEntry {
	return &FunctionEntry{
		Name:      v.text(name),
		FilePath:  v.path,
		Body:      v.text(n),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

func (v *visitor) class(n, name *sitter.Node) *ClassEntry {
	return &ClassEntry{
		Name:      v.text(name),
		FilePath:  v.path,
		Body:      v.text(n),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

func (v *visitor) addFunction(e *FunctionEntry) {
	v.out.Functions = append(v.out.Functions, *e)
}

func (v *visitor) addClass(e *ClassEntry) {
	v.out.Classes = append(v.out.Classes, *e)
}

// children calls f for every child of n, named or not.
func children(n *sitter.Node, f func(*sitter.Node)) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			f(c)
		}
	}
}

// signature joins the text of n's children up to the first child of type
// stop.
func (v *visitor) signature(n *sitter.Node, stop string) string {
	var parts []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.Type() == stop {
			break
		}
		parts = append(parts, v.text(c))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// summary accumulates "- item" lines.
type summary struct{ b strings.Builder }

func (s *summary) add(item string) {
	s.b.WriteString("- ")
	s.b.WriteString(item)
	s.b.WriteByte('\n')
}

func (s *summary) String() string {
	return strings.TrimSpace(s.b.String())
}

func walkPython(v *visitor, n *sitter.Node, cls *ClassEntry, fn *FunctionEntry) {
	switch n.Type() {
	case "function_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.function(n, name)
			switch {
			case fn != nil && cls != nil:
				// A function enclosed by a function that itself sits inside
				// the class is a nested function, otherwise it is a method.
				if fn.StartLine >= cls.StartLine && fn.EndLine <= cls.EndLine {
					e.ParentFunction = fn.Name
				} else {
					e.ParentClass = cls.Name
				}
			case fn != nil:
				e.ParentFunction = fn.Name
			case cls != nil:
				e.ParentClass = cls.Name
			}
			v.addFunction(e)
			fn = e
		}
	case "class_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.class(n, name)
			var methods summary
			children(n.ChildByFieldName("body"), func(child *sitter.Node) {
				def := child
				switch child.Type() {
				case "decorated_definition":
					def = child.ChildByFieldName("definition")
				case "function_definition":
				default:
					return
				}
				if def == nil {
					return
				}
				methodName := def.ChildByFieldName("name")
				if methodName == nil {
					return
				}
				info := v.text(methodName)
				if params := def.ChildByFieldName("parameters"); params != nil {
					info += v.text(params)
				}
				if ret := def.ChildByFieldName("return_type"); ret != nil {
					info += " -> " + v.text(ret)
				}
				methods.add(info)
			})
			e.Methods = methods.String()
			v.addClass(e)
			cls = e
		}
	}

	children(n, func(c *sitter.Node) { walkPython(v, c, cls, fn) })
}

func walkJava(v *visitor, n *sitter.Node, cls *ClassEntry, fn *FunctionEntry) {
	switch n.Type() {
	case "class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.class(n, name)
			var methods, fields summary
			children(n.ChildByFieldName("body"), func(child *sitter.Node) {
				switch child.Type() {
				case "field_declaration":
					fields.add(v.text(child))
				case "method_declaration":
					methods.add(v.signature(child, "block"))
				}
			})
			e.Methods = methods.String()
			e.Fields = fields.String()
			v.addClass(e)
			cls = e
		}
	case "method_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.function(n, name)
			if cls != nil {
				e.ParentClass = cls.Name
			}
			v.addFunction(e)
		}
	}

	children(n, func(c *sitter.Node) { walkJava(v, c, cls, fn) })
}

func walkCPP(v *visitor, n *sitter.Node, cls *ClassEntry, fn *FunctionEntry) {
	switch n.Type() {
	case "class_specifier":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.class(n, name)
			var methods, fields summary
			children(n.ChildByFieldName("body"), func(child *sitter.Node) {
				switch child.Type() {
				case "function_definition":
					methods.add(v.signature(child, "compound_statement"))
				case "field_declaration":
					if declaresFunction(child) {
						methods.add(v.text(child))
					} else {
						fields.add(v.text(child))
					}
				}
			})
			e.Methods = methods.String()
			e.Fields = fields.String()
			v.addClass(e)
			cls = e
		}
	case "function_definition":
		if e := v.cFunction(n); e != nil {
			if cls != nil {
				e.ParentClass = cls.Name
			}
			v.addFunction(e)
		}
	}

	children(n, func(c *sitter.Node) { walkCPP(v, c, cls, fn) })
}

// declaresFunction reports whether a field declaration is a method
// prototype.
func declaresFunction(n *sitter.Node) bool {
	found := false
	children(n, func(c *sitter.Node) {
		if c.Type() == "function_declarator" {
			found = true
		}
	})
	return found
}

func walkC(v *visitor, n *sitter.Node, cls *ClassEntry, fn *FunctionEntry) {
	if n.Type() == "function_definition" {
		if e := v.cFunction(n); e != nil {
			v.addFunction(e)
		}
	}

	children(n, func(c *sitter.Node) { walkC(v, c, cls, fn) })
}

// cFunction names a C or C++ function_definition through its declarator.
func (v *visitor) cFunction(n *sitter.Node) *FunctionEntry {
	declarator := n.ChildByFieldName("declarator")
	if declarator == nil {
		return nil
	}
	name := declarator.ChildByFieldName("declarator")
	if name == nil {
		return nil
	}
	return v.function(n, name)
}

func walkScript(v *visitor, n *sitter.Node, cls *ClassEntry, fn *FunctionEntry) {
	switch n.Type() {
	case "class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.class(n, name)
			var methods, fields summary
			children(n.ChildByFieldName("body"), func(child *sitter.Node) {
				switch child.Type() {
				case "method_definition":
					methods.add(v.signature(child, "statement_block"))
				case "public_field_definition":
					fields.add(v.text(child))
				}
			})
			e.Methods = methods.String()
			e.Fields = fields.String()
			v.addClass(e)
			cls = e
		}
	case "method_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			e := v.function(n, name)
			if cls != nil {
				e.ParentClass = cls.Name
			}
			v.addFunction(e)
		}
	}

	children(n, func(c *sitter.Node) { walkScript(v, c, cls, fn) })
}
