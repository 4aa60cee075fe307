package rules

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Node types shared by the built-in rules.
const (
	nodeModule        = "module"
	nodeCall          = "call"
	nodeFunctionDef   = "function_definition"
	nodeClassDef      = "class_definition"
	nodeImportStmt    = "import_statement"
	nodeImportFrom    = "import_from_statement"
	nodeIdentifier    = "identifier"
	nodeAttribute     = "attribute"
	nodeString        = "string"
	nodeKeywordArg    = "keyword_argument"
	nodeDottedName    = "dotted_name"
	nodeAliasedImport = "aliased_import"
)

func sortedCopy(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// callTarget returns the dotted callee of a call node, e.g. "time.sleep" for
// time.sleep(1) or "open" for open(p). Empty when the callee is not a plain
// identifier/attribute chain (subscripts, lambdas, nested calls).
func callTarget(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	return dottedName(fn, src)
}

func dottedName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case nodeIdentifier:
		return n.Content(src)
	case nodeAttribute:
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return ""
		}
		base := dottedName(obj, src)
		if base == "" {
			return ""
		}
		return base + "." + attr.Content(src)
	}
	return ""
}

// isAsyncDef reports whether a function_definition carries the async keyword.
// The keyword is an anonymous child, so all children are scanned.
func isAsyncDef(fn *sitter.Node) bool {
	for i := 0; i < int(fn.ChildCount()); i++ {
		if fn.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// isDunder reports whether a name follows the __special__ convention.
func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}

// defName returns a function or class definition's name.
func defName(def *sitter.Node, src []byte) string {
	name := def.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return name.Content(src)
}

// topModule returns the first segment of a dotted import target.
func topModule(target string) string {
	head, _, _ := strings.Cut(target, ".")
	return head
}

// keywordArgTrue reports whether a call passes the given keyword with the
// literal True.
func keywordArgTrue(call *sitter.Node, src []byte, keyword string) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != nodeKeywordArg {
			continue
		}
		name := arg.ChildByFieldName("name")
		value := arg.ChildByFieldName("value")
		if name != nil && value != nil &&
			name.Content(src) == keyword && value.Content(src) == "True" {
			return true
		}
	}
	return false
}

// isLiteralString reports whether a node is a plain string literal. An
// f-string with interpolations is not literal: its value depends on runtime
// data, which is exactly the unsafe-shell case.
func isLiteralString(n *sitter.Node) bool {
	if n.Type() != nodeString {
		return false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "interpolation" {
			return false
		}
	}
	return true
}

// firstPositionalArg returns a call's first non-keyword argument, or nil.
func firstPositionalArg(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != nodeKeywordArg {
			return arg
		}
	}
	return nil
}
