package source

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Tree-sitter node types for the Python grammar. Direct traversal is used
// rather than the query language, matching how the rest of the pipeline
// visits nodes.
const (
	nodeImportStatement     = "import_statement"
	nodeImportFromStatement = "import_from_statement"
	nodeDottedName          = "dotted_name"
	nodeAliasedImport       = "aliased_import"
	nodeRelativeImport      = "relative_import"
	nodeImportPrefix        = "import_prefix"
	nodeWildcardImport      = "wildcard_import"
	nodeClassDefinition     = "class_definition"
)

// extract walks the whole tree once, collecting import statements and class
// declarations into the Context. Imports may appear at any nesting depth.
func extract(n *sitter.Node, content []byte, sc *Context) {
	switch n.Type() {
	case nodeImportStatement:
		sc.Imports = append(sc.Imports, extractDirectImports(n, content)...)
	case nodeImportFromStatement:
		sc.Imports = append(sc.Imports, extractFromImport(n, content))
	case nodeClassDefinition:
		if decl, ok := extractClassDecl(n, content); ok {
			sc.Classes = append(sc.Classes, decl)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		extract(n.NamedChild(i), content, sc)
	}
}

// extractDirectImports handles "import a.b, c as d", one Import per target.
func extractDirectImports(n *sitter.Node, content []byte) []Import {
	var imports []Import
	line := int(n.StartPoint().Row) + 1
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		var target string
		switch child.Type() {
		case nodeDottedName:
			target = child.Content(content)
		case nodeAliasedImport:
			if name := child.ChildByFieldName("name"); name != nil {
				target = name.Content(content)
			}
		default:
			continue
		}
		imports = append(imports, Import{
			Target: target,
			Kind:   ImportDirect,
			Line:   line,
		})
	}
	return imports
}

// extractFromImport handles "from [.]...a.b import c, d" including relative
// forms, where Level counts the leading dots.
func extractFromImport(n *sitter.Node, content []byte) Import {
	imp := Import{
		Kind: ImportFrom,
		Line: int(n.StartPoint().Row) + 1,
	}

	module := n.ChildByFieldName("module_name")
	if module != nil {
		switch module.Type() {
		case nodeDottedName:
			imp.Target = module.Content(content)
		case nodeRelativeImport:
			for i := 0; i < int(module.ChildCount()); i++ {
				part := module.Child(i)
				switch part.Type() {
				case nodeImportPrefix:
					imp.Level = len(part.Content(content))
				case nodeDottedName:
					imp.Target = part.Content(content)
				}
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if module != nil && child.Equal(module) {
			continue
		}
		switch child.Type() {
		case nodeDottedName:
			imp.Names = append(imp.Names, child.Content(content))
		case nodeAliasedImport:
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Names = append(imp.Names, name.Content(content))
			}
		case nodeWildcardImport:
			imp.Names = append(imp.Names, "*")
		}
	}
	return imp
}

// extractClassDecl records a class name and its declared base names.
// Keyword arguments in the superclass list (metaclass=...) are skipped.
func extractClassDecl(n *sitter.Node, content []byte) (ClassDecl, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ClassDecl{}, false
	}
	decl := ClassDecl{
		Name: nameNode.Content(content),
		Line: int(n.StartPoint().Row) + 1,
	}
	if args := n.ChildByFieldName("superclasses"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			base := args.NamedChild(i)
			text := base.Content(content)
			if strings.Contains(text, "=") {
				continue
			}
			// A dotted base like exc.BaseError is recorded by its final
			// segment, the name the hierarchy table is keyed on.
			if idx := strings.LastIndex(text, "."); idx >= 0 {
				text = text[idx+1:]
			}
			decl.Bases = append(decl.Bases, text)
		}
	}
	return decl, true
}
