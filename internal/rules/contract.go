package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/archlint/internal/source"
)

// annotationsRule requires public function definitions to annotate every
// parameter and the return type. Entry points, dunder methods, and anything
// under test/demo/script paths are exempt.
type annotationsRule struct {
	exempt func(*source.Context) bool
}

func (r *annotationsRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC101",
		Name:        "public-annotations",
		Severity:    SeverityError,
		Scope:       FileLevel,
		Description: "Public functions must declare parameter and return type annotations.",
		Exempt:      r.exempt,
	}
}

func (r *annotationsRule) NodeKinds() []string { return []string{nodeFunctionDef} }

func (r *annotationsRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	src := vc.Source.Content
	name := defName(n, src)
	if name == "" || strings.HasPrefix(name, "_") || name == "main" {
		// Private helpers, dunders ("__x__" starts with "_"), entry points.
		return nil
	}

	var missing []string
	params := n.ChildByFieldName("parameters")
	if params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case nodeIdentifier:
				if pname := p.Content(src); pname != "self" && pname != "cls" {
					missing = append(missing, pname)
				}
			case "default_parameter":
				if pname := p.ChildByFieldName("name"); pname != nil {
					missing = append(missing, pname.Content(src))
				}
			}
			// typed_parameter, typed_default_parameter, and splat patterns
			// are either annotated or out of the contract's reach.
		}
	}

	var vs []Violation
	if len(missing) > 0 {
		vs = append(vs, Violation{
			RuleID:   "ARC101",
			Severity: SeverityError,
			File:     vc.Source.Path,
			Line:     line(n),
			Message: fmt.Sprintf("public function %q is missing parameter annotations: %s",
				name, strings.Join(missing, ", ")),
		})
	}
	if n.ChildByFieldName("return_type") == nil {
		vs = append(vs, Violation{
			RuleID:   "ARC101",
			Severity: SeverityError,
			File:     vc.Source.Path,
			Line:     line(n),
			Message:  fmt.Sprintf("public function %q is missing a return type annotation", name),
		})
	}
	return vs
}
