package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// errorHierarchyRule checks that every *Error class subclassing another
// *Error class resolves to a sanctioned root exception type through the full
// transitive base chain. The chain is walked over the same-run hierarchy
// table, so a root reached via an intermediate class declared in a different
// file is correctly credited.
type errorHierarchyRule struct {
	roots map[string]bool
}

func (r *errorHierarchyRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC201",
		Name:        "error-hierarchy",
		Severity:    SeverityError,
		Scope:       FileLevel,
		Description: "Error classes must inherit, transitively, from a sanctioned root exception type.",
	}
}

func (r *errorHierarchyRule) NodeKinds() []string { return []string{nodeClassDef} }

func (r *errorHierarchyRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	src := vc.Source.Content
	name := defName(n, src)
	if !strings.HasSuffix(name, "Error") {
		return nil
	}

	// The rule applies only to classes that subclass another *Error class;
	// classes rooting a hierarchy directly on Exception are the sanctioned
	// pattern, not subjects.
	subclassesError := false
	if args := n.ChildByFieldName("superclasses"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			base := args.NamedChild(i)
			text := base.Content(src)
			if strings.Contains(text, "=") {
				continue
			}
			if idx := strings.LastIndex(text, "."); idx >= 0 {
				text = text[idx+1:]
			}
			if strings.HasSuffix(text, "Error") && !r.roots[text] {
				subclassesError = true
			}
		}
	}
	if !subclassesError {
		return nil
	}

	if vc.Hierarchy != nil && vc.Hierarchy.ReachesRoot(name, r.roots) {
		return nil
	}

	rootNames := make([]string, 0, len(r.roots))
	for root := range r.roots {
		rootNames = append(rootNames, root)
	}
	return []Violation{{
		RuleID:   "ARC201",
		Severity: SeverityError,
		File:     vc.Source.Path,
		Line:     line(n),
		Message: fmt.Sprintf("error class %q does not resolve to a sanctioned root (%s) through its base chain",
			name, strings.Join(sortedCopy(rootNames), ", ")),
	}}
}
