package rules

import "github.com/jward/archlint/internal/source"

// Hierarchy is the same-run class-hierarchy table: class name to declared
// base-class names, collected across every visited file. It exists so the
// error-hierarchy rule can credit indirect inheritance; a direct-base-only
// check wrongly flags classes whose sanctioned root sits several hops away,
// possibly in another file. Immutable once built.
type Hierarchy struct {
	bases map[string][]string
}

// BuildHierarchy assembles the table from the run's contexts. Class
// declarations were collected during context building, so no tree is
// traversed again here. When the same class name is declared in multiple
// files, base lists are merged; the rule only needs reachability.
func BuildHierarchy(contexts []*source.Context) *Hierarchy {
	h := &Hierarchy{bases: make(map[string][]string)}
	for _, sc := range contexts {
		if sc.ParseFailed {
			continue
		}
		for _, decl := range sc.Classes {
			h.bases[decl.Name] = append(h.bases[decl.Name], decl.Bases...)
		}
	}
	return h
}

// Known reports whether the class name was declared in this run.
func (h *Hierarchy) Known(name string) bool {
	_, ok := h.bases[name]
	return ok
}

// ReachesRoot walks the full transitive base chain from name and reports
// whether any reachable ancestor is one of roots. A base that was not
// declared in this run counts only if it is itself a root name. Cycles in
// declared bases terminate via the visited set.
func (h *Hierarchy) ReachesRoot(name string, roots map[string]bool) bool {
	visited := map[string]bool{}
	stack := []string{name}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		if current != name && roots[current] {
			return true
		}
		stack = append(stack, h.bases[current]...)
	}
	return false
}
