// Package depgraph builds the whole-repository module dependency graph and
// runs the graph-level layering rules over it. Construction is purely
// additive; all rule logic lives in the validator.
package depgraph

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/jward/archlint/internal/source"
)

// Node is one resolvable module in the dependency graph.
type Node struct {
	Module    string           `json:"module"`
	Path      string           `json:"path"`
	Partition source.Partition `json:"-"`
	Owner     string           `json:"owner,omitempty"`

	// Exempt carries the source file's test/demo classification so graph
	// violations can apply the same exemption filter as file-level rules.
	Exempt bool `json:"-"`
}

// Edge is a directed import edge between two modules. Kind distinguishes
// direct and from-style imports for diagnostics only; both carry identical
// semantics in every rule.
type Edge struct {
	From string            `json:"from"`
	To   string            `json:"to"`
	Kind source.ImportKind `json:"kind"`
	Line int               `json:"line,omitempty"`
}

// Graph is the immutable per-run dependency graph. Every edge's endpoints
// exist in the node set; unresolved imports were dropped during the build.
type Graph struct {
	nodes map[string]*Node
	adj   map[string][]Edge
	order []string

	// Unresolved counts imports dropped as external/unresolvable.
	Unresolved int

	// Unowned counts nodes outside both partition roots, excluded from the
	// layering rules.
	Unowned int
}

// Node returns the node for a module identifier, or nil.
func (g *Graph) Node(module string) *Node {
	return g.nodes[module]
}

// Modules returns all module identifiers in sorted order.
func (g *Graph) Modules() []string {
	return g.order
}

// OutEdges returns a module's direct outgoing edges in deterministic order
// (by target, then kind).
func (g *Graph) OutEdges(module string) []Edge {
	return g.adj[module]
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Build assembles the graph from the full set of run contexts. Each import
// resolves through the canonical module-identifier space; relative and
// absolute forms of the same target produce the same edge. Imports that
// resolve to nothing inside the repository are external and are dropped with
// a debug log, never an error or a dangling edge.
func Build(contexts []*source.Context, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Graph{
		nodes: make(map[string]*Node, len(contexts)),
		adj:   make(map[string][]Edge),
	}

	for _, sc := range contexts {
		if sc.Module == "" {
			continue
		}
		g.nodes[sc.Module] = &Node{
			Module:    sc.Module,
			Path:      sc.Path,
			Partition: sc.Partition,
			Owner:     sc.OwningName,
			Exempt:    sc.Exempt(),
		}
		if sc.Partition == source.PartitionNone {
			g.Unowned++
		}
	}

	seen := make(map[Edge]bool)
	for _, sc := range contexts {
		if sc.ParseFailed || sc.Module == "" {
			continue
		}
		for _, imp := range sc.Imports {
			targets := resolve(imp, sc, g.nodes)
			if len(targets) == 0 {
				g.Unresolved++
				logger.Debug("dropping unresolved import",
					"file", sc.Path, "target", imp.Target, "level", imp.Level)
				continue
			}
			for _, target := range targets {
				if target == sc.Module {
					continue
				}
				edge := Edge{From: sc.Module, To: target, Kind: imp.Kind, Line: imp.Line}
				key := Edge{From: edge.From, To: edge.To, Kind: edge.Kind}
				if seen[key] {
					continue
				}
				seen[key] = true
				g.adj[sc.Module] = append(g.adj[sc.Module], edge)
			}
		}
	}

	g.order = make([]string, 0, len(g.nodes))
	for module := range g.nodes {
		g.order = append(g.order, module)
	}
	sort.Strings(g.order)
	for module := range g.adj {
		edges := g.adj[module]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Kind < edges[j].Kind
		})
	}
	return g
}

// resolve maps one import to the module identifiers it names inside the
// repository. The resolution is deterministic: the written target is
// normalized into the canonical identifier space and looked up directly;
// from-imports additionally try each imported name as a submodule. Anything
// ambiguous or absent resolves to nothing and is treated as external.
func resolve(imp source.Import, sc *source.Context, nodes map[string]*Node) []string {
	base := imp.Target
	if imp.Level > 0 {
		pkg := parentPackage(sc)
		for i := 1; i < imp.Level; i++ {
			idx := strings.LastIndex(pkg, ".")
			if idx < 0 {
				return nil
			}
			pkg = pkg[:idx]
		}
		if base == "" {
			base = pkg
		} else {
			base = pkg + "." + base
		}
	}
	if base == "" {
		return nil
	}

	var out []string
	if _, ok := nodes[base]; ok {
		out = append(out, base)
	}
	if imp.Kind == source.ImportFrom {
		for _, name := range imp.Names {
			if name == "*" {
				continue
			}
			if sub := base + "." + name; nodes[sub] != nil {
				out = append(out, sub)
			}
		}
	}
	return out
}

// parentPackage is the package a module's single-dot relative imports
// resolve against: the module itself for a package __init__, otherwise the
// module with its final segment removed.
func parentPackage(sc *source.Context) string {
	if strings.HasSuffix(sc.Path, "__init__.py") {
		return sc.Module
	}
	idx := strings.LastIndex(sc.Module, ".")
	if idx < 0 {
		return ""
	}
	return sc.Module[:idx]
}
