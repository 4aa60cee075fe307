package depgraph

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jward/archlint/internal/rules"
	"github.com/jward/archlint/internal/source"
)

// Validate runs the selected graph-level rules over an immutable graph.
// Results are never cached per file: any one file's graph result depends on
// the whole graph, so the orchestrator recomputes this on every run.
//
// The per-start-node searches only read the completed graph, so they run in
// parallel; the final ordering comes from an explicit merge in node order,
// never from completion order.
func Validate(ctx context.Context, g *Graph, selected []rules.Descriptor, logger *slog.Logger) []rules.Violation {
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[string]rules.Descriptor, len(selected))
	for _, d := range selected {
		byID[d.ID] = d
	}

	if g.Unowned > 0 {
		logger.Warn("excluding modules with unresolvable partition ownership from graph rules",
			"count", g.Unowned)
	}

	var out []rules.Violation
	if d, ok := byID[rules.RulePackageDependsOnApp]; ok {
		out = append(out, packageDependsOnApp(ctx, g, d)...)
	}
	if d, ok := byID[rules.RuleCrossAppImport]; ok {
		out = append(out, crossAppImport(g, d)...)
	}

	// Graph rules share the file-level test/demo exemption: a violation
	// whose source module is conventionally exempt is suppressed, keeping
	// behavior consistent between engines.
	filtered := out[:0]
	for _, v := range out {
		if node := g.nodeByPath(v.File); node != nil && node.Exempt {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered
}

// packageDependsOnApp flags every app module reachable from a package
// module, transitively, with the dependency path reconstructed from BFS
// parents. BFS yields the shortest path by edge count; ties break by the
// deterministic edge iteration order.
func packageDependsOnApp(ctx context.Context, g *Graph, desc rules.Descriptor) []rules.Violation {
	var starts []string
	for _, module := range g.Modules() {
		if g.Node(module).Partition == source.PartitionPackage {
			starts = append(starts, module)
		}
	}

	perStart := make([][]rules.Violation, len(starts))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, start := range starts {
		i, start := i, start
		eg.Go(func() error {
			perStart[i] = bfsFromPackage(g, start, desc)
			return nil
		})
	}
	// Workers never return errors; Wait is the completion barrier.
	_ = eg.Wait()

	var out []rules.Violation
	for _, vs := range perStart {
		out = append(out, vs...)
	}
	return out
}

func bfsFromPackage(g *Graph, start string, desc rules.Descriptor) []rules.Violation {
	parent := map[string]string{start: ""}
	queue := []string{start}
	var hits []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range g.OutEdges(current) {
			if _, visited := parent[edge.To]; visited {
				continue
			}
			parent[edge.To] = current
			target := g.Node(edge.To)
			if target == nil {
				continue
			}
			if target.Partition == source.PartitionApp {
				hits = append(hits, edge.To)
			}
			queue = append(queue, edge.To)
		}
	}

	sort.Strings(hits)
	var out []rules.Violation
	for _, hit := range hits {
		path := rebuildPath(parent, start, hit)
		out = append(out, rules.Violation{
			RuleID:         desc.ID,
			Severity:       desc.Severity,
			File:           g.Node(start).Path,
			Message:        dependencyMessage(g, start, hit, path),
			DependencyPath: path,
		})
	}
	return out
}

func dependencyMessage(g *Graph, start, hit string, path []string) string {
	owner := g.Node(hit).Owner
	if len(path) > 2 {
		return fmt.Sprintf("package module %q transitively depends on app %q module %q (via %s)",
			start, owner, hit, path[1])
	}
	return fmt.Sprintf("package module %q depends on app %q module %q", start, owner, hit)
}

func rebuildPath(parent map[string]string, start, end string) []string {
	var rev []string
	for current := end; current != ""; current = parent[current] {
		rev = append(rev, current)
		if current == start {
			break
		}
	}
	path := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

// crossAppImport flags direct edges from an app module to a module of a
// different app. Same-app edges are a deliberate exemption evaluated purely
// on partition-name equality, independent of file classification.
func crossAppImport(g *Graph, desc rules.Descriptor) []rules.Violation {
	var out []rules.Violation
	for _, module := range g.Modules() {
		node := g.Node(module)
		if node.Partition != source.PartitionApp {
			continue
		}
		for _, edge := range g.OutEdges(module) {
			target := g.Node(edge.To)
			if target == nil || target.Partition != source.PartitionApp {
				continue
			}
			if target.Owner == node.Owner {
				continue
			}
			out = append(out, rules.Violation{
				RuleID:   desc.ID,
				Severity: desc.Severity,
				File:     node.Path,
				Message: fmt.Sprintf("app %q module %q imports module %q of app %q",
					node.Owner, module, edge.To, target.Owner),
			})
		}
	}
	return out
}

// nodeByPath finds the node whose source path matches.
func (g *Graph) nodeByPath(path string) *Node {
	for _, node := range g.nodes {
		if node.Path == path {
			return node
		}
	}
	return nil
}
