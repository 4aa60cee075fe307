// Package rules defines the architectural-compliance rule registry: rule
// descriptors, severities, the file-level rule implementations the tree
// visitor dispatches to, and descriptors for the graph-level rules.
package rules

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/archlint/internal/source"
)

// Descriptor identifies a rule: stable id, display name, severity tier,
// evaluation scope, and exemption policy.
type Descriptor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Severity    Severity `json:"severity"`
	Scope       Scope    `json:"scope"`
	Description string   `json:"description"`

	// Exempt suppresses the rule for a file before it runs. A nil predicate
	// means never exempt. An exempted rule contributes zero violations and
	// is not cached as run.
	Exempt func(*source.Context) bool `json:"-"`
}

// Exempted reports whether the rule is exempt for the given file.
func (d Descriptor) Exempted(sc *source.Context) bool {
	return d.Exempt != nil && d.Exempt(sc)
}

// VisitContext carries the per-file state a rule sees at each visited node.
// The visitor owns and mutates it during traversal; rules only read it.
type VisitContext struct {
	// Source is the file under validation.
	Source *source.Context

	// RepoDir is the absolute repository root, for structural checks that
	// look at sibling files on disk.
	RepoDir string

	// Hierarchy is the same-run class-hierarchy table.
	Hierarchy *Hierarchy

	// InAsyncFunc is true iff the innermost enclosing function definition
	// at the current node is async. Maintained by the visitor's function
	// stack; this is the only sanctioned async-context signal.
	InAsyncFunc bool

	// FuncDepth is the number of enclosing function definitions.
	FuncDepth int
}

// FileRule is a file-scoped rule evaluated during the single tree traversal.
// Check is called once for every visited node whose type appears in
// NodeKinds; implementations must be safe for concurrent use across files.
type FileRule interface {
	Descriptor() Descriptor

	// NodeKinds lists the tree-sitter node types the rule wants to see.
	NodeKinds() []string

	// Check inspects one node and returns any violations it produces.
	Check(node *sitter.Node, vc *VisitContext) []Violation
}

// CacheSalter lets a rule fold extra state into its cache fingerprint, so a
// change to the rule's own definition (not the file) invalidates cached
// results for that rule only.
type CacheSalter interface {
	CacheSalt() string
}

// Uncacheable marks a rule whose result depends on state outside the file's
// content, such as sibling files on disk. Its results are never cached, so a
// change to that outside state is always observed on the next run.
type Uncacheable interface {
	Uncacheable()
}
