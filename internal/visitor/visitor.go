// Package visitor evaluates all file-scoped rules in a single traversal of
// each file's syntax tree, with a function-context stack for
// context-sensitive checks and a per-(file, rule) result cache.
package visitor

import (
	"crypto/sha256"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/archlint/internal/rules"
	"github.com/jward/archlint/internal/source"
)

// Cache is the per-file, per-rule result store the engine consults before
// traversing. A Get hit requires a matching content fingerprint; misses are
// written back after the traversal. May be nil to disable caching.
type Cache interface {
	Get(path, ruleID, fingerprint string) (rules.Result, bool)
	Put(path, ruleID, fingerprint string, res rules.Result)
}

// Engine runs file-level validation. Safe for concurrent use across files:
// all per-file state lives in the traversal, not the Engine.
type Engine struct {
	repoDir   string
	hierarchy *rules.Hierarchy
	cache     Cache
	logger    *slog.Logger
}

// New creates an Engine. hierarchy may be nil when no error-hierarchy rule
// is selected; cache may be nil to force full evaluation.
func New(repoDir string, hierarchy *rules.Hierarchy, cache Cache, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repoDir: repoDir, hierarchy: hierarchy, cache: cache, logger: logger}
}

// ValidateFile evaluates every selected, non-exempt file rule against one
// file in a single tree traversal. Every evaluated rule has an entry in the
// returned map; rules with no violations report a passing Result, never an
// absence. Exempted rules are skipped entirely and absent from the map.
// The second return value counts rules served from cache.
func (e *Engine) ValidateFile(sc *source.Context, fileRules []rules.FileRule) (map[string]rules.Result, int) {
	results := make(map[string]rules.Result, len(fileRules))
	hits := 0

	var pending []rules.FileRule
	for _, rule := range fileRules {
		desc := rule.Descriptor()
		if desc.Exempted(sc) {
			continue
		}
		if e.cache != nil && cacheable(rule) {
			if res, ok := e.cache.Get(sc.Path, desc.ID, ruleFingerprint(sc, rule)); ok {
				results[desc.ID] = res
				hits++
				continue
			}
		}
		pending = append(pending, rule)
	}

	if len(pending) == 0 {
		return results, hits
	}

	fresh := e.traverse(sc, pending)
	for id, res := range fresh {
		results[id] = res
	}
	if e.cache != nil {
		for _, rule := range pending {
			if !cacheable(rule) {
				continue
			}
			desc := rule.Descriptor()
			e.cache.Put(sc.Path, desc.ID, ruleFingerprint(sc, rule), fresh[desc.ID])
		}
	}
	return results, hits
}

// cacheable reports whether a rule's results may be cached at all.
func cacheable(rule rules.FileRule) bool {
	_, uncacheable := rule.(rules.Uncacheable)
	return !uncacheable
}

// ruleFingerprint is the file's content fingerprint, salted with the rule's
// own definition hash when the rule provides one (scripted rules), so
// editing a rule invalidates its cached results without touching others.
func ruleFingerprint(sc *source.Context, rule rules.FileRule) string {
	salter, ok := rule.(rules.CacheSalter)
	if !ok {
		return sc.Fingerprint
	}
	sum := sha256.Sum256([]byte(sc.Fingerprint + "\x00" + salter.CacheSalt()))
	return fmt.Sprintf("%x", sum)
}

// traversal holds the mutable state of one file's walk.
type traversal struct {
	vc     rules.VisitContext
	byKind map[string][]rules.FileRule

	// asyncStack tags each enclosing function definition sync/async. The
	// top of the stack decides async context at the visited node; a
	// file-wide heuristic cannot, since files mix sync and async bodies.
	asyncStack []bool

	violations map[string][]rules.Violation
	failed     map[string]bool
}

func (e *Engine) traverse(sc *source.Context, pending []rules.FileRule) map[string]rules.Result {
	t := &traversal{
		vc: rules.VisitContext{
			Source:    sc,
			RepoDir:   e.repoDir,
			Hierarchy: e.hierarchy,
		},
		byKind:     make(map[string][]rules.FileRule),
		violations: make(map[string][]rules.Violation),
		failed:     make(map[string]bool),
	}
	for _, rule := range pending {
		for _, kind := range rule.NodeKinds() {
			t.byKind[kind] = append(t.byKind[kind], rule)
		}
	}

	if root := sc.Root(); root != nil {
		e.walk(root, t)
	}

	results := make(map[string]rules.Result, len(pending))
	for _, rule := range pending {
		id := rule.Descriptor().ID
		vs := t.violations[id]
		results[id] = rules.Result{
			Passed:     len(vs) == 0,
			Violations: vs,
		}
	}
	return results
}

func (e *Engine) walk(n *sitter.Node, t *traversal) {
	kind := n.Type()

	pushed := false
	if kind == "function_definition" {
		t.asyncStack = append(t.asyncStack, isAsync(n))
		pushed = true
	}
	t.vc.FuncDepth = len(t.asyncStack)
	t.vc.InAsyncFunc = len(t.asyncStack) > 0 && t.asyncStack[len(t.asyncStack)-1]

	for _, rule := range t.byKind[kind] {
		desc := rule.Descriptor()
		if t.failed[desc.ID] {
			continue
		}
		vs, err := e.checkSafely(rule, n, &t.vc)
		if err != nil {
			// A rule failing internally becomes a synthetic failing
			// violation; the remaining rules and files keep running.
			t.failed[desc.ID] = true
			t.violations[desc.ID] = append(t.violations[desc.ID], rules.Violation{
				RuleID:   desc.ID,
				Severity: desc.Severity,
				File:     t.vc.Source.Path,
				Line:     int(n.StartPoint().Row) + 1,
				Message:  fmt.Sprintf("rule %s failed internally: %v", desc.ID, err),
			})
			e.logger.Warn("rule execution failed",
				"rule", desc.ID, "file", t.vc.Source.Path, "err", err)
			continue
		}
		t.violations[desc.ID] = append(t.violations[desc.ID], vs...)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), t)
	}

	if pushed {
		t.asyncStack = t.asyncStack[:len(t.asyncStack)-1]
	}
}

// checkSafely calls a rule and converts a panic into an error at the rule
// boundary.
func (e *Engine) checkSafely(rule rules.FileRule, n *sitter.Node, vc *rules.VisitContext) (vs []rules.Violation, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			vs = nil
			err = fmt.Errorf("%v", rec)
		}
	}()
	return rule.Check(n, vc), nil
}

func isAsync(fn *sitter.Node) bool {
	for i := 0; i < int(fn.ChildCount()); i++ {
		if fn.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}
