package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/archlint/internal/source"
)

// asyncNamingRule requires asynchronous functions to carry the _async
// suffix. Dunder async methods and test functions are exempt.
type asyncNamingRule struct {
	exempt func(*source.Context) bool
}

func (r *asyncNamingRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC102",
		Name:        "async-naming",
		Severity:    SeverityError,
		Scope:       FileLevel,
		Description: "Async functions must be named with the _async suffix.",
		Exempt:      r.exempt,
	}
}

func (r *asyncNamingRule) NodeKinds() []string { return []string{nodeFunctionDef} }

func (r *asyncNamingRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	if !isAsyncDef(n) {
		return nil
	}
	name := defName(n, vc.Source.Content)
	if name == "" || isDunder(name) || strings.HasPrefix(name, "test_") {
		return nil
	}
	if strings.HasSuffix(name, "_async") {
		return nil
	}
	return []Violation{{
		RuleID:   "ARC102",
		Severity: SeverityError,
		File:     vc.Source.Path,
		Line:     line(n),
		Message:  fmt.Sprintf("async function %q must carry the _async suffix", name),
	}}
}

// asyncBlockingRule flags blocking calls made inside an async function body.
// The decision uses the visitor's function-context stack: a call is a
// violation only when the innermost enclosing function definition is async.
// A file mixing sync and async functions therefore flags only the calls that
// truly block the event loop, never the sync-function copies.
type asyncBlockingRule struct{}

var blockingCalls = map[string]string{
	"time.sleep": "thread sleep",
	"open":       "synchronous file read",
}

// blockingCallKind resolves a call target to a blocking-call description.
// Exact names cover the stdlib cases; any call into the requests module
// blocks regardless of method, so that one matches by module prefix.
func blockingCallKind(target string) (string, bool) {
	if kind, ok := blockingCalls[target]; ok {
		return kind, true
	}
	if target == "requests" || strings.HasPrefix(target, "requests.") {
		return "synchronous HTTP request", true
	}
	return "", false
}

func (r *asyncBlockingRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC103",
		Name:        "async-blocking",
		Severity:    SeverityError,
		Scope:       FileLevel,
		Description: "Blocking calls (time.sleep, synchronous open, requests.*) are forbidden inside async function bodies.",
	}
}

func (r *asyncBlockingRule) NodeKinds() []string { return []string{nodeCall} }

func (r *asyncBlockingRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	if !vc.InAsyncFunc {
		return nil
	}
	target := callTarget(n, vc.Source.Content)
	kind, blocking := blockingCallKind(target)
	if !blocking {
		return nil
	}
	return []Violation{{
		RuleID:   "ARC103",
		Severity: SeverityError,
		File:     vc.Source.Path,
		Line:     line(n),
		Message:  fmt.Sprintf("%s via %s() inside an async function", kind, target),
	}}
}
