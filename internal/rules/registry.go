package rules

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/archlint/internal/source"
)

// Graph-level rule ids. The implementations live in the dependency graph
// validator; the registry carries their descriptors for selection and
// routing.
const (
	RulePackageDependsOnApp = "ARC401"
	RuleCrossAppImport      = "ARC402"
)

// Config parameterizes the built-in rules.
type Config struct {
	// Layout locates package/app roots for structural checks.
	Layout source.Layout

	// PlatformPrefix is the required package directory name prefix.
	PlatformPrefix string

	// ManifestName is the manifest file every app root must contain.
	ManifestName string

	// SanctionedErrorRoots are the exception class names an error hierarchy
	// must transitively reach.
	SanctionedErrorRoots []string

	// Grandfathered are doublestar globs naming files still allowed to use
	// the deprecated configuration accessors.
	Grandfathered []string
}

// DefaultConfig returns the conventional rule parameters.
func DefaultConfig() Config {
	return Config{
		Layout:               source.DefaultLayout(),
		PlatformPrefix:       "plat_",
		ManifestName:         "app.yaml",
		SanctionedErrorRoots: []string{"Exception", "PlatformError"},
	}
}

// Registry is the immutable, ordered rule table for a run. It is constructed
// explicitly and passed into the orchestrator, never held as process-global
// state, so concurrent test runs stay isolated.
type Registry struct {
	file  []FileRule
	graph []Descriptor
}

// NewRegistry builds the registry of built-in rules from cfg.
func NewRegistry(cfg Config) *Registry {
	exemptTestDemo := func(sc *source.Context) bool { return sc.Exempt() }
	exemptGrandfathered := func(sc *source.Context) bool {
		for _, pattern := range cfg.Grandfathered {
			if ok, err := doublestar.Match(pattern, sc.Path); err == nil && ok {
				return true
			}
		}
		return false
	}

	return &Registry{
		file: []FileRule{
			&dynamicExecRule{},
			&unsafeImportRule{},
			&unsafeShellRule{},
			&annotationsRule{exempt: exemptTestDemo},
			&asyncNamingRule{exempt: exemptTestDemo},
			&asyncBlockingRule{},
			&errorHierarchyRule{roots: toSet(cfg.SanctionedErrorRoots)},
			&appStructureRule{layout: cfg.Layout, manifest: cfg.ManifestName},
			&packagePrefixRule{layout: cfg.Layout, prefix: cfg.PlatformPrefix},
			&deprecatedConfigRule{exempt: exemptGrandfathered},
		},
		graph: []Descriptor{
			{
				ID:          RulePackageDependsOnApp,
				Name:        "package-depends-on-app",
				Severity:    SeverityCritical,
				Scope:       GraphLevel,
				Description: "A shared package must not depend, directly or transitively, on any application module.",
			},
			{
				ID:          RuleCrossAppImport,
				Name:        "cross-app-import",
				Severity:    SeverityCritical,
				Scope:       GraphLevel,
				Description: "An application must not import modules of a different application; same-app imports are allowed.",
			},
		},
	}
}

// WithFileRules returns a copy of the registry with extra file-level rules
// appended, preserving order. The receiver is not modified.
func (r *Registry) WithFileRules(extra ...FileRule) *Registry {
	next := &Registry{
		file:  make([]FileRule, 0, len(r.file)+len(extra)),
		graph: r.graph,
	}
	next.file = append(next.file, r.file...)
	next.file = append(next.file, extra...)
	return next
}

// FileRules returns the file-level rules at or above min, in registry order.
func (r *Registry) FileRules(min Severity) []FileRule {
	var out []FileRule
	for _, rule := range r.file {
		if rule.Descriptor().Severity >= min {
			out = append(out, rule)
		}
	}
	return out
}

// GraphRules returns graph-level rule descriptors at or above min.
func (r *Registry) GraphRules(min Severity) []Descriptor {
	var out []Descriptor
	for _, d := range r.graph {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}

// All returns every rule descriptor in registry order, file rules first.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.file)+len(r.graph))
	for _, rule := range r.file {
		out = append(out, rule.Descriptor())
	}
	out = append(out, r.graph...)
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
