package rules

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/archlint/internal/source"
)

// appStructureRule checks that an application root contains its manifest and
// a colocated tests directory. It fires on the app root's __init__.py so
// each app is checked exactly once per run.
type appStructureRule struct {
	layout   source.Layout
	manifest string
}

func (r *appStructureRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC301",
		Name:        "app-structure",
		Severity:    SeverityWarning,
		Scope:       FileLevel,
		Description: "An application root must contain a manifest file and a colocated tests directory.",
	}
}

func (r *appStructureRule) NodeKinds() []string { return []string{nodeModule} }

// Uncacheable: the verdict depends on the manifest and tests directory on
// disk, not on the __init__.py content.
func (r *appStructureRule) Uncacheable() {}

func (r *appStructureRule) Check(_ *sitter.Node, vc *VisitContext) []Violation {
	sc := vc.Source
	if sc.Partition != source.PartitionApp {
		return nil
	}
	appInit := path.Join(r.layout.AppRoot, sc.OwningName, "__init__.py")
	if sc.Path != appInit {
		return nil
	}

	appDir := filepath.Join(vc.RepoDir, r.layout.AppRoot, sc.OwningName)
	var vs []Violation
	if _, err := os.Stat(filepath.Join(appDir, r.manifest)); err != nil {
		vs = append(vs, Violation{
			RuleID:   "ARC301",
			Severity: SeverityWarning,
			File:     sc.Path,
			Line:     1,
			Message:  fmt.Sprintf("app %q is missing its %s manifest", sc.OwningName, r.manifest),
		})
	}
	if info, err := os.Stat(filepath.Join(appDir, "tests")); err != nil || !info.IsDir() {
		vs = append(vs, Violation{
			RuleID:   "ARC301",
			Severity: SeverityWarning,
			File:     sc.Path,
			Line:     1,
			Message:  fmt.Sprintf("app %q is missing a colocated tests directory", sc.OwningName),
		})
	}
	return vs
}

// packagePrefixRule checks that a package root directory carries the
// platform naming prefix. Like app-structure, it fires once per package via
// the root __init__.py.
type packagePrefixRule struct {
	layout source.Layout
	prefix string
}

func (r *packagePrefixRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC302",
		Name:        "package-prefix",
		Severity:    SeverityInfo,
		Scope:       FileLevel,
		Description: "A package root directory name must carry the platform naming prefix.",
	}
}

func (r *packagePrefixRule) NodeKinds() []string { return []string{nodeModule} }

func (r *packagePrefixRule) Check(_ *sitter.Node, vc *VisitContext) []Violation {
	sc := vc.Source
	if sc.Partition != source.PartitionPackage {
		return nil
	}
	if sc.Path != path.Join(r.layout.PackageRoot, sc.OwningName, "__init__.py") {
		return nil
	}
	if strings.HasPrefix(sc.OwningName, r.prefix) {
		return nil
	}
	return []Violation{{
		RuleID:   "ARC302",
		Severity: SeverityInfo,
		File:     sc.Path,
		Line:     1,
		Message:  fmt.Sprintf("package directory %q must carry the %q prefix", sc.OwningName, r.prefix),
	}}
}

// deprecatedConfigRule flags imports or calls of the deprecated global
// configuration accessors anywhere outside grandfathered locations.
type deprecatedConfigRule struct {
	exempt func(*source.Context) bool
}

var deprecatedAccessors = map[string]bool{
	"get_global_config": true,
	"get_settings":      true,
}

func (r *deprecatedConfigRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC303",
		Name:        "deprecated-config",
		Severity:    SeverityWarning,
		Scope:       FileLevel,
		Description: "Deprecated global-configuration accessors must not be imported or called outside grandfathered locations.",
		Exempt:      r.exempt,
	}
}

func (r *deprecatedConfigRule) NodeKinds() []string {
	return []string{nodeImportFrom, nodeCall}
}

func (r *deprecatedConfigRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	src := vc.Source.Content
	report := func(verb, name string) Violation {
		return Violation{
			RuleID:   "ARC303",
			Severity: SeverityWarning,
			File:     vc.Source.Path,
			Line:     line(n),
			Message:  fmt.Sprintf("%s of deprecated configuration accessor %s()", verb, name),
		}
	}

	switch n.Type() {
	case nodeImportFrom:
		var vs []Violation
		module := n.ChildByFieldName("module_name")
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if module != nil && child.Equal(module) {
				continue
			}
			var name string
			switch child.Type() {
			case nodeDottedName:
				name = child.Content(src)
			case nodeAliasedImport:
				if nn := child.ChildByFieldName("name"); nn != nil {
					name = nn.Content(src)
				}
			}
			if deprecatedAccessors[name] {
				vs = append(vs, report("import", name))
			}
		}
		return vs
	case nodeCall:
		target := callTarget(n, src)
		// Both bare calls and module-qualified calls count.
		if idx := strings.LastIndex(target, "."); idx >= 0 {
			target = target[idx+1:]
		}
		if deprecatedAccessors[target] {
			return []Violation{report("call", target)}
		}
	}
	return nil
}
