package rules

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// dynamicExecRule flags calls that execute dynamically constructed code.
type dynamicExecRule struct{}

var dynamicExecCalls = map[string]bool{
	"eval":       true,
	"exec":       true,
	"__import__": true,
}

func (r *dynamicExecRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC001",
		Name:        "dynamic-exec",
		Severity:    SeverityCritical,
		Scope:       FileLevel,
		Description: "Dynamic code execution (eval/exec/__import__) is forbidden.",
	}
}

func (r *dynamicExecRule) NodeKinds() []string { return []string{nodeCall} }

func (r *dynamicExecRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	target := callTarget(n, vc.Source.Content)
	if !dynamicExecCalls[target] {
		return nil
	}
	return []Violation{{
		RuleID:   "ARC001",
		Severity: SeverityCritical,
		File:     vc.Source.Path,
		Line:     line(n),
		Message:  fmt.Sprintf("call to %s() executes dynamically constructed code", target),
	}}
}

// unsafeImportRule flags imports of modules whose deserialization executes
// arbitrary code.
type unsafeImportRule struct{}

var unsafeModules = map[string]bool{
	"pickle":  true,
	"dill":    true,
	"shelve":  true,
	"marshal": true,
}

func (r *unsafeImportRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC002",
		Name:        "unsafe-import",
		Severity:    SeverityCritical,
		Scope:       FileLevel,
		Description: "Importing unsafe deserialization modules (pickle, dill, shelve, marshal) is forbidden.",
	}
}

func (r *unsafeImportRule) NodeKinds() []string {
	return []string{nodeImportStmt, nodeImportFrom}
}

func (r *unsafeImportRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	src := vc.Source.Content
	var vs []Violation
	report := func(module string) {
		vs = append(vs, Violation{
			RuleID:   "ARC002",
			Severity: SeverityCritical,
			File:     vc.Source.Path,
			Line:     line(n),
			Message:  fmt.Sprintf("import of unsafe deserialization module %q", module),
		})
	}

	switch n.Type() {
	case nodeImportStmt:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			var target string
			switch child.Type() {
			case nodeDottedName:
				target = child.Content(src)
			case nodeAliasedImport:
				if name := child.ChildByFieldName("name"); name != nil {
					target = name.Content(src)
				}
			}
			if top := topModule(target); unsafeModules[top] {
				report(top)
			}
		}
	case nodeImportFrom:
		if module := n.ChildByFieldName("module_name"); module != nil {
			if top := topModule(module.Content(src)); unsafeModules[top] {
				report(top)
			}
		}
	}
	return vs
}

// unsafeShellRule flags shell invocations with unsafe argument construction:
// os.system/os.popen with a non-literal command, and any subprocess call with
// shell=True.
type unsafeShellRule struct{}

var shellWrappers = map[string]bool{
	"os.system": true,
	"os.popen":  true,
}

func (r *unsafeShellRule) Descriptor() Descriptor {
	return Descriptor{
		ID:          "ARC003",
		Name:        "unsafe-shell",
		Severity:    SeverityCritical,
		Scope:       FileLevel,
		Description: "Shell invocation with dynamically constructed arguments or shell=True is forbidden.",
	}
}

func (r *unsafeShellRule) NodeKinds() []string { return []string{nodeCall} }

func (r *unsafeShellRule) Check(n *sitter.Node, vc *VisitContext) []Violation {
	src := vc.Source.Content
	target := callTarget(n, src)

	if shellWrappers[target] {
		arg := firstPositionalArg(n)
		if arg != nil && !isLiteralString(arg) {
			return []Violation{{
				RuleID:   "ARC003",
				Severity: SeverityCritical,
				File:     vc.Source.Path,
				Line:     line(n),
				Message:  fmt.Sprintf("%s() with a dynamically constructed command", target),
			}}
		}
		return nil
	}

	if topModule(target) == "subprocess" && keywordArgTrue(n, src, "shell") {
		return []Violation{{
			RuleID:   "ARC003",
			Severity: SeverityCritical,
			File:     vc.Source.Path,
			Line:     line(n),
			Message:  fmt.Sprintf("%s() with shell=True", target),
		}}
	}
	return nil
}
