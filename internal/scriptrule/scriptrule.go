// Package scriptrule loads custom file-level rules written as Risor
// scripts. Each script runs once per file with the parsed tree and a small
// set of host functions; violations are collected through a report host
// function. A script's content hash is folded into its cache fingerprint so
// editing a rule invalidates only that rule's cached results.
package scriptrule

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/archlint/internal/rules"
)

// Rule is one compiled script rule. Implements rules.FileRule and
// rules.CacheSalter.
type Rule struct {
	name     string
	severity rules.Severity
	source   string
	hash     string
}

// LoadDir loads every .risor file in dir as a rule. Severities come from
// severities (keyed by script name without extension), defaulting to
// warning. Scripts are returned in name order.
func LoadDir(dir string, severities map[string]string, logger *slog.Logger) ([]*Rule, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scriptrule: read dir: %w", err)
	}
	return LoadFS(os.DirFS(dir), severities, logger)
}

// LoadFS is the fs.FS variant of LoadDir, for embedded rule sets.
func LoadFS(fsys fs.FS, severities map[string]string, logger *slog.Logger) ([]*Rule, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var names []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".risor") {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scriptrule: walk fs: %w", err)
	}
	sort.Strings(names)

	var out []*Rule
	for _, path := range names {
		src, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("scriptrule: read %s: %w", path, err)
		}
		name := strings.TrimSuffix(path, ".risor")
		name = name[strings.LastIndex(name, "/")+1:]
		out = append(out, New(name, string(src), parseSeverity(severities[name], logger, name)))
	}
	return out, nil
}

func parseSeverity(s string, logger *slog.Logger, name string) rules.Severity {
	if s == "" {
		return rules.SeverityWarning
	}
	sev, err := rules.ParseSeverity(s)
	if err != nil {
		logger.Warn("invalid custom rule severity, defaulting to warning", "rule", name, "err", err)
		return rules.SeverityWarning
	}
	return sev
}

// New creates a script rule from inline source. Used directly in tests.
func New(name, src string, severity rules.Severity) *Rule {
	return &Rule{
		name:     name,
		severity: severity,
		source:   src,
		hash:     fmt.Sprintf("%x", sha256.Sum256([]byte(src))),
	}
}

// Descriptor implements rules.FileRule.
func (r *Rule) Descriptor() rules.Descriptor {
	return rules.Descriptor{
		ID:          "custom/" + r.name,
		Name:        r.name,
		Severity:    r.severity,
		Scope:       rules.FileLevel,
		Description: "Custom scripted rule " + r.name + ".",
	}
}

// NodeKinds hooks the module root so the script runs exactly once per file.
func (r *Rule) NodeKinds() []string { return []string{"module"} }

// CacheSalt implements rules.CacheSalter with the script content hash.
func (r *Rule) CacheSalt() string { return r.hash }

// Check evaluates the script against the file. A script error is converted
// to a failing violation naming the rule, matching the engine's behavior
// for built-in rules that fail internally.
func (r *Rule) Check(node *sitter.Node, vc *rules.VisitContext) []rules.Violation {
	collected := &collector{rule: r, file: vc.Source.Path}
	globals := r.buildGlobals(node, vc, collected)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if _, err := risor.Eval(context.Background(), r.source, opts...); err != nil {
		return []rules.Violation{{
			RuleID:   "custom/" + r.name,
			Severity: r.severity,
			File:     vc.Source.Path,
			Line:     1,
			Message:  fmt.Sprintf("custom rule %s failed: %v", r.name, err),
		}}
	}
	return collected.violations
}

// collector gathers violations reported by a script run.
type collector struct {
	rule       *Rule
	file       string
	violations []rules.Violation
}

func (c *collector) add(line int, message string) {
	c.violations = append(c.violations, rules.Violation{
		RuleID:   "custom/" + c.rule.name,
		Severity: c.rule.severity,
		File:     c.file,
		Line:     line,
		Message:  message,
	})
}
