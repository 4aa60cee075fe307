package source

import (
	"path"
	"strings"
)

// Partition classifies which top-level root owns a module.
type Partition int

const (
	// PartitionNone marks files outside the package and app roots.
	PartitionNone Partition = iota

	// PartitionPackage marks files under the shared-package root.
	PartitionPackage

	// PartitionApp marks files under the application root.
	PartitionApp
)

// String returns the lowercase partition name.
func (p Partition) String() string {
	switch p {
	case PartitionPackage:
		return "package"
	case PartitionApp:
		return "app"
	default:
		return "none"
	}
}

// Layout describes where packages, applications, and scripts live in the
// analyzed repository. All classification methods are pure functions of the
// repo-relative, slash-separated path: the same path classifies identically
// whether visited standalone or as part of a full run.
type Layout struct {
	// PackageRoot is the top-level directory holding shared packages.
	PackageRoot string

	// AppRoot is the top-level directory holding applications.
	AppRoot string

	// ScriptsRoot is the top-level directory holding one-off scripts.
	ScriptsRoot string
}

// DefaultLayout returns the conventional repository layout.
func DefaultLayout() Layout {
	return Layout{
		PackageRoot: "packages",
		AppRoot:     "apps",
		ScriptsRoot: "scripts",
	}
}

// Classify returns the owning partition and name for a repo-relative path.
// The owning name is the first path segment beneath the partition root.
// Files directly under a root (no intermediate directory) have no owner.
func (l Layout) Classify(relPath string) (Partition, string) {
	segs := strings.Split(path.Clean(relPath), "/")
	if len(segs) < 3 {
		return PartitionNone, ""
	}
	switch segs[0] {
	case l.PackageRoot:
		return PartitionPackage, segs[1]
	case l.AppRoot:
		return PartitionApp, segs[1]
	}
	return PartitionNone, ""
}

// IsTestPath reports whether a path is test code: it lives under a tests
// directory segment, or its file name follows the test_*.py / *_test.py
// convention.
func (l Layout) IsTestPath(relPath string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if seg == "tests" {
			return true
		}
	}
	base := path.Base(relPath)
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py")
}

// IsDemoOrScriptPath reports whether a path is demo or script code: the file
// name carries a demo_/run_ prefix, or the file lives under the scripts root.
func (l Layout) IsDemoOrScriptPath(relPath string) bool {
	base := path.Base(relPath)
	if strings.HasPrefix(base, "demo_") || strings.HasPrefix(base, "run_") {
		return true
	}
	first, _, _ := strings.Cut(path.Clean(relPath), "/")
	return first == l.ScriptsRoot
}

// ModuleID converts a repo-relative file path to its canonical dotted module
// identifier. The partition root segment is dropped (both roots sit on the
// analyzed repository's import path), the .py extension is removed, path
// separators become dots, and a trailing __init__ segment is trimmed so a
// package resolves to the same identifier as its __init__ file.
func (l Layout) ModuleID(relPath string) string {
	p := strings.TrimSuffix(path.Clean(relPath), ".py")
	segs := strings.Split(p, "/")
	if len(segs) > 1 && (segs[0] == l.PackageRoot || segs[0] == l.AppRoot) {
		segs = segs[1:]
	}
	if segs[len(segs)-1] == "__init__" {
		segs = segs[:len(segs)-1]
	}
	return strings.Join(segs, ".")
}
