// Package source builds per-file analysis contexts: the parsed tree, content
// fingerprint, and path-derived classification every validator consumes.
package source

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ImportKind distinguishes the two Python import forms. Kept for diagnostics
// only; both forms resolve into the same module identifier space.
type ImportKind string

const (
	// ImportDirect is an "import a.b" statement.
	ImportDirect ImportKind = "direct"

	// ImportFrom is a "from a.b import c" statement.
	ImportFrom ImportKind = "from"
)

// Import is one import statement extracted from a file's tree.
type Import struct {
	// Target is the dotted module path as written. Empty for a purely
	// relative "from . import x".
	Target string

	// Names holds the imported names of a from-import ("*" for wildcard).
	Names []string

	// Kind is the import form.
	Kind ImportKind

	// Level counts the leading dots of a relative from-import. Zero for
	// absolute imports.
	Level int

	// Line is the 1-indexed line of the import statement.
	Line int
}

// ClassDecl records a class definition and its declared base-class names,
// collected during the build walk so the error-hierarchy table can be
// assembled across all files without re-traversing any tree.
type ClassDecl struct {
	Name  string
	Bases []string
	Line  int
}

// Context is the per-file analysis context. Created once per file per run,
// immutable after creation, and discarded (not persisted) at end of run.
type Context struct {
	// Path is the repo-relative, slash-separated file path.
	Path string

	// Content is the raw file bytes.
	Content []byte

	// Tree is the parsed syntax tree. Non-nil even when ParseFailed is set;
	// callers must check ParseFailed before trusting it.
	Tree *sitter.Tree

	// ParseFailed marks files whose text does not form a valid syntax tree.
	ParseFailed bool

	// ParseErr describes the parse failure when ParseFailed is set;
	// ParseErrLine is the 1-indexed line of the first syntax error, or 1
	// when no position is known.
	ParseErr     string
	ParseErrLine int

	// Fingerprint is the hex sha256 of Content.
	Fingerprint string

	IsTest         bool
	IsDemoOrScript bool
	Partition      Partition
	OwningName     string

	// Module is the canonical dotted module identifier.
	Module string

	// Imports and Classes are extracted in the build walk.
	Imports []Import
	Classes []ClassDecl
}

// Root returns the tree's root node, or nil when no tree exists.
func (c *Context) Root() *sitter.Node {
	if c.Tree == nil {
		return nil
	}
	return c.Tree.RootNode()
}

// Close releases the parsed tree.
func (c *Context) Close() {
	if c.Tree != nil {
		c.Tree.Close()
		c.Tree = nil
	}
}

// Exempt reports whether the file's classification exempts it from policy
// enforcement. This is the single test/demo filter shared by file-level and
// graph-level rules.
func (c *Context) Exempt() bool {
	return c.IsTest || c.IsDemoOrScript
}

// Builder resolves a file path and its bytes into a Context. A Builder is
// safe for concurrent use; each Build uses its own tree-sitter parser.
type Builder struct {
	layout Layout
}

// NewBuilder creates a Builder for the given repository layout.
func NewBuilder(layout Layout) *Builder {
	return &Builder{layout: layout}
}

// Layout returns the repository layout the builder classifies against.
func (b *Builder) Layout() Layout {
	return b.layout
}

// Build produces a Context for the given repo-relative path and content.
// It never panics past its boundary: a file that fails to parse yields a
// Context with ParseFailed set rather than an error.
func (b *Builder) Build(ctx context.Context, relPath string, content []byte) *Context {
	relPath = strings.TrimPrefix(relPath, "./")
	partition, owner := b.layout.Classify(relPath)

	sc := &Context{
		Path:           relPath,
		Content:        content,
		Fingerprint:    Fingerprint(content),
		IsTest:         b.layout.IsTestPath(relPath),
		IsDemoOrScript: b.layout.IsDemoOrScriptPath(relPath),
		Partition:      partition,
		OwningName:     owner,
		Module:         b.layout.ModuleID(relPath),
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		sc.ParseFailed = true
		sc.ParseErr = err.Error()
		sc.ParseErrLine = 1
		return sc
	}
	sc.Tree = tree

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		if line < 1 {
			line = 1
		}
		sc.ParseFailed = true
		sc.ParseErr = fmt.Sprintf("syntax error near line %d", line)
		sc.ParseErrLine = line
		return sc
	}

	extract(root, content, sc)
	return sc
}

// Fingerprint returns the hex sha256 content hash used for cache validity.
func Fingerprint(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// firstErrorLine finds the 1-indexed line of the first ERROR node.
func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if line := firstErrorLine(n.Child(i)); line > 0 {
			return line
		}
	}
	return 0
}
