// Package archlint validates a Python monorepo against its architectural
// rules. It parses every Python file with tree-sitter, runs a set of
// severity-tiered file rules in a single tree traversal per file, builds a
// module dependency graph across the repository, and enforces dependency
// direction between the package and app partitions.
//
// # Pipeline
//
// A validation run has two phases:
//
//  1. File phase: each discovered file is parsed and its file-level rules
//     run in one traversal. Results are cached per (file, rule) keyed by a
//     content fingerprint, so unchanged files cost a cache read.
//
//  2. Graph phase: after every file has been processed, the module
//     dependency graph is assembled from the extracted imports and the
//     graph-level rules (no package depends on an app, no cross-app
//     imports) are evaluated over it.
//
// # Usage
//
// Create an Engine rooted at the repository, run it, and inspect the
// report:
//
//	e, err := archlint.New("path/to/repo")
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.Run(ctx, archlint.RunOptions{})
//	if err != nil { ... }
//	if !report.Passed { ... }
//
// Violations are ordered deterministically: severity descending, then rule
// ID, file path, and line. Two runs over identical content produce
// byte-identical reports apart from the run ID and timing stats.
//
// # Custom rules
//
// Repositories can add their own file-level rules as Risor scripts in the
// configured custom rules directory. Scripts run once per file with the
// parsed tree and a small host API; see the internal/scriptrule package for
// the globals exposed to scripts.
package archlint
