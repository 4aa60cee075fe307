package rules

import "sort"

// Violation is one recorded instance of a rule failing for a specific
// file/location. Immutable after creation; consumed only by the report.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"`

	// Line is 1-indexed; zero (omitted) for graph-level violations.
	Line int `json:"line,omitempty"`

	Message string `json:"message"`

	// DependencyPath is the ordered module chain of a transitive graph
	// violation, from the originating module to the violating one.
	DependencyPath []string `json:"dependency_path,omitempty"`
}

// Result is the per-rule outcome for one file: the rule either passed with
// zero violations or failed with at least one. A selected rule always has a
// Result, never an absence.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// SortViolations orders violations deterministically: severity (most severe
// first), then rule id, file path, and line. Run output depends on this sort,
// never on worker completion order.
func SortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
