package archlint

import (
	"time"

	"github.com/jward/archlint/internal/rules"
)

// ParseError records a file whose content could not be parsed into a valid
// syntax tree. Such files are reported and skipped; no rules run on them.
type ParseError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Stats summarizes the work a run performed.
type Stats struct {
	// FilesTotal is the number of Python files discovered.
	FilesTotal int `json:"files_total"`

	// FilesValidated is the number of files whose rules actually ran this
	// run; cached files count toward FilesTotal only.
	FilesValidated int `json:"files_validated"`

	// CacheHits counts (file, rule) results served from the cache.
	CacheHits int `json:"cache_hits"`

	Duration time.Duration `json:"duration_ns"`
}

// Report is the complete result of one validation run.
type Report struct {
	// RunID uniquely identifies this run. Everything else in the report is
	// deterministic for identical input.
	RunID string `json:"run_id"`

	// Passed is true when no violation at or above the threshold was found
	// and every file parsed.
	Passed bool `json:"passed"`

	// Threshold is the minimum severity this run enforced.
	Threshold Severity `json:"threshold"`

	Violations  []Violation  `json:"violations"`
	ParseErrors []ParseError `json:"parse_errors,omitempty"`

	// CountsBySeverity maps severity names to violation counts.
	CountsBySeverity map[string]int `json:"counts_by_severity"`

	// Warnings carries non-fatal run diagnostics, such as cache corruption
	// recovery notices.
	Warnings []string `json:"warnings,omitempty"`

	Stats Stats `json:"stats"`
}

func countBySeverity(vs []rules.Violation) map[string]int {
	counts := make(map[string]int)
	for _, v := range vs {
		counts[v.Severity.String()]++
	}
	return counts
}
