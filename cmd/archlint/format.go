package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jward/archlint"
)

// writeReport renders a run report in the requested format.
func writeReport(w io.Writer, report *archlint.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	formatReportText(w, report)
	return nil
}

func formatReportText(w io.Writer, report *archlint.Report) {
	for _, pe := range report.ParseErrors {
		fmt.Fprintf(w, "%s:%d: parse error: %s\n", pe.File, pe.Line, pe.Message)
	}
	if len(report.Violations) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SEVERITY\tRULE\tLOCATION\tMESSAGE")
		for _, v := range report.Violations {
			loc := v.File
			if v.Line > 0 {
				loc = fmt.Sprintf("%s:%d", v.File, v.Line)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Severity, v.RuleID, loc, v.Message)
		}
		tw.Flush()
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	status := "PASSED"
	if !report.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(w, "%s: %d files (%d validated, %d cache hits), %d violations at or above %s\n",
		status,
		report.Stats.FilesTotal,
		report.Stats.FilesValidated,
		report.Stats.CacheHits,
		len(report.Violations),
		report.Threshold,
	)
}

// formatRulesText lists rule descriptors as aligned columns.
func formatRulesText(w io.Writer, descs []archlint.Descriptor) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSEVERITY\tSCOPE\tDESCRIPTION")
	for _, d := range descs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Severity, d.Scope, d.Description)
	}
	tw.Flush()
}
