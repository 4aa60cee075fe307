package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/archlint"
)

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("text"))
	assert.NoError(t, validateFormat("json"))
	assert.Error(t, validateFormat("xml"))
	assert.Error(t, validateFormat(""))
}

func TestResolveRepoRoot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	root, err := resolveRepoRoot([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	_, err = resolveRepoRoot([]string{dir + "/missing"})
	assert.Error(t, err)
}

func TestSeverityFlagOnValidateAndWatch(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, validateCmd.Flags().Lookup("severity"))
	assert.NotNil(t, watchCmd.Flags().Lookup("severity"))
}

func TestWriteReportText(t *testing.T) {
	t.Parallel()
	report := &archlint.Report{
		RunID:     "run-1",
		Passed:    false,
		Threshold: archlint.SeverityWarning,
		Violations: []archlint.Violation{{
			RuleID:   "ARC002",
			Severity: archlint.SeverityCritical,
			File:     "apps/billing/store.py",
			Line:     3,
			Message:  `import of unsafe deserialization module "pickle"`,
		}},
		CountsBySeverity: map[string]int{"critical": 1},
		Stats: archlint.Stats{
			FilesTotal:     2,
			FilesValidated: 2,
			Duration:       time.Second,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report, "text"))
	out := buf.String()
	assert.Contains(t, out, "apps/billing/store.py:3")
	assert.Contains(t, out, "ARC002")
	assert.Contains(t, out, "FAILED")

	buf.Reset()
	require.NoError(t, writeReport(&buf, report, "json"))
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)
}
