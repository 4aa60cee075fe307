package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Severity
	}{
		{"info", SeverityInfo},
		{"warning", SeverityWarning},
		{"error", SeverityError},
		{"critical", SeverityCritical},
		{"", SeverityInfo},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSeverity("fatal")
	assert.Error(t, err)
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(SeverityCritical)
	require.NoError(t, err)
	assert.Equal(t, `"critical"`, string(data))

	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"error"`), &s))
	assert.Equal(t, SeverityError, s)
}

func TestSortViolations(t *testing.T) {
	t.Parallel()

	vs := []Violation{
		{RuleID: "ARC302", Severity: SeverityInfo, File: "a.py", Line: 1},
		{RuleID: "ARC001", Severity: SeverityCritical, File: "z.py", Line: 9},
		{RuleID: "ARC101", Severity: SeverityError, File: "b.py", Line: 5},
		{RuleID: "ARC101", Severity: SeverityError, File: "b.py", Line: 2},
		{RuleID: "ARC101", Severity: SeverityError, File: "a.py", Line: 7},
		{RuleID: "ARC001", Severity: SeverityCritical, File: "a.py", Line: 3},
	}
	SortViolations(vs)

	// Severity descending, then rule id, file, line ascending.
	want := []Violation{
		{RuleID: "ARC001", Severity: SeverityCritical, File: "a.py", Line: 3},
		{RuleID: "ARC001", Severity: SeverityCritical, File: "z.py", Line: 9},
		{RuleID: "ARC101", Severity: SeverityError, File: "a.py", Line: 7},
		{RuleID: "ARC101", Severity: SeverityError, File: "b.py", Line: 2},
		{RuleID: "ARC101", Severity: SeverityError, File: "b.py", Line: 5},
		{RuleID: "ARC302", Severity: SeverityInfo, File: "a.py", Line: 1},
	}
	assert.Equal(t, want, vs)
}
