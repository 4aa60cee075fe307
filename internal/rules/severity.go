package rules

import (
	"encoding/json"
	"fmt"
)

// Severity is the ordered enforcement tier of a rule. Higher values are more
// severe; a run's minimum severity selects every rule at or above it.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a severity name. The empty string parses to
// SeverityInfo, the permissive default.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "critical":
		return SeverityCritical, nil
	case "error":
		return SeverityError, nil
	case "warning":
		return SeverityWarning, nil
	case "info", "":
		return SeverityInfo, nil
	}
	return SeverityInfo, fmt.Errorf("invalid severity %q (want critical|error|warning|info)", s)
}

// MarshalJSON encodes the severity as its name so serialized reports stay
// readable and stable across reorderings of the enum.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scope routes a rule to the engine that evaluates it.
type Scope int

const (
	// FileLevel rules run in the tree visitor, one file at a time.
	FileLevel Scope = iota

	// GraphLevel rules run over the whole-repository dependency graph.
	GraphLevel
)

// String returns the scope name.
func (sc Scope) String() string {
	if sc == GraphLevel {
		return "graph"
	}
	return "file"
}

// MarshalJSON encodes the scope as its name.
func (sc Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(sc.String())
}
