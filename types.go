package archlint

import (
	"github.com/jward/archlint/internal/config"
	"github.com/jward/archlint/internal/rules"
)

// Public type aliases for internal types surfaced through the Engine API.
// These are Go type aliases (=), identical to the internal types at compile
// time, so external consumers never import internal packages.

type Severity = rules.Severity
type Violation = rules.Violation
type Descriptor = rules.Descriptor
type Config = config.Config
type ConfigError = config.Error

const (
	SeverityInfo     = rules.SeverityInfo
	SeverityWarning  = rules.SeverityWarning
	SeverityError    = rules.SeverityError
	SeverityCritical = rules.SeverityCritical
)

// ParseSeverity parses a severity name ("info", "warning", "error",
// "critical"). The empty string parses as info.
func ParseSeverity(s string) (Severity, error) { return rules.ParseSeverity(s) }

// DefaultConfig returns the conventional repository configuration.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }
