// Package config loads and validates the linter configuration. Invalid
// configuration fails fast, before any source file is touched, and is a
// distinct error class from validation failure.
package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/jward/archlint/internal/rules"
	"github.com/jward/archlint/internal/source"
)

// Error is a pre-flight configuration failure.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Config is the YAML-backed run configuration.
type Config struct {
	// PackageRoot and AppRoot are the partition roots; ScriptsRoot holds
	// one-off scripts exempt from most rules.
	PackageRoot string `yaml:"package_root"`
	AppRoot     string `yaml:"app_root"`
	ScriptsRoot string `yaml:"scripts_root"`

	// CachePath locates the single-file validation cache. Empty disables
	// persistence.
	CachePath string `yaml:"cache_path"`

	// MinSeverity is the default enforcement threshold.
	MinSeverity string `yaml:"min_severity"`

	// PlatformPrefix is the required package directory prefix.
	PlatformPrefix string `yaml:"platform_prefix"`

	// ManifestName is the manifest every app root must contain.
	ManifestName string `yaml:"manifest_name"`

	// SanctionedErrorRoots are the exception types error hierarchies must
	// reach.
	SanctionedErrorRoots []string `yaml:"sanctioned_error_roots"`

	// Grandfathered globs name files still allowed to use deprecated
	// configuration accessors.
	Grandfathered []string `yaml:"grandfathered"`

	// CustomRulesDir holds Risor rule scripts; empty disables them.
	CustomRulesDir string `yaml:"custom_rules_dir"`

	// CustomRuleSeverities overrides the default (warning) severity per
	// script name.
	CustomRuleSeverities map[string]string `yaml:"custom_rule_severities"`

	// Exclude globs are skipped during repository discovery.
	Exclude []string `yaml:"exclude"`
}

// Default returns the conventional configuration.
func Default() *Config {
	return &Config{
		PackageRoot:          "packages",
		AppRoot:              "apps",
		ScriptsRoot:          "scripts",
		CachePath:            ".archlint/cache.db",
		MinSeverity:          "warning",
		PlatformPrefix:       "plat_",
		ManifestName:         "app.yaml",
		SanctionedErrorRoots: []string{"Exception", "PlatformError"},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Field: path, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration before any file is touched.
func (c *Config) Validate() error {
	if c.PackageRoot == "" || c.AppRoot == "" {
		return &Error{Field: "package_root/app_root", Reason: "must not be empty"}
	}
	if c.PackageRoot == c.AppRoot {
		return &Error{Field: "app_root", Reason: "must differ from package_root"}
	}
	if _, err := rules.ParseSeverity(c.MinSeverity); err != nil {
		return &Error{Field: "min_severity", Reason: err.Error()}
	}
	for _, pattern := range append(append([]string{}, c.Grandfathered...), c.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return &Error{Field: "glob", Reason: fmt.Sprintf("invalid pattern %q", pattern)}
		}
	}
	for name, sev := range c.CustomRuleSeverities {
		if _, err := rules.ParseSeverity(sev); err != nil {
			return &Error{Field: "custom_rule_severities." + name, Reason: err.Error()}
		}
	}
	return nil
}

// Layout returns the source layout the config describes.
func (c *Config) Layout() source.Layout {
	return source.Layout{
		PackageRoot: c.PackageRoot,
		AppRoot:     c.AppRoot,
		ScriptsRoot: c.ScriptsRoot,
	}
}

// RuleConfig returns the built-in rule parameters.
func (c *Config) RuleConfig() rules.Config {
	return rules.Config{
		Layout:               c.Layout(),
		PlatformPrefix:       c.PlatformPrefix,
		ManifestName:         c.ManifestName,
		SanctionedErrorRoots: c.SanctionedErrorRoots,
		Grandfathered:        c.Grandfathered,
	}
}

// Severity parses the configured minimum severity.
func (c *Config) Severity() rules.Severity {
	sev, _ := rules.ParseSeverity(c.MinSeverity)
	return sev
}
