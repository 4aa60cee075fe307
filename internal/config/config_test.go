package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/archlint/internal/rules"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, rules.SeverityWarning, cfg.Severity())
	assert.Equal(t, "packages", cfg.Layout().PackageRoot)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "archlint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
package_root: libs
min_severity: error
platform_prefix: core_
grandfathered:
  - "apps/legacy/**"
custom_rule_severities:
  no_print: critical
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "libs", cfg.PackageRoot)
	// Unset keys keep their defaults.
	assert.Equal(t, "apps", cfg.AppRoot)
	assert.Equal(t, "app.yaml", cfg.ManifestName)
	assert.Equal(t, rules.SeverityError, cfg.Severity())
	assert.Equal(t, "core_", cfg.RuleConfig().PlatformPrefix)
	assert.Equal(t, []string{"apps/legacy/**"}, cfg.Grandfathered)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty package root", func(c *Config) { c.PackageRoot = "" }},
		{"identical roots", func(c *Config) { c.AppRoot = c.PackageRoot }},
		{"bad severity", func(c *Config) { c.MinSeverity = "fatal" }},
		{"bad glob", func(c *Config) { c.Grandfathered = []string{"apps/[legacy/**"} }},
		{"bad custom severity", func(c *Config) { c.CustomRuleSeverities = map[string]string{"x": "loud"} }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "archlint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("package_root: [unclosed\n"), 0o644))

	_, err := Load(path)
	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
}
