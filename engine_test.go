package archlint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/archlint/internal/config"
)

// writeRepo materializes a repository fixture from relative path to content.
func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return root
}

func newTestEngine(t *testing.T, root string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestRunFindsUnsafeImport(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/store.py": "import json\n\nimport pickle\n",
		"apps/billing/calc.py":  "TAX = 7\n",
	})
	e := newTestEngine(t, root)

	report, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.False(t, report.Passed)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, "ARC002", v.RuleID)
	assert.Equal(t, SeverityCritical, v.Severity)
	assert.Equal(t, "apps/billing/store.py", v.File)
	assert.Equal(t, 3, v.Line)

	assert.Equal(t, 2, report.Stats.FilesTotal)
	assert.Equal(t, map[string]int{"critical": 1}, report.CountsBySeverity)
	assert.NotEmpty(t, report.RunID)
}

func TestRunPassesCleanRepo(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"packages/plat_core/util.py": "def add(a: int, b: int) -> int:\n    return a + b\n",
	})
	e := newTestEngine(t, root)

	report, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Empty(t, report.Violations)
	assert.Empty(t, report.ParseErrors)
}

func TestRunGraphRules(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"packages/plat_flow/engine.py": "import billing.models\n",
		"apps/billing/models.py":       "",
		"apps/shipping/labels.py":      "import billing.models\n",
	})
	e := newTestEngine(t, root)

	report, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, report.Violations, 2)

	assert.Equal(t, "ARC401", report.Violations[0].RuleID)
	assert.Equal(t, "packages/plat_flow/engine.py", report.Violations[0].File)
	assert.Equal(t, []string{"plat_flow.engine", "billing.models"}, report.Violations[0].DependencyPath)

	assert.Equal(t, "ARC402", report.Violations[1].RuleID)
	assert.Equal(t, "apps/shipping/labels.py", report.Violations[1].File)
}

func TestRunGraphCoversWholeRepoUnderScope(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"packages/plat_flow/engine.py": "import billing.models\nimport pickle\n",
		"apps/billing/models.py":       "import pickle\n",
	})
	e := newTestEngine(t, root)

	report, err := e.Run(context.Background(), RunOptions{Scope: "apps"})
	require.NoError(t, err)

	// File rules honor the scope; the dependency graph never does.
	require.Len(t, report.Violations, 2)
	byRule := map[string]string{}
	for _, v := range report.Violations {
		byRule[v.RuleID] = v.File
	}
	assert.Equal(t, "packages/plat_flow/engine.py", byRule["ARC401"])
	// The only ARC002 hit is the scoped file; the package's own unsafe
	// import was not validated this run.
	assert.Equal(t, "apps/billing/models.py", byRule["ARC002"])
	assert.Equal(t, 1, report.Stats.FilesValidated)
}

func TestRunConflictingRestrictions(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/models.py": "",
	})
	e := newTestEngine(t, root)

	_, err := e.Run(context.Background(), RunOptions{
		ChangedFiles: []string{"apps/billing/models.py"},
		Scope:        "apps",
	})
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunReportsParseErrors(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/broken.py": "def f(:\n    pass\n",
		"apps/billing/good.py":   "x = 1\n",
	})
	e := newTestEngine(t, root)

	report, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	require.Len(t, report.ParseErrors, 1)
	assert.Equal(t, "apps/billing/broken.py", report.ParseErrors[0].File)
	assert.NotEmpty(t, report.ParseErrors[0].Message)
}

func TestRunSeverityThreshold(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"packages/util/__init__.py": "",
	}

	// The package-prefix rule is info-tier: visible at info, silent at the
	// default warning threshold.
	report, err := newTestEngine(t, writeRepo(t, files)).Run(context.Background(), RunOptions{MinSeverity: "info"})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "ARC302", report.Violations[0].RuleID)
	assert.Equal(t, SeverityInfo, report.Threshold)

	report, err = newTestEngine(t, writeRepo(t, files)).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
	assert.True(t, report.Passed)

	_, err = newTestEngine(t, writeRepo(t, files)).Run(context.Background(), RunOptions{MinSeverity: "fatal"})
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunIdempotentAndCached(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/store.py":        "import pickle\n",
		"apps/billing/models.py":       "x = 1\n",
		"packages/plat_core/errors.py": "class PlatformError(Exception):\n    pass\n",
	})
	e := newTestEngine(t, root)

	first, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, first.Stats.CacheHits)

	second, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Positive(t, second.Stats.CacheHits)
	assert.Equal(t, first.Violations, second.Violations)
	assert.NotEqual(t, first.RunID, second.RunID)

	// The cache persists across engine instances via the on-disk store.
	reopened := newTestEngine(t, root)
	third, err := reopened.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Positive(t, third.Stats.CacheHits)
	assert.Equal(t, first.Violations, third.Violations)
}

func TestRunChangedFilesOnly(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/store.py":  "import pickle\n",
		"apps/billing/models.py": "import marshal\n",
	})
	e := newTestEngine(t, root)

	report, err := e.Run(context.Background(), RunOptions{
		ChangedFiles: []string{"apps/billing/models.py"},
	})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "apps/billing/models.py", report.Violations[0].File)
	assert.Equal(t, 1, report.Stats.FilesValidated)
	assert.Equal(t, 2, report.Stats.FilesTotal)
}

func TestRunCustomScriptRule(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/handlers.py": "import os\n",
		"rules/flag_imports.risor": `
matches := query("(import_statement) @imp", root)
for _, m := range matches {
    report(m["_line"], "import found")
}
`,
	})
	cfg := DefaultConfig()
	cfg.CustomRulesDir = "rules"
	e := newTestEngine(t, root, WithConfig(cfg))

	report, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "custom/flag_imports", report.Violations[0].RuleID)
	assert.Equal(t, SeverityWarning, report.Violations[0].Severity)
	assert.Equal(t, 1, report.Violations[0].Line)
}

func TestRunDeterministicOrdering(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/a.py": "import pickle\nresult = eval(expr)\n",
		"apps/billing/b.py": "import dill\n",
	})

	first, err := newTestEngine(t, root, WithCachePath("")).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	second, err := newTestEngine(t, root, WithCachePath("")).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, first.Violations, 3)
	assert.Equal(t, first.Violations, second.Violations)

	// Sorted by rule id then file within the critical tier.
	assert.Equal(t, "ARC001", first.Violations[0].RuleID)
	assert.Equal(t, "apps/billing/a.py", first.Violations[1].File)
	assert.Equal(t, "apps/billing/b.py", first.Violations[2].File)
}
