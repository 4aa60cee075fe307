package archlint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFiles(t *testing.T) {
	t.Parallel()
	root := writeRepo(t, map[string]string{
		"apps/billing/models.py":       "",
		"apps/billing/notes.txt":       "",
		"packages/plat_core/util.py":   "",
		".venv/lib/site.py":            "",
		"apps/__pycache__/models.py":   "",
		"node_modules/pkg/setup.py":    "",
		"apps/billing/legacy/old.py":   "",
		"apps/billing/legacy/older.py": "",
	})

	paths, err := DiscoverFiles(root, []string{"**/legacy/**"})
	require.NoError(t, err)

	// Sorted, Python-only, with hidden and conventional junk directories
	// plus excluded globs dropped.
	assert.Equal(t, []string{
		"apps/billing/models.py",
		"packages/plat_core/util.py",
	}, paths)
}

func TestRestrictByScope(t *testing.T) {
	t.Parallel()
	paths := []string{
		"apps/billing/models.py",
		"apps/shipping/labels.py",
		"packages/plat_core/util.py",
	}

	assert.Equal(t, []string{"apps/billing/models.py", "apps/shipping/labels.py"},
		restrict(paths, nil, "apps"))
	assert.Equal(t, []string{"apps/billing/models.py"},
		restrict(paths, nil, "apps/billing/"))
	assert.Equal(t, paths, restrict(paths, nil, ""))
}

func TestRestrictByChangedFiles(t *testing.T) {
	t.Parallel()
	paths := []string{
		"apps/billing/models.py",
		"packages/plat_core/util.py",
	}

	// Unknown paths are ignored rather than invented.
	got := restrict(paths, []string{"packages/plat_core/util.py", "apps/gone.py"}, "")
	assert.Equal(t, []string{"packages/plat_core/util.py"}, got)
}
