package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/archlint/internal/source"
)

func buildContexts(t *testing.T, files map[string]string) []*source.Context {
	t.Helper()
	b := source.NewBuilder(source.DefaultLayout())
	var out []*source.Context
	for path, src := range files {
		sc := b.Build(context.Background(), path, []byte(src))
		t.Cleanup(sc.Close)
		out = append(out, sc)
	}
	return out
}

func TestHierarchyCrossFileReachability(t *testing.T) {
	t.Parallel()
	contexts := buildContexts(t, map[string]string{
		"packages/plat_core/errors.py": "class PlatformError(Exception):\n    pass\n",
		"apps/billing/errors.py":       "class BillingError(PlatformError):\n    pass\n",
		"apps/billing/deep.py":         "class RefundError(BillingError):\n    pass\n",
	})
	h := BuildHierarchy(contexts)
	roots := map[string]bool{"Exception": true, "PlatformError": true}

	assert.True(t, h.Known("BillingError"))
	assert.False(t, h.Known("ValueError"))

	// Reachability crosses files and multiple hops.
	assert.True(t, h.ReachesRoot("BillingError", roots))
	assert.True(t, h.ReachesRoot("RefundError", roots))
	assert.True(t, h.ReachesRoot("PlatformError", roots))
}

func TestHierarchyUnsanctionedBase(t *testing.T) {
	t.Parallel()
	contexts := buildContexts(t, map[string]string{
		"apps/billing/errors.py": "class LooseError(RuntimeError):\n    pass\n",
	})
	h := BuildHierarchy(contexts)

	assert.False(t, h.ReachesRoot("LooseError", map[string]bool{"PlatformError": true}))
}

func TestHierarchyCycleTerminates(t *testing.T) {
	t.Parallel()
	contexts := buildContexts(t, map[string]string{
		"apps/billing/a.py": "class AError(BError):\n    pass\n",
		"apps/billing/b.py": "class BError(AError):\n    pass\n",
	})
	h := BuildHierarchy(contexts)

	assert.False(t, h.ReachesRoot("AError", map[string]bool{"PlatformError": true}))
}

func TestHierarchySkipsParseFailures(t *testing.T) {
	t.Parallel()
	contexts := buildContexts(t, map[string]string{
		"apps/billing/broken.py": "class Broken(:\n",
		"apps/billing/good.py":   "class GoodError(Exception):\n    pass\n",
	})
	h := BuildHierarchy(contexts)

	assert.False(t, h.Known("Broken"))
	assert.True(t, h.Known("GoodError"))
}
