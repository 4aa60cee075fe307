package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildContext(t *testing.T, relPath, src string) *Context {
	t.Helper()
	b := NewBuilder(DefaultLayout())
	sc := b.Build(context.Background(), relPath, []byte(src))
	t.Cleanup(sc.Close)
	return sc
}

func TestBuildClassifiesPath(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "packages/plat_auth/tokens.py", "x = 1\n")

	assert.Equal(t, PartitionPackage, sc.Partition)
	assert.Equal(t, "plat_auth", sc.OwningName)
	assert.Equal(t, "plat_auth.tokens", sc.Module)
	assert.False(t, sc.ParseFailed)
	assert.False(t, sc.Exempt())
	assert.NotEmpty(t, sc.Fingerprint)
}

func TestBuildParseFailure(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "apps/billing/broken.py", "def f(:\n    pass\n")

	assert.True(t, sc.ParseFailed)
	assert.NotEmpty(t, sc.ParseErr)
	assert.Positive(t, sc.ParseErrLine)
	assert.Empty(t, sc.Imports)
}

func TestFingerprintStable(t *testing.T) {
	t.Parallel()
	a := Fingerprint([]byte("x = 1\n"))
	b := Fingerprint([]byte("x = 1\n"))
	c := Fingerprint([]byte("x = 2\n"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestExtractDirectImports(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "apps/billing/handlers.py",
		"import os\nimport plat_auth.tokens, json as j\n")

	require.Len(t, sc.Imports, 3)
	assert.Equal(t, Import{Target: "os", Kind: ImportDirect, Line: 1}, sc.Imports[0])
	assert.Equal(t, Import{Target: "plat_auth.tokens", Kind: ImportDirect, Line: 2}, sc.Imports[1])
	assert.Equal(t, Import{Target: "json", Kind: ImportDirect, Line: 2}, sc.Imports[2])
}

func TestExtractFromImports(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "apps/billing/handlers.py",
		"from plat_auth.tokens import issue, verify as v\nfrom plat_core import *\n")

	require.Len(t, sc.Imports, 2)
	assert.Equal(t, "plat_auth.tokens", sc.Imports[0].Target)
	assert.Equal(t, ImportFrom, sc.Imports[0].Kind)
	assert.Equal(t, []string{"issue", "verify"}, sc.Imports[0].Names)
	assert.Zero(t, sc.Imports[0].Level)

	assert.Equal(t, "plat_core", sc.Imports[1].Target)
	assert.Equal(t, []string{"*"}, sc.Imports[1].Names)
}

func TestExtractRelativeImports(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "apps/billing/api/routes.py",
		"from . import helpers\nfrom ..models import invoice\n")

	require.Len(t, sc.Imports, 2)
	assert.Equal(t, 1, sc.Imports[0].Level)
	assert.Empty(t, sc.Imports[0].Target)
	assert.Equal(t, []string{"helpers"}, sc.Imports[0].Names)

	assert.Equal(t, 2, sc.Imports[1].Level)
	assert.Equal(t, "models", sc.Imports[1].Target)
	assert.Equal(t, []string{"invoice"}, sc.Imports[1].Names)
}

func TestExtractNestedImports(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "apps/billing/lazy.py",
		"def load():\n    import pickle\n    return pickle\n")

	require.Len(t, sc.Imports, 1)
	assert.Equal(t, "pickle", sc.Imports[0].Target)
	assert.Equal(t, 2, sc.Imports[0].Line)
}

func TestExtractClasses(t *testing.T) {
	t.Parallel()
	sc := buildContext(t, "packages/plat_core/errors.py", `
class PlatformError(Exception):
    pass

class BillingError(exc.PlatformError, metaclass=ABCMeta):
    pass

class Plain:
    pass
`)

	require.Len(t, sc.Classes, 3)
	assert.Equal(t, "PlatformError", sc.Classes[0].Name)
	assert.Equal(t, []string{"Exception"}, sc.Classes[0].Bases)

	// Dotted bases are keyed by their final segment; keyword arguments in
	// the superclass list are not bases.
	assert.Equal(t, "BillingError", sc.Classes[1].Name)
	assert.Equal(t, []string{"PlatformError"}, sc.Classes[1].Bases)

	assert.Equal(t, "Plain", sc.Classes[2].Name)
	assert.Empty(t, sc.Classes[2].Bases)
}
