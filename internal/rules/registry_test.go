package rules

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/archlint/internal/source"
)

func TestRegistrySelection(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultConfig())

	all := r.FileRules(SeverityInfo)
	require.Len(t, all, 10)

	for _, rule := range r.FileRules(SeverityError) {
		assert.GreaterOrEqual(t, rule.Descriptor().Severity, SeverityError, rule.Descriptor().ID)
	}
	for _, rule := range r.FileRules(SeverityCritical) {
		assert.Equal(t, SeverityCritical, rule.Descriptor().Severity)
	}

	// Graph rules are critical, so they survive every threshold.
	assert.Len(t, r.GraphRules(SeverityCritical), 2)
	assert.Len(t, r.All(), 12)
}

func TestRegistryRuleIDsUnique(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultConfig())

	seen := map[string]bool{}
	for _, d := range r.All() {
		assert.False(t, seen[d.ID], "duplicate rule id %s", d.ID)
		seen[d.ID] = true
	}
}

type stubRule struct{ id string }

func (s *stubRule) Descriptor() Descriptor {
	return Descriptor{ID: s.id, Name: s.id, Severity: SeverityWarning, Scope: FileLevel}
}
func (s *stubRule) NodeKinds() []string { return []string{"module"} }
func (s *stubRule) Check(*sitter.Node, *VisitContext) []Violation {
	return nil
}

func TestWithFileRulesCopies(t *testing.T) {
	t.Parallel()
	base := NewRegistry(DefaultConfig())
	extended := base.WithFileRules(&stubRule{id: "custom/x"})

	assert.Len(t, base.FileRules(SeverityInfo), 10)
	assert.Len(t, extended.FileRules(SeverityInfo), 11)
}

func TestGrandfatheredExemption(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Grandfathered = []string{"apps/legacy/**"}
	r := NewRegistry(cfg)

	var deprecated FileRule
	for _, rule := range r.FileRules(SeverityInfo) {
		if rule.Descriptor().ID == "ARC303" {
			deprecated = rule
		}
	}
	require.NotNil(t, deprecated)

	b := source.NewBuilder(source.DefaultLayout())
	old := b.Build(context.Background(), "apps/legacy/settings.py", []byte("x = 1\n"))
	fresh := b.Build(context.Background(), "apps/billing/settings.py", []byte("x = 1\n"))
	t.Cleanup(func() { old.Close(); fresh.Close() })

	assert.True(t, deprecated.Descriptor().Exempted(old))
	assert.False(t, deprecated.Descriptor().Exempted(fresh))
}
