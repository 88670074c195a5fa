package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOverlayService() *AccessControl {
	return &AccessControl{overlays: builtinOverlays(), log: zap.NewNop().Sugar()}
}

func TestApplyContextDefaultIsNoop(t *testing.T) {
	ac := newOverlayService()
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeDepartment, ContributingRoles: []string{"clerk"}},
	}

	out := ac.applyContext(resolved, ContextDefault)
	assert.Equal(t, resolved, out)
}

func TestApplyContextUnknownBehavesAsDefault(t *testing.T) {
	ac := newOverlayService()
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeDepartment, ContributingRoles: []string{"clerk"}},
	}

	assert.Equal(t, ac.applyContext(resolved, ContextDefault), ac.applyContext(resolved, "bogus"))
}

func TestApplyContextAuditorAddsExport(t *testing.T) {
	ac := newOverlayService()
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeDepartment, ContributingRoles: []string{"clerk"}},
	}

	out := ac.applyContext(resolved, ContextAuditor)
	names := make(map[string]ResolvedPermission)
	for _, p := range out {
		names[p.Name] = p
	}
	require.Contains(t, names, "doc.export")
	assert.Equal(t, ScopeAll, names["doc.export"].Scope)
	assert.Contains(t, names["doc.export"].ContributingRoles, "context:auditor")
	// Pre-existing entries survive untouched.
	assert.Equal(t, ScopeDepartment, names["doc.read"].Scope)
}

func TestApplyContextWidensButNeverNarrows(t *testing.T) {
	ac := newOverlayService()
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeDepartment, ContributingRoles: []string{"clerk"}},
		{Name: "site.broadcast", Scope: ScopeAll, ContributingRoles: []string{"director"}},
	}

	out := ac.applyContext(resolved, ContextEmergency)
	names := make(map[string]ResolvedPermission)
	for _, p := range out {
		names[p.Name] = p
	}
	// Widened by the overlay.
	assert.Equal(t, ScopeAll, names["doc.read"].Scope)
	assert.Contains(t, names["doc.read"].ContributingRoles, "context:emergency")
	// Already at the overlay's scope: untouched.
	assert.Equal(t, []string{"director"}, names["site.broadcast"].ContributingRoles)
}

// applyContext(P, ctx) is a superset of P for every overlay.
func TestApplyContextNeverRemoves(t *testing.T) {
	ac := newOverlayService()
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeDepartment, ContributingRoles: []string{"clerk"}},
		{Name: "doc.sign", Scope: ScopeAssignedOnly, ContributingRoles: []string{"clerk"}},
	}

	for _, name := range []string{ContextDefault, ContextAuditor, ContextSafety, ContextEmergency, "bogus"} {
		out := ac.applyContext(resolved, name)
		byName := make(map[string]ResolvedPermission)
		for _, p := range out {
			byName[p.Name] = p
		}
		for _, p := range resolved {
			got, ok := byName[p.Name]
			require.True(t, ok, "context %s removed %s", name, p.Name)
			assert.True(t, got.Scope.AtLeast(p.Scope), "context %s narrowed %s", name, p.Name)
		}
	}
}

func TestRegisterOverlay(t *testing.T) {
	ac := newOverlayService()
	err := ac.RegisterOverlay(ContextOverlay{
		Name: "maintenance",
		Grants: []PermissionGrant{
			{PermissionName: "equipment.lock", GrantedScope: ScopeStation, SourceRole: "context:maintenance"},
		},
	})
	require.NoError(t, err)

	out := ac.applyContext(nil, "maintenance")
	require.Len(t, out, 1)
	assert.Equal(t, "equipment.lock", out[0].Name)

	assert.ErrorIs(t, ac.RegisterOverlay(ContextOverlay{Name: ContextDefault}), ErrInvalidInput)
	assert.ErrorIs(t, ac.RegisterOverlay(ContextOverlay{}), ErrInvalidInput)
}
