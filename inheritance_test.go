package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassthroughInheritance(t *testing.T) {
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeAll, ContributingRoles: []string{"archivist"}},
	}

	out := PassthroughInheritance{}.Apply(resolved, OrgPosition{SiteID: 1})
	assert.Equal(t, resolved, out)
}

func TestScopeCeilingRuleNarrowsWithoutDepartment(t *testing.T) {
	rule := ScopeCeilingRule{Ceiling: ScopeStation, Exempt: []string{"doc.read"}}
	resolved := []ResolvedPermission{
		{Name: "doc.read", Scope: ScopeAll},
		{Name: "doc.write", Scope: ScopeDepartment},
		{Name: "doc.sign", Scope: ScopeAssignedOnly},
	}

	out := rule.Apply(resolved, OrgPosition{SiteID: 1})
	assert.Equal(t, ScopeAll, out[0].Scope, "exempt permission is untouched")
	assert.Equal(t, ScopeStation, out[1].Scope, "above-ceiling scope is narrowed")
	assert.Equal(t, ScopeAssignedOnly, out[2].Scope, "below-ceiling scope is untouched")

	// Input slice is not mutated.
	assert.Equal(t, ScopeDepartment, resolved[1].Scope)
}

func TestScopeCeilingRulePassesThroughWithDepartment(t *testing.T) {
	dept := uint(7)
	rule := ScopeCeilingRule{Ceiling: ScopeStation}
	resolved := []ResolvedPermission{{Name: "doc.write", Scope: ScopeDepartment}}

	out := rule.Apply(resolved, OrgPosition{SiteID: 1, DepartmentID: &dept})
	assert.Equal(t, ScopeDepartment, out[0].Scope)
}
