package accesscontrol

import "context"

// OrgPosition is a user's place in the organizational hierarchy as
// reported by the external org-position provider.
type OrgPosition struct {
	SiteID        uint
	DepartmentID  *uint
	ProcessAreaID *uint
}

// OrgPositionProvider supplies organizational positions. The engine never
// owns this data; web applications typically back it with their HR store.
type OrgPositionProvider interface {
	GetPosition(ctx context.Context, userID uint) (OrgPosition, error)
}

// InheritanceRule adjusts resolved scopes based on a user's position.
// Rules may narrow or annotate entries but concrete policy lives with the
// embedding application, not the engine.
type InheritanceRule interface {
	Apply(resolved []ResolvedPermission, pos OrgPosition) []ResolvedPermission
}

// PassthroughInheritance leaves every entry unchanged. It is the default
// rule when no business policy has been injected.
type PassthroughInheritance struct{}

// Apply returns the input unchanged.
func (PassthroughInheritance) Apply(resolved []ResolvedPermission, _ OrgPosition) []ResolvedPermission {
	return resolved
}

// ScopeCeilingRule caps resolved scopes at a ceiling for users whose
// position lacks a department, except for explicitly exempt permissions.
// Ships as a worked example of the extension point.
type ScopeCeilingRule struct {
	Ceiling Scope
	Exempt  []string
}

// Apply narrows any entry above the ceiling unless exempt.
func (r ScopeCeilingRule) Apply(resolved []ResolvedPermission, pos OrgPosition) []ResolvedPermission {
	if pos.DepartmentID != nil {
		return resolved
	}

	exempt := make(map[string]struct{}, len(r.Exempt))
	for _, name := range r.Exempt {
		exempt[name] = struct{}{}
	}

	out := make([]ResolvedPermission, len(resolved))
	copy(out, resolved)
	for i := range out {
		if _, ok := exempt[out[i].Name]; ok {
			continue
		}
		out[i].Scope = narrowest(out[i].Scope, r.Ceiling)
	}
	return out
}
