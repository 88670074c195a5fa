package accesscontrol

import (
	"sort"
	"time"
)

// PermissionGrant is one (permission, scope, source role) edge as fetched
// from the store. The same permission appears once per granting role so
// provenance survives until conflict resolution.
type PermissionGrant struct {
	PermissionName string
	Category       string
	GrantedScope   Scope
	SourceRole     string
}

// ResolvedPermission is the effective form of a permission after scope
// conflicts, inheritance and context overlays have been applied.
type ResolvedPermission struct {
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Scope             Scope     `json:"scope"`
	ContributingRoles []string  `json:"contributing_roles"`
	Context           string    `json:"context"`
	ComputedAt        time.Time `json:"computed_at"`
}

// HasContributor reports whether the named role contributed this entry.
func (p ResolvedPermission) HasContributor(role string) bool {
	for _, r := range p.ContributingRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ResolveScopes collapses duplicate grants of the same permission to the
// single most-permissive entry. Every role that granted the permission at
// any scope is recorded in ContributingRoles; when several roles tie for
// the top scope the last one seen becomes the representative, which
// callers must treat as arbitrary. Pure function: same input, same output.
func ResolveScopes(grants []PermissionGrant) []ResolvedPermission {
	type group struct {
		winner       PermissionGrant
		contributors map[string]struct{}
	}

	groups := make(map[string]*group)
	order := make([]string, 0, len(grants))
	for _, g := range grants {
		grp, ok := groups[g.PermissionName]
		if !ok {
			grp = &group{winner: g, contributors: make(map[string]struct{})}
			groups[g.PermissionName] = grp
			order = append(order, g.PermissionName)
		}
		grp.contributors[g.SourceRole] = struct{}{}
		if g.GrantedScope.Rank() >= grp.winner.GrantedScope.Rank() {
			grp.winner = g
		}
	}

	resolved := make([]ResolvedPermission, 0, len(groups))
	for _, name := range order {
		grp := groups[name]
		roles := make([]string, 0, len(grp.contributors))
		for role := range grp.contributors {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		resolved = append(resolved, ResolvedPermission{
			Name:              grp.winner.PermissionName,
			Category:          grp.winner.Category,
			Scope:             grp.winner.GrantedScope,
			ContributingRoles: roles,
		})
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Name < resolved[j].Name })
	return resolved
}
