package accesscontrol

// Request context names with built-in overlays.
const (
	ContextDefault   = "default"
	ContextAuditor   = "auditor"
	ContextSafety    = "safety"
	ContextEmergency = "emergency"
)

// ContextOverlay adds or widens permissions for the duration of a request
// context. Overlays are strictly additive: nothing a user already holds
// is ever removed or narrowed by one.
type ContextOverlay struct {
	Name   string
	Grants []PermissionGrant
}

func builtinOverlays() map[string]ContextOverlay {
	return map[string]ContextOverlay{
		ContextAuditor: {
			Name: ContextAuditor,
			Grants: []PermissionGrant{
				{PermissionName: "doc.export", Category: "documents", GrantedScope: ScopeAll, SourceRole: "context:auditor"},
				{PermissionName: "audit.read", Category: "audit", GrantedScope: ScopeAll, SourceRole: "context:auditor"},
			},
		},
		ContextSafety: {
			Name: ContextSafety,
			Grants: []PermissionGrant{
				{PermissionName: "incident.read", Category: "safety", GrantedScope: ScopeAll, SourceRole: "context:safety"},
			},
		},
		ContextEmergency: {
			Name: ContextEmergency,
			Grants: []PermissionGrant{
				{PermissionName: "doc.read", Category: "documents", GrantedScope: ScopeAll, SourceRole: "context:emergency"},
				{PermissionName: "site.broadcast", Category: "operations", GrantedScope: ScopeAll, SourceRole: "context:emergency"},
			},
		},
	}
}

// RegisterOverlay installs or replaces a named overlay. The default
// context cannot be overridden; it always means "no overlay".
func (ac *AccessControl) RegisterOverlay(overlay ContextOverlay) error {
	if overlay.Name == "" || overlay.Name == ContextDefault {
		return ErrInvalidInput
	}
	ac.overlays[overlay.Name] = overlay
	return nil
}

// applyContext applies the named overlay to the resolved set. The default
// context is a no-op, and an unknown name behaves exactly like default:
// the safe path is the no-op, not an error.
func (ac *AccessControl) applyContext(resolved []ResolvedPermission, contextName string) []ResolvedPermission {
	overlay, ok := ac.overlays[contextName]
	if !ok {
		return resolved
	}

	out := make([]ResolvedPermission, len(resolved))
	copy(out, resolved)

	for _, g := range overlay.Grants {
		found := false
		for i := range out {
			if out[i].Name != g.PermissionName {
				continue
			}
			found = true
			if g.GrantedScope.Rank() > out[i].Scope.Rank() {
				out[i].Scope = g.GrantedScope
				out[i].ContributingRoles = append(out[i].ContributingRoles, g.SourceRole)
			}
			break
		}
		if !found {
			out = append(out, ResolvedPermission{
				Name:              g.PermissionName,
				Category:          g.Category,
				Scope:             g.GrantedScope,
				ContributingRoles: []string{g.SourceRole},
			})
		}
	}
	return out
}
