package accesscontrol

import (
	"context"
	"fmt"
)

// unionGrants fetches every permission granted by any of the given role
// assignments. True set union: a permission granted by several roles
// yields one PermissionGrant per granting role, so provenance is intact
// when scope conflicts are resolved. No roles means no permissions.
func (ac *AccessControl) unionGrants(ctx context.Context, views []RoleAssignmentView) ([]PermissionGrant, error) {
	if len(views) == 0 {
		return nil, nil
	}

	roleIDs := make([]uint, 0, len(views))
	for _, v := range views {
		roleIDs = append(roleIDs, v.RoleID)
	}

	ctx, cancel := context.WithTimeout(ctx, ac.storeTimeout)
	defer cancel()

	type grantRow struct {
		PermissionName string
		Category       string
		GrantedScope   string
		SourceRole     string
	}
	var rows []grantRow
	err := ac.db.WithContext(ctx).
		Table("role_permissions").
		Select("permissions.name AS permission_name, permissions.category, role_permissions.granted_scope, roles.name AS source_role").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role permissions: %w", err)
	}

	grants := make([]PermissionGrant, 0, len(rows))
	for _, row := range rows {
		scope, err := ParseScope(row.GrantedScope)
		if err != nil {
			// Administrative data drift is skipped, never surfaced to the
			// end-user request.
			ac.log.Warnw("skipping grant with unknown scope",
				"permission", row.PermissionName, "role", row.SourceRole, "scope", row.GrantedScope)
			continue
		}
		grants = append(grants, PermissionGrant{
			PermissionName: row.PermissionName,
			Category:       row.Category,
			GrantedScope:   scope,
			SourceRole:     row.SourceRole,
		})
	}
	return grants, nil
}
