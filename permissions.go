package accesscontrol

import (
	"context"
	"fmt"
	"strings"
)

// CreatePermission registers a new permission. IntrinsicScope is the
// broadest scope any role may ever be granted for it.
func (ac *AccessControl) CreatePermission(ctx context.Context, actorID uint, name, category, action string, intrinsicScope Scope, riskLevel string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" || action == "" || !intrinsicScope.Valid() {
		return nil, ErrInvalidInput
	}

	var existing Permission
	if err := ac.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("permission %s already exists: %w", name, ErrInvalidInput)
	}

	perm := &Permission{
		Name:           name,
		Category:       category,
		Action:         action,
		IntrinsicScope: intrinsicScope,
		RiskLevel:      riskLevel,
	}
	if err := ac.db.WithContext(ctx).Create(perm).Error; err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	ac.logAudit(ctx, actorID, "create_permission", "permission", perm.ID, "Created permission: "+name)
	return perm, nil
}

// GetPermission retrieves a permission by ID.
func (ac *AccessControl) GetPermission(ctx context.Context, id uint) (*Permission, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var perm Permission
	if err := ac.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		return nil, ErrNotFound
	}
	return &perm, nil
}

// ListPermissions retrieves all permissions, optionally filtered by
// category.
func (ac *AccessControl) ListPermissions(ctx context.Context, category string) ([]Permission, error) {
	var perms []Permission
	query := ac.db.WithContext(ctx).Order("name")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// GrantPermissionToRole attaches a permission to a role at a scope. The
// granted scope must not exceed the permission's intrinsic scope; an
// existing edge for the pair is updated rather than duplicated.
func (ac *AccessControl) GrantPermissionToRole(ctx context.Context, actorID, roleID, permissionID uint, scope Scope) error {
	if roleID == 0 || permissionID == 0 || !scope.Valid() {
		return ErrInvalidInput
	}

	var role Role
	if err := ac.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		return ErrNotFound
	}
	var perm Permission
	if err := ac.db.WithContext(ctx).First(&perm, permissionID).Error; err != nil {
		return ErrNotFound
	}
	if scope.Rank() > perm.IntrinsicScope.Rank() {
		return fmt.Errorf("scope %s above intrinsic %s for %s: %w", scope, perm.IntrinsicScope, perm.Name, ErrScopeExceedsIntrinsic)
	}

	var existing RolePermission
	err := ac.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		First(&existing).Error
	if err == nil {
		existing.GrantedScope = scope
		if err := ac.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update role permission: %w", err)
		}
	} else {
		edge := RolePermission{RoleID: roleID, PermissionID: permissionID, GrantedScope: scope}
		if err := ac.db.WithContext(ctx).Create(&edge).Error; err != nil {
			return fmt.Errorf("failed to grant permission to role: %w", err)
		}
	}

	ac.cache.InvalidateAll(ctx)
	ac.logAudit(ctx, actorID, "grant_role_permission", "role_permission", roleID, fmt.Sprintf("Granted %s at %s to role %s", perm.Name, scope, role.Name))
	return nil
}

// RevokePermissionFromRole removes a permission edge from a role.
func (ac *AccessControl) RevokePermissionFromRole(ctx context.Context, actorID, roleID, permissionID uint) error {
	if roleID == 0 || permissionID == 0 {
		return ErrInvalidInput
	}

	result := ac.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&RolePermission{})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke role permission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	ac.cache.InvalidateAll(ctx)
	ac.logAudit(ctx, actorID, "revoke_role_permission", "role_permission", roleID, "Revoked permission from role")
	return nil
}
