package accesscontrol

import (
	"context"
	"fmt"
	"strings"
)

// CreateRole creates a new role. Hierarchy level: lower means more
// authority. combinableWith lists role names this role may coexist with;
// empty means no restriction.
func (ac *AccessControl) CreateRole(ctx context.Context, actorID uint, name, displayName string, hierarchyLevel int, combinableWith []string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	var existing Role
	if err := ac.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("role %s already exists: %w", name, ErrInvalidInput)
	}

	role := &Role{
		Name:           name,
		DisplayName:    displayName,
		HierarchyLevel: hierarchyLevel,
		Active:         true,
		CombinableWith: strings.Join(combinableWith, ","),
	}
	if err := ac.db.WithContext(ctx).Create(role).Error; err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	ac.logAudit(ctx, actorID, "create_role", "role", role.ID, "Created role: "+name)
	return role, nil
}

// UpdateRole updates a role's details.
func (ac *AccessControl) UpdateRole(ctx context.Context, actorID, id uint, displayName string, hierarchyLevel int, combinableWith []string) (*Role, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var role Role
	if err := ac.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, ErrNotFound
	}

	role.DisplayName = displayName
	role.HierarchyLevel = hierarchyLevel
	role.CombinableWith = strings.Join(combinableWith, ",")
	if err := ac.db.WithContext(ctx).Save(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	ac.cache.InvalidateAll(ctx)
	ac.logAudit(ctx, actorID, "update_role", "role", role.ID, "Updated role: "+role.Name)
	return &role, nil
}

// DeactivateRole flips a role inactive. Roles are never deleted, so every
// historical assignment keeps its reference; active assignments simply
// stop contributing permissions.
func (ac *AccessControl) DeactivateRole(ctx context.Context, actorID, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}

	var role Role
	if err := ac.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return ErrNotFound
	}

	role.Active = false
	if err := ac.db.WithContext(ctx).Save(&role).Error; err != nil {
		return fmt.Errorf("failed to deactivate role: %w", err)
	}

	ac.cache.InvalidateAll(ctx)
	ac.logAudit(ctx, actorID, "deactivate_role", "role", id, "Deactivated role: "+role.Name)
	return nil
}

// GetRole retrieves a role by ID.
func (ac *AccessControl) GetRole(ctx context.Context, id uint) (*Role, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var role Role
	if err := ac.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, ErrNotFound
	}
	return &role, nil
}

// GetRoleByName retrieves a role by its unique name.
func (ac *AccessControl) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}

	var role Role
	if err := ac.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, ErrNotFound
	}
	return &role, nil
}

// ListRoles retrieves all roles, optionally active ones only.
func (ac *AccessControl) ListRoles(ctx context.Context, activeOnly bool) ([]Role, error) {
	var roles []Role
	query := ac.db.WithContext(ctx).Order("hierarchy_level, name")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}
