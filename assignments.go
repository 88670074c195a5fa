package accesscontrol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GrantOptions carries the optional fields of a role assignment.
type GrantOptions struct {
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
	DepartmentID   *uint
	ScopeValue     string
	Protected      bool
	Notes          string
}

// ActiveRoles returns the user's currently effective role assignments:
// status active, inside the effective window, and the role itself still
// active. A user with no assignments yields an empty list, never an error.
func (ac *AccessControl) ActiveRoles(ctx context.Context, userID uint) ([]RoleAssignmentView, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, ac.storeTimeout)
	defer cancel()

	now := time.Now()
	var views []RoleAssignmentView
	err := ac.db.WithContext(ctx).
		Table("user_role_assignments").
		Select("user_role_assignments.id AS assignment_id, roles.id AS role_id, roles.name AS role_name, roles.hierarchy_level, user_role_assignments.department_id, user_role_assignments.scope_value").
		Joins("JOIN roles ON roles.id = user_role_assignments.role_id").
		Where("user_role_assignments.user_id = ?", userID).
		Where("user_role_assignments.status = ?", StatusActive).
		Where("roles.active = ?", true).
		Where("user_role_assignments.effective_from IS NULL OR user_role_assignments.effective_from <= ?", now).
		Where("user_role_assignments.effective_until IS NULL OR user_role_assignments.effective_until > ?", now).
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active roles: %w", err)
	}
	return views, nil
}

// GrantRole assigns a role to a user. An existing active assignment for
// the same (user, role) pair is superseded, never stacked. The cache is
// invalidated after the write commits and before this call returns.
func (ac *AccessControl) GrantRole(ctx context.Context, actorID, userID, roleID uint, opts GrantOptions) (*UserRoleAssignment, error) {
	if userID == 0 || roleID == 0 {
		return nil, ErrInvalidInput
	}

	var role Role
	if err := ac.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		return nil, ErrNotFound
	}
	if !role.Active {
		return nil, fmt.Errorf("role %s is deactivated: %w", role.Name, ErrInvalidInput)
	}

	if err := ac.checkCombinable(ctx, userID, role); err != nil {
		return nil, err
	}

	// Supersede any active duplicate so the pair holds one active row.
	err := ac.db.WithContext(ctx).
		Model(&UserRoleAssignment{}).
		Where("user_id = ? AND role_id = ? AND status = ?", userID, roleID, StatusActive).
		Update("status", StatusInactive).Error
	if err != nil {
		return nil, fmt.Errorf("failed to supersede existing assignment: %w", err)
	}

	assignment := &UserRoleAssignment{
		UserID:         userID,
		RoleID:         roleID,
		Status:         StatusActive,
		GrantedBy:      actorID,
		GrantedAt:      time.Now(),
		EffectiveFrom:  opts.EffectiveFrom,
		EffectiveUntil: opts.EffectiveUntil,
		DepartmentID:   opts.DepartmentID,
		ScopeValue:     opts.ScopeValue,
		Protected:      opts.Protected,
		Notes:          opts.Notes,
	}
	if err := ac.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to grant role: %w", err)
	}

	ac.cache.Invalidate(ctx, userID)
	ac.logAudit(ctx, actorID, "grant_role", "user_role_assignment", assignment.ID, "Granted role "+role.Name)
	return assignment, nil
}

// GrantRoles assigns several roles in one call, invalidating the cache
// once at the end.
func (ac *AccessControl) GrantRoles(ctx context.Context, actorID, userID uint, roleIDs []uint) error {
	if userID == 0 || len(roleIDs) == 0 {
		return ErrInvalidInput
	}

	for _, roleID := range roleIDs {
		if _, err := ac.GrantRole(ctx, actorID, userID, roleID, GrantOptions{}); err != nil {
			return fmt.Errorf("failed to grant role %d: %w", roleID, err)
		}
	}
	ac.cache.Invalidate(ctx, userID)
	return nil
}

// RevokeRole flips the active assignment for (user, role) to inactive.
// Protected assignments reject the revoke with an explicit error.
func (ac *AccessControl) RevokeRole(ctx context.Context, actorID, userID, roleID uint) error {
	if userID == 0 || roleID == 0 {
		return ErrInvalidInput
	}

	var assignment UserRoleAssignment
	err := ac.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND status = ?", userID, roleID, StatusActive).
		First(&assignment).Error
	if err != nil {
		return ErrNotFound
	}
	if assignment.Protected {
		ac.logAudit(ctx, actorID, "revoke_role_rejected", "user_role_assignment", assignment.ID, "Revoke rejected: assignment is protected")
		return ErrProtectedAssignment
	}

	assignment.Status = StatusInactive
	if err := ac.db.WithContext(ctx).Save(&assignment).Error; err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	ac.cache.Invalidate(ctx, userID)
	ac.logAudit(ctx, actorID, "revoke_role", "user_role_assignment", assignment.ID, "Revoked role assignment")
	return nil
}

// RestoreRole flips the most recently revoked assignment for (user, role)
// back to active, provided no active duplicate exists.
func (ac *AccessControl) RestoreRole(ctx context.Context, actorID, userID, roleID uint) error {
	if userID == 0 || roleID == 0 {
		return ErrInvalidInput
	}

	var active int64
	err := ac.db.WithContext(ctx).
		Model(&UserRoleAssignment{}).
		Where("user_id = ? AND role_id = ? AND status = ?", userID, roleID, StatusActive).
		Count(&active).Error
	if err != nil {
		return fmt.Errorf("failed to check active assignments: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("assignment already active: %w", ErrInvalidInput)
	}

	var assignment UserRoleAssignment
	err = ac.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND status = ?", userID, roleID, StatusInactive).
		Order("updated_at DESC").
		First(&assignment).Error
	if err != nil {
		return ErrNotFound
	}

	assignment.Status = StatusActive
	if err := ac.db.WithContext(ctx).Save(&assignment).Error; err != nil {
		return fmt.Errorf("failed to restore role: %w", err)
	}

	ac.cache.Invalidate(ctx, userID)
	ac.logAudit(ctx, actorID, "restore_role", "user_role_assignment", assignment.ID, "Restored role assignment")
	return nil
}

// ListAssignments returns every assignment for a user, active or not.
func (ac *AccessControl) ListAssignments(ctx context.Context, userID uint) ([]UserRoleAssignment, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	var assignments []UserRoleAssignment
	err := ac.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// checkCombinable verifies the new role may coexist with every role the
// user already holds. An empty combinable-with set places no restriction.
func (ac *AccessControl) checkCombinable(ctx context.Context, userID uint, newRole Role) error {
	held, err := ac.ActiveRoles(ctx, userID)
	if err != nil {
		return err
	}
	if len(held) == 0 {
		return nil
	}

	allowed := newRole.CombinableSet()
	for _, h := range held {
		if h.RoleID == newRole.ID {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[h.RoleName]; !ok {
				return fmt.Errorf("role %s cannot coexist with %s: %w", newRole.Name, h.RoleName, ErrRoleNotCombinable)
			}
		}

		var heldRole Role
		if err := ac.db.WithContext(ctx).First(&heldRole, h.RoleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("failed to load held role: %w", err)
		}
		heldAllowed := heldRole.CombinableSet()
		if len(heldAllowed) > 0 {
			if _, ok := heldAllowed[newRole.Name]; !ok {
				return fmt.Errorf("role %s cannot coexist with %s: %w", h.RoleName, newRole.Name, ErrRoleNotCombinable)
			}
		}
	}
	return nil
}
