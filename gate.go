package accesscontrol

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// PermissionResolver produces a user's effective permission set for a
// request context. The gate holds an ordered list of resolvers and falls
// back down the list when one fails, so the substitution is an explicit
// design decision rather than a hidden recovery path.
type PermissionResolver interface {
	Name() string
	Resolve(ctx context.Context, userID uint, contextName string) ([]ResolvedPermission, error)
}

// cachedResolver serves from the effective permission cache and fills it
// on a miss.
type cachedResolver struct {
	ac *AccessControl
}

func (r *cachedResolver) Name() string { return "cached" }

func (r *cachedResolver) Resolve(ctx context.Context, userID uint, contextName string) ([]ResolvedPermission, error) {
	if entries, ok := r.ac.cache.Get(ctx, userID, contextName); ok {
		return entries, nil
	}

	entries, err := r.ac.resolveFresh(ctx, userID, contextName)
	if err != nil {
		return nil, err
	}
	r.ac.cache.Put(ctx, userID, contextName, entries)
	return entries, nil
}

// directResolver recomputes on every call, bypassing the cache entirely.
type directResolver struct {
	ac *AccessControl
}

func (r *directResolver) Name() string { return "direct" }

func (r *directResolver) Resolve(ctx context.Context, userID uint, contextName string) ([]ResolvedPermission, error) {
	return r.ac.resolveFresh(ctx, userID, contextName)
}

// resolveFresh runs the full pipeline: active assignments, permission
// union, inheritance, scope conflict resolution, context overlay.
func (ac *AccessControl) resolveFresh(ctx context.Context, userID uint, contextName string) ([]ResolvedPermission, error) {
	views, err := ac.ActiveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		// No active roles means no permissions at all; overlays never
		// apply to a user who holds nothing.
		return nil, nil
	}

	grants, err := ac.unionGrants(ctx, views)
	if err != nil {
		return nil, err
	}

	resolved := ResolveScopes(grants)

	if ac.positions != nil {
		pos, err := ac.positions.GetPosition(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch org position: %w", err)
		}
		resolved = ac.inheritance.Apply(resolved, pos)
	}

	resolved = ac.applyContext(resolved, contextName)

	now := time.Now()
	for i := range resolved {
		resolved[i].Context = contextName
		resolved[i].ComputedAt = now
	}
	return resolved, nil
}

// EffectivePermissions returns the user's resolved permission set for a
// context. Concurrent calls for the same (user, context) collapse into
// one computation. Any unrecovered failure resolves to an empty set:
// the engine fails secure, never open.
func (ac *AccessControl) EffectivePermissions(ctx context.Context, userID uint, contextName string) []ResolvedPermission {
	if userID == 0 {
		return nil
	}
	if contextName == "" {
		contextName = ContextDefault
	}

	key := fmt.Sprintf("%d:%s", userID, contextName)
	result, err, _ := ac.flight.Do(key, func() (interface{}, error) {
		var lastErr error
		for _, resolver := range ac.resolvers {
			entries, err := resolver.Resolve(ctx, userID, contextName)
			if err == nil {
				return entries, nil
			}
			lastErr = err
			ac.log.Warnw("permission resolver failed, trying next",
				"resolver", resolver.Name(), "user_id", userID, "context", contextName, "error", err)
		}
		return nil, lastErr
	})
	if err != nil {
		ac.log.Errorw("permission resolution failed, denying access",
			"user_id", userID, "context", contextName, "error", err)
		return nil
	}
	entries, _ := result.([]ResolvedPermission)
	return entries
}

// HasPermission reports whether the user holds the named permission at
// any scope in the default context.
func (ac *AccessControl) HasPermission(ctx context.Context, userID uint, permission string) bool {
	return ac.HasPermissionScoped(ctx, userID, permission, ScopeNone, ContextDefault)
}

// HasPermissionScoped reports whether the user holds the named permission
// at requiredScope or broader in the given context. ScopeNone means any
// scope suffices.
func (ac *AccessControl) HasPermissionScoped(ctx context.Context, userID uint, permission string, requiredScope Scope, contextName string) bool {
	if userID == 0 || permission == "" {
		return false
	}

	for _, entry := range ac.EffectivePermissions(ctx, userID, contextName) {
		if entry.Name != permission {
			continue
		}
		if requiredScope == ScopeNone || entry.Scope.AtLeast(requiredScope) {
			return true
		}
	}
	return false
}

// CheckAccess reports whether the user may enter the application at all:
// at least one active role and, when requiredRole is non-empty, a held
// role at least as authoritative (lower hierarchy level) as the required
// one. A successful check records the user's last access time.
func (ac *AccessControl) CheckAccess(ctx context.Context, userID uint, requiredRole string) bool {
	if userID == 0 {
		return false
	}

	views, err := ac.ActiveRoles(ctx, userID)
	if err != nil {
		ac.log.Errorw("access check failed, denying", "user_id", userID, "error", err)
		return false
	}
	if len(views) == 0 {
		return false
	}

	if requiredRole != "" {
		var required Role
		if err := ac.db.WithContext(ctx).Where("name = ?", requiredRole).First(&required).Error; err != nil {
			ac.log.Warnw("required role not found, denying", "role", requiredRole, "error", err)
			return false
		}
		best := views[0].HierarchyLevel
		for _, v := range views[1:] {
			if v.HierarchyLevel < best {
				best = v.HierarchyLevel
			}
		}
		if best > required.HierarchyLevel {
			return false
		}
	}

	ac.touchLastAccess(ctx, userID)
	return true
}

// HasModuleAccess reports whether the user holds at least one active role
// assignment, independent of specific permissions.
func (ac *AccessControl) HasModuleAccess(ctx context.Context, userID uint) bool {
	if userID == 0 {
		return false
	}

	views, err := ac.ActiveRoles(ctx, userID)
	if err != nil {
		ac.log.Errorw("module access check failed, denying", "user_id", userID, "error", err)
		return false
	}
	return len(views) > 0
}

// touchLastAccess upserts the user's last access timestamp. Best effort:
// a failed write never fails the surrounding check.
func (ac *AccessControl) touchLastAccess(ctx context.Context, userID uint) {
	access := UserAccess{UserID: userID, LastAccessAt: time.Now()}
	err := ac.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_access_at"}),
		}).
		Create(&access).Error
	if err != nil {
		ac.log.Warnw("failed to record last access", "user_id", userID, "error", err)
	}
}
