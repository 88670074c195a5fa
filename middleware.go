package accesscontrol

import (
	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the fiber.Ctx locals key the auth layer must populate
// with the authenticated user's id before any guard runs.
const UserIDLocal = "user_id"

// RequireAccess guards a route group behind CheckAccess. requiredRole may
// be empty to demand only that the user holds some active role.
func (ac *AccessControl) RequireAccess(requiredRole string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == 0 || !ac.CheckAccess(c.UserContext(), userID, requiredRole) {
			return fiber.NewError(fiber.StatusForbidden, "access denied")
		}
		return c.Next()
	}
}

// RequirePermission guards a route behind a scoped permission check in
// the request's context overlay (taken from the X-Access-Context header,
// defaulting to the no-op default context).
func (ac *AccessControl) RequirePermission(permission string, requiredScope Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == 0 {
			return fiber.NewError(fiber.StatusForbidden, "access denied")
		}

		contextName := c.Get("X-Access-Context")
		if contextName == "" {
			contextName = ContextDefault
		}
		if !ac.HasPermissionScoped(c.UserContext(), userID, permission, requiredScope, contextName) {
			return fiber.NewError(fiber.StatusForbidden, "permission denied: "+permission)
		}
		return c.Next()
	}
}

func localUserID(c *fiber.Ctx) uint {
	switch v := c.Locals(UserIDLocal).(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case int64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
