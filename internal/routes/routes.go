package routes

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bohemiyan/accesscontrol"
)

// Setup registers the HTTP surface. The identity middleware here trusts
// the X-User-ID header; a real deployment replaces it with the SSO layer
// that populates the same local.
func Setup(app *fiber.App, ac *accesscontrol.AccessControl) {
	app.Use(func(c *fiber.Ctx) error {
		if raw := c.Get("X-User-ID"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
				c.Locals(accesscontrol.UserIDLocal, uint(id))
			}
		}
		return c.Next()
	})

	api := app.Group("/api/v1")

	api.Get("/permissions/effective", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(accesscontrol.UserIDLocal).(uint)
		if userID == 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		contextName := c.Query("context", accesscontrol.ContextDefault)
		return c.JSON(fiber.Map{
			"user_id":     userID,
			"context":     contextName,
			"permissions": ac.EffectivePermissions(c.UserContext(), userID, contextName),
		})
	})

	api.Get("/permissions/check", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(accesscontrol.UserIDLocal).(uint)
		if userID == 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		name := c.Query("name")
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		scope := accesscontrol.ScopeNone
		if raw := c.Query("scope"); raw != "" {
			parsed, err := accesscontrol.ParseScope(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "unknown scope")
			}
			scope = parsed
		}
		contextName := c.Query("context", accesscontrol.ContextDefault)
		return c.JSON(fiber.Map{
			"allowed": ac.HasPermissionScoped(c.UserContext(), userID, name, scope, contextName),
		})
	})

	api.Get("/cache/stats", ac.RequireAccess("admin"), func(c *fiber.Ctx) error {
		return c.JSON(ac.Cache().Stats(c.UserContext()))
	})

	docs := api.Group("/documents", ac.RequireAccess(""))
	docs.Get("/", ac.RequirePermission("doc.read", accesscontrol.ScopeNone), func(c *fiber.Ctx) error {
		return c.SendString("document list")
	})
	docs.Post("/", ac.RequirePermission("doc.write", accesscontrol.ScopeDepartment), func(c *fiber.Ctx) error {
		return c.SendString("document created")
	})
	docs.Get("/export", ac.RequirePermission("doc.export", accesscontrol.ScopeNone), func(c *fiber.Ctx) error {
		return c.SendString("document export")
	})
}
