package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireRole restricts a route to the given roles. The denial message does
// not reveal which roles would have been accepted.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok {
			return JsonResponse(c, fiber.StatusForbidden, false, "Access denied", nil)
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return JsonResponse(c, fiber.StatusForbidden, false, "Access denied", nil)
	}
}
