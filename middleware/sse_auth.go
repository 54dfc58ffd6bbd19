// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource clients, which cannot send
// headers, from the `token` and `device_id` query params. It sets the same
// locals as UserContextMiddleware.
func SSEAuthMiddleware(authClient *services.AuthClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ missing token on %s from %s", c.Path(), c.IP())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ validation failed (prefix: %.10s...), device %q: %v", accessToken, deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", resp.Roles)
		c.Locals("device_id", resp.DeviceID)

		log.Printf("[SSEAuth] ✅ authenticated user %s (device %s)", resp.UserID, resp.DeviceID)
		return c.Next()
	}
}
