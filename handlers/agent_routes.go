// handlers/agent_routes.go
package handlers

import (
	"voisss-backend/middleware"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAgentRoutes(app *fiber.App, sec *services.SecurityService, missions *services.MissionService, ipfsSvc *services.IPFSService) {
	agent := app.Group("/agent", middleware.AgentSecurityMiddleware(sec))

	agent.Get("/missions", func(c *fiber.Ctx) error {
		list, err := missions.GetActiveMissions(c.UserContext())
		if err != nil {
			return fail(c, "failed to fetch missions", err)
		}
		return c.JSON(list)
	})

	agentOwner := func(c *fiber.Ctx) string {
		id, _ := c.Locals("agent_id").(string)
		return id
	}
	agent.Post("/recordings/upload", uploadAudioHandler(ipfsSvc, agentOwner))
	agent.Get("/recordings/staged/:id", stagedStatusHandler(ipfsSvc.Staging, agentOwner))
}

// SetupHoneypots answers the bait paths with a plain 404 after they have been scored.
func SetupHoneypots(app *fiber.App, sec *services.SecurityService, paths []string) {
	guard := middleware.AgentSecurityMiddleware(sec)
	notFound := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	}
	for _, p := range paths {
		app.All(p, guard, notFound)
		app.All(p+"/*", guard, notFound)
	}
}
