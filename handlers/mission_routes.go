// handlers/mission_routes.go
package handlers

import (
	"voisss-backend/middleware"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(app *fiber.App, missions *services.MissionService) {
	// 🔓 Public mission catalogue
	app.Get("/missions", func(c *fiber.Ctx) error {
		list, err := missions.GetActiveMissions(c.UserContext())
		if err != nil {
			return fail(c, "failed to fetch missions", err)
		}
		return c.JSON(list)
	})

	app.Get("/missions/:id", func(c *fiber.Ctx) error {
		m, err := missions.GetMission(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, "failed to fetch mission", err)
		}
		return c.JSON(m)
	})

	app.Get("/missions/:id/responses", func(c *fiber.Ctx) error {
		list, err := missions.GetMissionResponses(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, "failed to fetch responses", err)
		}
		return c.JSON(list)
	})

	// 🔐 User actions
	withUser := middleware.UserContextMiddleware()

	app.Post("/missions/:id/accept", withUser, func(c *fiber.Ctx) error {
		ok, err := missions.AcceptMission(c.UserContext(), c.Params("id"), userID(c))
		if err != nil {
			return fail(c, "failed to accept mission", err)
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"accepted": false,
				"error":    "mission is unavailable, full, expired or already accepted",
			})
		}
		return c.JSON(fiber.Map{"accepted": true})
	})

	app.Post("/missions/:id/responses", withUser, func(c *fiber.Ctx) error {
		var in services.SubmitResponseInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Invalid request body")
		}
		in.MissionID = c.Params("id")
		in.UserID = userID(c)

		resp, err := missions.SubmitMissionResponse(c.UserContext(), in)
		if err != nil {
			return fail(c, "failed to submit response", err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	user := app.Group("/user", withUser)

	user.Get("/missions", func(c *fiber.Ctx) error {
		list, err := missions.GetUserMissions(c.UserContext(), userID(c))
		if err != nil {
			return fail(c, "failed to fetch user missions", err)
		}
		return c.JSON(list)
	})

	user.Get("/responses", func(c *fiber.Ctx) error {
		list, err := missions.GetUserResponses(c.UserContext(), userID(c))
		if err != nil {
			return fail(c, "failed to fetch user responses", err)
		}
		return c.JSON(list)
	})
}
