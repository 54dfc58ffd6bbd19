// handlers/reward_routes.go
package handlers

import (
	"strings"

	"voisss-backend/middleware"
	"voisss-backend/models"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRewardRoutes registers the reward routes. With a non-nil authClient the
// stream is also served at /rewards/stream?token=... for EventSource clients.
func SetupRewardRoutes(app *fiber.App, rewards *services.RewardService, authClient *services.AuthClient) {
	if authClient != nil {
		app.Get("/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewards.StreamUserRewardsSSE)
	}

	user := app.Group("/user", middleware.UserContextMiddleware())

	// GET /user/rewards?status=pending|claimed
	user.Get("/rewards", func(c *fiber.Ctx) error {
		status := models.RewardStatus(strings.ToLower(c.Query("status")))
		switch status {
		case "", models.RewardStatusPending, models.RewardStatusClaimed:
		default:
			return badRequest(c, "Invalid status parameter")
		}

		list, err := rewards.GetUserRewards(c.UserContext(), userID(c), status)
		if err != nil {
			return fail(c, "failed to fetch rewards", err)
		}
		pending, err := rewards.GetPendingTotal(c.UserContext(), userID(c))
		if err != nil {
			return fail(c, "failed to total pending rewards", err)
		}
		return c.JSON(fiber.Map{"rewards": list, "pending_total": pending})
	})

	user.Get("/rewards/stream", rewards.StreamUserRewardsSSE)

	user.Post("/rewards/claim", func(c *fiber.Ctx) error {
		var req struct {
			RewardIDs []string `json:"reward_ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		claim, err := rewards.ClaimRewards(c.UserContext(), userID(c), req.RewardIDs)
		if err != nil {
			return fail(c, "failed to claim rewards", err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	})

	user.Get("/claims", func(c *fiber.Ctx) error {
		list, err := rewards.GetUserClaims(c.UserContext(), userID(c))
		if err != nil {
			return fail(c, "failed to fetch claims", err)
		}
		return c.JSON(list)
	})
}
