// handlers/admin_routes.go
package handlers

import (
	"strings"

	"voisss-backend/middleware"
	"voisss-backend/models"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

// AdminDeps bundles what the admin surface operates on.
type AdminDeps struct {
	Missions *services.MissionService
	Rewards  *services.RewardService
	IPFS     *services.IPFSService
	Staging  *services.TempStorage
	Security *services.SecurityService
}

func SetupAdminRoutes(app *fiber.App, d AdminDeps) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.AdminOnly())

	// --- Missions ---

	admin.Post("/missions", func(c *fiber.Ctx) error {
		var in services.CreateMissionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if in.CreatedBy == "" {
			in.CreatedBy = userID(c)
		}
		m, err := d.Missions.CreateMission(c.UserContext(), in)
		if err != nil {
			return fail(c, "failed to create mission", err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	admin.Put("/missions/:id", func(c *fiber.Ctx) error {
		var patch services.MissionPatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "Invalid request body")
		}
		m, err := d.Missions.UpdateMission(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return fail(c, "failed to update mission", err)
		}
		return c.JSON(m)
	})

	admin.Delete("/missions", func(c *fiber.Ctx) error {
		if c.Query("confirm") != "true" {
			return badRequest(c, "add ?confirm=true to clear all mission data")
		}
		if err := d.Missions.ClearAll(c.UserContext()); err != nil {
			return fail(c, "failed to clear missions", err)
		}
		return c.JSON(fiber.Map{"message": "all mission data cleared"})
	})

	admin.Get("/missions/stats", func(c *fiber.Ctx) error {
		st, err := d.Missions.Stats(c.UserContext())
		if err != nil {
			return fail(c, "failed to read stats", err)
		}
		return c.JSON(st)
	})

	admin.Patch("/responses/:id/status", func(c *fiber.Ctx) error {
		var req struct {
			Status models.ResponseStatus `json:"status"`
			Note   string                `json:"note"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		r, err := d.Missions.ModerateResponse(c.UserContext(), c.Params("id"), req.Status, req.Note)
		if err != nil {
			return fail(c, "failed to moderate response", err)
		}
		return c.JSON(r)
	})

	// --- Milestones & claims ---

	admin.Post("/milestones/complete", func(c *fiber.Ctx) error {
		var req struct {
			UserID       string           `json:"user_id"`
			MissionID    string           `json:"mission_id"`
			ResponseID   string           `json:"response_id"`
			Milestone    models.Milestone `json:"milestone"`
			QualityScore *float64         `json:"quality_score"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if req.UserID == "" || req.MissionID == "" || req.ResponseID == "" {
			return badRequest(c, "user_id, mission_id and response_id are required")
		}
		p, err := d.Rewards.CompleteMilestone(c.UserContext(), req.UserID, req.MissionID, req.ResponseID, req.Milestone, req.QualityScore)
		if err != nil {
			return fail(c, "failed to complete milestone", err)
		}
		return c.JSON(p)
	})

	admin.Post("/claims/:id/complete", func(c *fiber.Ctx) error {
		var req struct {
			TxHash string `json:"tx_hash"`
		}
		if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.TxHash) == "" {
			return badRequest(c, "tx_hash is required")
		}
		claim, err := d.Rewards.CompleteClaim(c.UserContext(), c.Params("id"), req.TxHash)
		if err != nil {
			return fail(c, "failed to complete claim", err)
		}
		return c.JSON(claim)
	})

	admin.Post("/claims/:id/fail", func(c *fiber.Ctx) error {
		var req struct {
			Error string `json:"error"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		claim, err := d.Rewards.FailClaim(c.UserContext(), c.Params("id"), req.Error)
		if err != nil {
			return fail(c, "failed to record claim failure", err)
		}
		return c.JSON(claim)
	})

	// --- Staged uploads ---

	admin.Get("/staged", func(c *fiber.Ctx) error {
		recs, err := d.Staging.List()
		if err != nil {
			return fail(c, "failed to list staged uploads", err)
		}
		return c.JSON(recs)
	})

	admin.Post("/staged/sweep", func(c *fiber.Ctx) error {
		rep, err := d.Staging.Sweep(c.UserContext(), d.IPFS)
		if err != nil {
			return fail(c, "sweep failed", err)
		}
		return c.JSON(rep)
	})

	// --- Agent security ---

	admin.Post("/agents/:id/block", func(c *fiber.Ctx) error {
		var req struct {
			Reason string `json:"reason"`
		}
		_ = c.BodyParser(&req)
		if req.Reason == "" {
			req.Reason = "blocked by admin " + userID(c)
		}
		d.Security.BlockAgent(agentParam(c), req.Reason)
		return c.JSON(fiber.Map{"agent_id": agentParam(c), "blocked": true})
	})

	admin.Delete("/agents/:id/block", func(c *fiber.Ctx) error {
		if !d.Security.UnblockAgent(agentParam(c)) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "agent is not blocked"})
		}
		return c.JSON(fiber.Map{"agent_id": agentParam(c), "blocked": false})
	})

	admin.Post("/agents/:id/allow", func(c *fiber.Ctx) error {
		d.Security.AllowAgent(agentParam(c))
		return c.JSON(fiber.Map{"agent_id": agentParam(c), "allowlisted": true})
	})

	admin.Delete("/agents/:id/allow", func(c *fiber.Ctx) error {
		if !d.Security.RemoveAllow(agentParam(c)) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "agent is not allowlisted"})
		}
		return c.JSON(fiber.Map{"agent_id": agentParam(c), "allowlisted": false})
	})

	admin.Get("/agents/:id", func(c *fiber.Ctx) error {
		p, ok := d.Security.GetProfile(agentParam(c))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown agent"})
		}
		return c.JSON(p)
	})

	admin.Get("/security/stats", func(c *fiber.Ctx) error {
		return c.JSON(d.Security.Stats())
	})
}

// agentParam copies the :id param because the security service keeps it as a map key.
func agentParam(c *fiber.Ctx) string {
	return strings.Clone(c.Params("id"))
}
