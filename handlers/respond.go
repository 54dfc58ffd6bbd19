// handlers/respond.go
package handlers

import (
	"errors"
	"log"

	"voisss-backend/chains"
	"voisss-backend/database"
	"voisss-backend/services"
	"voisss-backend/utils"

	"github.com/gofiber/fiber/v2"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissionNotFound),
		errors.Is(err, services.ErrResponseNotFound),
		errors.Is(err, services.ErrClaimNotFound),
		errors.Is(err, services.ErrStagedNotFound),
		errors.Is(err, database.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidMission),
		errors.Is(err, services.ErrInvalidResponse),
		errors.Is(err, services.ErrInvalidRecording),
		errors.Is(err, services.ErrUnknownMilestone),
		errors.Is(err, services.ErrUnsupportedChain):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrMilestoneOutOfOrder),
		errors.Is(err, services.ErrClaimNotPending):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrNoPendingRewards):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, utils.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, chains.ErrNotImplemented):
		return fiber.StatusNotImplemented
	}
	return fiber.StatusInternalServerError
}

// fail writes err as {"error": ...}. Server errors are logged and get a generic message.
func fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
		return c.Status(status).JSON(fiber.Map{"error": msg, "cause": err.Error()})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
