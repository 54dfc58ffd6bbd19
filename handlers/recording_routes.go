// handlers/recording_routes.go
package handlers

import (
	"strconv"
	"strings"

	"voisss-backend/middleware"
	"voisss-backend/models"
	"voisss-backend/services"
	"voisss-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// MaxAudioBytes caps a single recording upload.
var MaxAudioBytes int64 = 50 << 20

func SetupRecordingRoutes(app *fiber.App, ipfsSvc *services.IPFSService, recordings *services.RecordingService) {
	rec := app.Group("/recordings", middleware.UserContextMiddleware())

	rec.Post("/upload", uploadAudioHandler(ipfsSvc, userID))
	rec.Get("/staged/:id", stagedStatusHandler(ipfsSvc.Staging, userID))

	// POST /recordings/:chain/save  {ipfs_hash, owner, metadata}
	rec.Post("/:chain/save", func(c *fiber.Ctx) error {
		var req models.SaveRecordingRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		req.Chain = models.Chain(strings.ToLower(c.Params("chain")))

		receipt, err := recordings.SaveRecording(c.UserContext(), req)
		if err != nil {
			return fail(c, "failed to save recording on chain", err)
		}
		return c.Status(fiber.StatusCreated).JSON(receipt)
	})
}

// stagedStatusHandler reports a staged upload to its owner. Once a sweep has
// pinned it the record carries the result with the CID.
func stagedStatusHandler(staging *services.TempStorage, owner func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if staging == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": services.ErrStagedNotFound.Error()})
		}
		rec, err := staging.Get(c.Params("id"))
		if err != nil {
			return fail(c, "failed to load staged upload", err)
		}
		if rec.Metadata.UserID != owner(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": services.ErrStagedNotFound.Error()})
		}
		return c.JSON(fiber.Map{
			"staged":   rec,
			"uploaded": rec.Uploaded(),
		})
	}
}

// uploadAudioHandler takes multipart field "audio" plus optional "title" and
// "duration". 201 means pinned, 202 means staged for a later retry.
func uploadAudioHandler(ipfsSvc *services.IPFSService, owner func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("audio")
		if err != nil {
			return badRequest(c, "audio file is required")
		}
		data, err := utils.ReadUpload(fh, MaxAudioBytes)
		if err != nil {
			return fail(c, "failed to read audio", err)
		}
		if len(data) == 0 {
			return badRequest(c, "audio file is empty")
		}
		contentType, ok := utils.AudioContentType(fh.Header.Get(fiber.HeaderContentType), data)
		if !ok {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "unsupported content type " + contentType})
		}

		meta := models.AudioMetadata{
			Filename:    fh.Filename,
			ContentType: contentType,
			Title:       c.FormValue("title"),
			UserID:      owner(c),
		}
		if d, err := strconv.ParseFloat(c.FormValue("duration"), 64); err == nil && d > 0 {
			meta.Duration = d
		}

		out, err := ipfsSvc.UploadOrStage(c.UserContext(), data, meta, models.UploadOptions{})
		if err != nil {
			return fail(c, "upload failed", err)
		}
		if out.Staged != nil {
			return c.Status(fiber.StatusAccepted).JSON(out)
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	}
}
