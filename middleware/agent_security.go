// middleware/agent_security.go
package middleware

import (
	"log"
	"strings"
	"time"

	"voisss-backend/models"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

// AgentSecurityMiddleware scores every request with sec and rejects denied callers
// with 403. The response status is fed back as the request outcome.
func AgentSecurityMiddleware(sec *services.SecurityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentID := strings.Clone(strings.TrimSpace(c.Get("X-Agent-ID")))
		if strings.HasPrefix(agentID, "ip:") {
			agentID = ""
		}
		req := models.SecurityRequest{
			AgentID:   agentID,
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Method:    c.Method(),
			Path:      c.Path(),
			Payload:   inspectablePayload(c),
			Headers:   flatHeaders(c),
			Timestamp: time.Now(),
		}
		key := services.AgentKey(req)

		res := sec.SecurityCheck(c.UserContext(), req)
		if !res.Allowed {
			log.Printf("⛔ [AGENT_SEC] denied %s on %s: %s", key, c.Path(), res.Reason)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":        "request blocked",
				"reason":       res.Reason,
				"threat_level": res.ThreatLevel,
				"actions":      res.Actions,
			})
		}

		c.Locals("agent_id", key)
		c.Locals("security", res)

		err := c.Next()
		sec.RecordOutcome(key, err == nil && c.Response().StatusCode() < fiber.StatusBadRequest)
		return err
	}
}

// inspectablePayload is the query string plus the text body. Multipart bodies
// contribute only their text fields so audio bytes are never scanned.
func inspectablePayload(c *fiber.Ctx) string {
	var b strings.Builder
	b.Write(c.Request().URI().QueryString())

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if form, err := c.MultipartForm(); err == nil {
			for k, vs := range form.Value {
				for _, v := range vs {
					b.WriteString("\n" + k + "=" + v)
				}
			}
		}
		return b.String()
	}

	if body := c.Body(); len(body) > 0 {
		b.WriteString("\n")
		b.Write(body)
	}
	return b.String()
}

func flatHeaders(c *fiber.Ctx) map[string]string {
	out := make(map[string]string)
	for k, vs := range c.GetReqHeaders() {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}
