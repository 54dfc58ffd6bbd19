package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voisss-backend/config"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
)

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestGatewayAuth(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("s3cret"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer s3cret", fiber.StatusOK},
		{"raw", "s3cret", fiber.StatusOK},
		{"prefix of token", "Bearer s3cre", fiber.StatusUnauthorized},
		{"token with suffix", "Bearer s3cret2", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := status(t, app, req); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGatewayAuthWithoutConfiguredToken(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware(""))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer ")
	if got := status(t, app, req); got != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", got)
	}
}

func TestUserContextAndAdmin(t *testing.T) {
	app := fiber.New()
	var seenRoles []string
	app.Get("/me", UserContextMiddleware(), func(c *fiber.Ctx) error {
		seenRoles, _ = c.Locals("user_roles").([]string)
		return c.SendString(c.Locals("user_id").(string))
	})
	app.Get("/admin", UserContextMiddleware(), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	if got := status(t, app, httptest.NewRequest(http.MethodGet, "/me", nil)); got != fiber.StatusUnauthorized {
		t.Errorf("no user = %d, want 401", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", " alice ")
	req.Header.Set("X-User-Roles", "user, , admin")
	if got := status(t, app, req); got != fiber.StatusOK {
		t.Fatalf("with user = %d", got)
	}
	if strings.Join(seenRoles, "|") != "user|admin" {
		t.Errorf("roles = %v", seenRoles)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-User-ID", "bob")
	req.Header.Set("X-User-Roles", "user")
	if got := status(t, app, req); got != fiber.StatusForbidden {
		t.Errorf("non-admin = %d, want 403", got)
	}

	req.Header.Set("X-User-Roles", "admin")
	if got := status(t, app, req); got != fiber.StatusNoContent {
		t.Errorf("admin = %d, want 204", got)
	}
}

func TestAgentSecurityRecordsOutcome(t *testing.T) {
	sec := services.NewSecurityService(config.SecurityConfig{
		MaxPayloadBytes:      1 << 20,
		MaxRequestsPerMinute: 100,
	})
	app := fiber.New(fiber.Config{Immutable: true})
	app.Use(AgentSecurityMiddleware(sec))
	app.Get("/ok", func(c *fiber.Ctx) error {
		if c.Locals("agent_id") != "bot-1" {
			t.Errorf("agent_id local = %v", c.Locals("agent_id"))
		}
		return c.SendString("ok")
	})
	app.Get("/missing", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	for _, path := range []string{"/ok", "/missing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Agent-ID", "bot-1")
		req.Header.Set("User-Agent", "voisss-agent/1.0")
		status(t, app, req)
	}

	p, ok := sec.GetProfile("bot-1")
	if !ok {
		t.Fatal("profile not created")
	}
	if p.TotalRequests != 2 || p.FailedRequests != 1 {
		t.Errorf("total=%d failed=%d, want 2/1", p.TotalRequests, p.FailedRequests)
	}
}

func TestAgentSecuritySkipsAudioBytes(t *testing.T) {
	sec := services.NewSecurityService(config.SecurityConfig{MaxPayloadBytes: 1 << 20, MaxRequestsPerMinute: 100})
	app := fiber.New(fiber.Config{Immutable: true})
	app.Use(AgentSecurityMiddleware(sec))
	app.Post("/upload", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	body := "--XX\r\n" +
		"Content-Disposition: form-data; name=\"audio\"; filename=\"a.webm\"\r\n" +
		"Content-Type: audio/webm\r\n\r\n" +
		"1' UNION SELECT password FROM users\r\n" +
		"--XX\r\n" +
		"Content-Disposition: form-data; name=\"title\"\r\n\r\n" +
		"birdsong\r\n" +
		"--XX--\r\n"
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=XX")
	req.Header.Set("X-Agent-ID", "bot-2")
	req.Header.Set("User-Agent", "voisss-agent/1.0")

	if got := status(t, app, req); got != fiber.StatusCreated {
		t.Errorf("status = %d, want 201", got)
	}
}

func TestSSEAuthFromQuery(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["access_token"] != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"alice","device_id":"phone"}`))
	}))
	defer auth.Close()

	app := fiber.New()
	app.Get("/stream", SSEAuthMiddleware(services.NewAuthClient(auth.URL, "svc")), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})

	tests := []struct {
		query string
		want  int
	}{
		{"", fiber.StatusBadRequest},
		{"?token=nope&device_id=phone", fiber.StatusUnauthorized},
		{"?token=tok&device_id=phone", fiber.StatusOK},
	}
	for _, tt := range tests {
		if got := status(t, app, httptest.NewRequest(http.MethodGet, "/stream"+tt.query, nil)); got != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.query, got, tt.want)
		}
	}
}
