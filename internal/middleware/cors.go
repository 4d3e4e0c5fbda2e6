package middleware

import (
	"strings"

	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, dev-password, " + traceIDHeader
	corsExposeHeaders = traceIDHeader
)

// CORSConfig decides which browser origins may call the API with cookies.
type CORSConfig struct {
	// AllowedSuffix matches the web client's host, e.g. ".wheelhub.app".
	AllowedSuffix string
	// DevPassword lets a preview deployment on another host through.
	DevPassword string
	// AllowLocalhost admits http://localhost and http://127.0.0.1 on any port.
	AllowLocalhost bool
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	lower := strings.ToLower(origin)
	if cfg.AllowLocalhost && (strings.HasPrefix(lower, "http://localhost:") || strings.HasPrefix(lower, "http://127.0.0.1:")) {
		return true
	}
	if cfg.AllowedSuffix != "" && strings.HasSuffix(lower, strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}

// CORS answers preflights for allowed origins and rejects other cross-origin calls with 403.
// Requests without an Origin header (curl, same-origin, server-to-server) pass through.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderAccessControlExposeHeaders, corsExposeHeaders)
		c.Vary(fiber.HeaderOrigin)
		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
