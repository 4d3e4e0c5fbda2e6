package middleware

import (
	"strings"

	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	userLocal     = "user"
	identityLocal = "identity"
)

// TokenParser turns a bearer token into the caller identity.
type TokenParser interface {
	Parse(token string) (*domain.Identity, error)
}

// OptionalAuth resolves a valid bearer token into the caller identity when no session user is present.
// It never rejects; routes that need a caller add RequireAuth.
func OptionalAuth(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resolveBearer(c, tokens)
		return c.Next()
	}
}

// RequireAuth accepts a session user or a valid bearer token. Returns 401 with standard error format if neither.
func RequireAuth(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if resolveBearer(c, tokens) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// resolveBearer returns the session identity if there is one, else the identity in a valid bearer token.
func resolveBearer(c *fiber.Ctx, tokens TokenParser) *domain.Identity {
	if id := CurrentIdentity(c); id != nil {
		return id
	}
	raw := bearerToken(c)
	if raw == "" || tokens == nil {
		return nil
	}
	id, err := tokens.Parse(raw)
	if err != nil {
		return nil
	}
	c.Locals(identityLocal, id)
	return id
}

// CurrentIdentity returns the authenticated caller, or nil.
func CurrentIdentity(c *fiber.Ctx) *domain.Identity {
	if id, ok := c.Locals(identityLocal).(*domain.Identity); ok && id != nil {
		return id
	}
	m, ok := c.Locals(userLocal).(map[string]interface{})
	if !ok {
		return nil
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil
	}
	name, _ := m["name"].(string)
	email, _ := m["email"].(string)
	id := &domain.Identity{UserID: userID, Name: name, Email: email}
	c.Locals(identityLocal, id)
	return id
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
