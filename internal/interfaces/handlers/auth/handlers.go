package auth

import (
	"context"
	"errors"

	authsvc "wheelhub-backend/internal/application/auth"
	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/middleware"
	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	DB         *gorm.DB
	Tokens     *authsvc.TokenIssuer
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Login POST /api/v1/auth/login: authenticate, rotate the session, track it per user, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Internal(c)
	}
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			log.Error().Err(err).Msg("auth/login: lookup failed")
			return response.Internal(c)
		}
	}

	data, err := h.startSession(c, user)
	if err != nil {
		return response.Internal(c)
	}
	return response.Success(c, "Login successful", data, nil)
}

// Register POST /api/v1/auth/register: create the account and sign it in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	if h.DB == nil {
		return response.Internal(c)
	}
	var req authsvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}

	user, err := authsvc.Register(c.Context(), h.DB, req)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailTaken), errors.Is(err, authsvc.ErrNameTaken):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		case errors.Is(err, authsvc.ErrNameRequired), errors.Is(err, authsvc.ErrInvalidEmailFormat), errors.Is(err, authsvc.ErrInvalidPassword):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			log.Error().Err(err).Msg("auth/register: create failed")
			return response.Internal(c)
		}
	}

	data, err := h.startSession(c, user)
	if err != nil {
		return response.Internal(c)
	}
	return response.SuccessCreated(c, "User created successfully", data, nil)
}

// Me GET /api/v1/auth/me: return the current caller.
func (h *Handlers) Me(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		var err error
		id, err = authsvc.VerifyUser(middleware.GetUser(c))
		if err != nil {
			log.Info().Str("path", "/auth/me").Bool("session_id_present", middleware.GetSessionID(c) != "").
				Msg("auth/me: returning 401 Not authenticated")
			return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
		}
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": id}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop the session from Redis and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if id := middleware.CurrentIdentity(c); id != nil && sessionID != "" {
		_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+id.UserID, sessionID).Err()
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}

	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

// LogoutAll DELETE /api/v1/auth/sessions: sign the caller out on every device.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	n, err := authsvc.DestroyUserSessions(c.Context(), h.Rdb, id.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", id.UserID).Msg("auth/sessions: could not destroy sessions")
		return response.Internal(c)
	}
	middleware.DestroySession(c)
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Signed out everywhere", fiber.Map{"sessions": n}, nil)
}

func (h *Handlers) startSession(c *fiber.Ctx, user *domain.User) (fiber.Map, error) {
	id := domain.IdentityOf(user)
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{UserID: id.UserID, Name: id.Name, Email: id.Email})

	if err := h.Rdb.SAdd(context.Background(), middleware.UserSessionsPrefix+id.UserID, sessionID).Err(); err != nil {
		log.Error().Err(err).Str("user_id", id.UserID).Msg("auth: could not track session")
		return nil, err
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	data := fiber.Map{"user": id}
	if h.Tokens != nil && len(h.Tokens.Secret) > 0 {
		token, err := h.Tokens.Issue(id)
		if err != nil {
			return nil, err
		}
		data["token"] = token
	}
	return data, nil
}
