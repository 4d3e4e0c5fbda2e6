package user

import (
	"errors"

	usersvc "wheelhub-backend/internal/application/user"
	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/middleware"
	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds the profile service.
type Handlers struct {
	Service *usersvc.Service
}

// GetProfile GET /api/v1/users/profile
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	who := middleware.CurrentIdentity(c)
	if who == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	u, err := h.Service.GetProfile(c.Context(), who)
	if err != nil {
		return mapProfileError(c, err)
	}
	return response.Success(c, "User found", fiber.Map{"user": safeUser(u)}, nil)
}

// UpdateProfile PUT /api/v1/users/profile: change name and email, then refresh the session copy.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	who := middleware.CurrentIdentity(c)
	if who == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req usersvc.ProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing update fields", fiber.StatusBadRequest, nil)
	}

	u, err := h.Service.UpdateProfile(c.Context(), who, req)
	if err != nil {
		return mapProfileError(c, err)
	}

	id := domain.IdentityOf(u)
	if middleware.GetUser(c) != nil {
		middleware.SetSessionUser(c, middleware.SessionUser{UserID: id.UserID, Name: id.Name, Email: id.Email})
	}
	return response.Success(c, "Profile updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

func safeUser(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":   u.UserID.String(),
		"name":      u.Name,
		"email":     u.Email,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

func mapProfileError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, usersvc.ErrMissingUserID), errors.Is(err, usersvc.ErrInvalidUserID),
		errors.Is(err, usersvc.ErrNameRequired), errors.Is(err, usersvc.ErrEmailRequired),
		errors.Is(err, usersvc.ErrInvalidEmailFormat):
		status = fiber.StatusBadRequest
	case errors.Is(err, usersvc.ErrNameTaken), errors.Is(err, usersvc.ErrEmailTaken):
		status = fiber.StatusConflict
	case errors.Is(err, usersvc.ErrUserNotFound):
		status = fiber.StatusNotFound
	default:
		log.Error().Err(err).Msg("users/profile: unexpected error")
		return response.Error(c, "Internal Server Error", status, nil)
	}
	return response.Error(c, err.Error(), status, nil)
}
