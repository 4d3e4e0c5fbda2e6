package uploads

import (
	"errors"

	uploadsvc "wheelhub-backend/internal/application/uploads"
	"wheelhub-backend/internal/middleware"
	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// UploadListingImage POST /api/v1/uploads/listing-image: a signed URL for one image of the caller.
func (h *Handlers) UploadListingImage(c *fiber.Ctx) error {
	who := middleware.CurrentIdentity(c)
	if who == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, uploadsvc.ErrFileNameRequired.Error(), fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.GetSignedUploadURL(c.Context(), who.UserID, req.FileName)
	if err != nil {
		if errors.Is(err, uploadsvc.ErrFileNameRequired) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		log.Error().Err(err).Str("user_id", who.UserID).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
