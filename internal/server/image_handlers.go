package server

import (
	"blogify/internal/models"
	"blogify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/upload with a multipart "image" field.
// @Summary Upload a cover image
// @Tags images
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param image formData file true "Image"
// @Success 200 {object} models.PostImage
// @Router /upload [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	in, err := readUpload(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	in.UserID = currentUserID(c)
	in.Kind = service.ImageKindCover

	img, err := s.imageService.Upload(c.UserContext(), *in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(img)
}
