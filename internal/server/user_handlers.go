package server

import (
	"io"
	"mime/multipart"
	"strings"

	"blogify/internal/models"
	"blogify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.Get(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /api/users/update. It takes multipart fields name, password
// and an optional avatar file; a JSON body with name and password is also accepted.
// @Summary Update profile
// @Tags users
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param name formData string false "Display name"
// @Param password formData string false "New password"
// @Param avatar formData file false "Avatar image"
// @Success 200 {object} object{user=models.User}
// @Router /users/update [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	in := service.UpdateProfileInput{UserID: currentUserID(c)}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid multipart form"))
		}
		in.Name = formValue(form, "name")
		in.Password = formValue(form, "password")
		if files := form.File["avatar"]; len(files) > 0 {
			avatar, err := readUpload(files[0])
			if err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Unable to read uploaded file"))
			}
			in.Avatar = avatar
		}
	} else {
		var req struct {
			Name     *string `json:"name"`
			Password *string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Name, in.Password = req.Name, req.Password
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// GetStats handles GET /api/users/stats
// @Summary Authored content counters
// @Tags users
// @Security BearerAuth
// @Success 200 {object} models.UserStats
// @Router /users/stats [get]
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.userService.Stats(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func readUpload(file *multipart.FileHeader) (*service.UploadImageInput, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}
