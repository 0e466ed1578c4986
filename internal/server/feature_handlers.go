package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags handles GET /api/features
// @Summary Feature flags evaluated for the caller
// @Tags features
// @Success 200 {object} map[string]bool
// @Router /features [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(currentUserID(c)))
}
