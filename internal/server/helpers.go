package server

import (
	"strings"
	"unicode/utf8"

	"blogify/internal/models"
	"blogify/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// postQuery is the parsed query of a post listing.
type postQuery struct {
	Limit    int
	Offset   int
	Category string
}

// parsePostQuery reads limit, offset and category. Out-of-range paging is clamped.
func parsePostQuery(c *fiber.Ctx, defaultLimit int) (postQuery, error) {
	q := postQuery{
		Limit:    c.QueryInt("limit", defaultLimit),
		Offset:   max(c.QueryInt("offset", 0), 0),
		Category: strings.TrimSpace(c.Query("category")),
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxPageSize)

	if utf8.RuneCountInString(q.Category) > validation.MaxCategoryLen {
		return postQuery{}, models.NewValidationError("Invalid category")
	}
	return q, nil
}

// idLabels names route params in error messages.
var idLabels = map[string]string{
	"id":     "ID",
	"postId": "post ID",
}

// pathID returns the UUID in route param name.
func pathID(c *fiber.Ctx, name string) (string, error) {
	id := strings.TrimSpace(c.Params(name))
	if uuid.Validate(id) != nil {
		label, ok := idLabels[name]
		if !ok {
			label = name
		}
		return "", models.NewValidationError("Invalid " + label)
	}
	return id, nil
}

// currentUserID is the caller set by AuthRequired or IdentifyOptional, or "".
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// respondServiceError writes err with the status its AppError code maps to.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}
