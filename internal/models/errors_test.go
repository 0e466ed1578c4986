package models

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("Post", "p1"), fiber.StatusNotFound},
		{"validation", NewValidationError("bad"), fiber.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{"forbidden", NewForbiddenError("no"), fiber.StatusForbidden},
		{"conflict", NewConflictError("dup"), fiber.StatusConflict},
		{"wrapped", fmt.Errorf("svc: %w", NewNotFoundError("Comment", "c1")), fiber.StatusNotFound},
		{"plain", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestRespondWithError_HidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("pq: secret")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	assert.Contains(t, body, "INTERNAL_ERROR")
	assert.NotContains(t, body, "secret")
}

func TestComment_Derive(t *testing.T) {
	c := Comment{
		User:  User{Base: Base{ID: "u1"}, Name: "Ada"},
		Likes: []CommentLike{{UserID: "u2"}, {UserID: "u3"}},
	}
	c.Derive()

	assert.Equal(t, "Ada", c.Author.Name)
	assert.Equal(t, []string{"u2", "u3"}, c.LikerIDs)
	assert.Equal(t, 2, c.LikesCount)
}

func TestPost_DeriveWithoutLikes(t *testing.T) {
	p := Post{}
	p.Derive()
	assert.NotNil(t, p.LikerIDs)
	assert.Empty(t, p.LikerIDs)
}
