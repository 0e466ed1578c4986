package server

import (
	"blogify/internal/models"
	"blogify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the body of create and update.
type postRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Image    *models.PostImage `json:"image,omitempty"`
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		Image:    r.Image,
	}
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Tags posts
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param category query string false "Category filter"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	q, err := parsePostQuery(c, defaultPageSize)
	if err != nil {
		return respondServiceError(c, err)
	}
	posts, err := s.postService.List(c.UserContext(), q.Limit, q.Offset, q.Category)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetMyPosts handles GET /api/posts/mine
// @Summary List the caller's posts
// @Tags posts
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /posts/mine [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	q, err := parsePostQuery(c, maxPageSize)
	if err != nil {
		return respondServiceError(c, err)
	}
	posts, err := s.postService.ListByUser(c.UserContext(), currentUserID(c), q.Limit, q.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Param request body postRequest true "Post"
// @Success 201 {object} object{post=models.Post}
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		UserID:    userID,
		PostInput: req.input(),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	s.userService.InvalidateStats(c.UserContext(), userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body postRequest true "Post"
// @Success 200 {object} object{post=models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		UserID:    currentUserID(c),
		PostID:    id,
		PostInput: req.input(),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{message=string}
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	userID := currentUserID(c)
	if err := s.postService.Delete(c.UserContext(), id, userID); err != nil {
		return respondServiceError(c, err)
	}
	s.userService.InvalidateStats(c.UserContext(), userID)
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// LikePost handles PUT /api/posts/:id/like
// @Summary Like a post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{post=models.Post}
// @Router /posts/{id}/like [put]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	post, err := s.postService.Like(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	s.userService.InvalidateStats(c.UserContext(), post.UserID)
	return c.JSON(fiber.Map{"post": post})
}

// UnlikePost handles PUT /api/posts/:id/unlike
// @Summary Unlike a post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{post=models.Post}
// @Router /posts/{id}/unlike [put]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	post, err := s.postService.Unlike(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	s.userService.InvalidateStats(c.UserContext(), post.UserID)
	return c.JSON(fiber.Map{"post": post})
}
