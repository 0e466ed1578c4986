package server

import (
	"blogify/internal/featureflags"
	"blogify/internal/models"
	"blogify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/comments/:postId
// @Summary List a post's comments, newest first
// @Tags comments
// @Param postId path string true "Post ID"
// @Success 200 {array} models.Comment
// @Router /comments/{postId} [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := pathID(c, "postId")
	if err != nil {
		return respondServiceError(c, err)
	}
	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/comments
// @Summary Comment on a post
// @Tags comments
// @Security BearerAuth
// @Param request body object{post_id=string,content=string,parent_id=string} true "Comment"
// @Success 201 {object} models.Comment
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		PostID   string  `json:"post_id"`
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil || req.PostID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ParentID != nil && !s.featureFlags.EnabledOr(featureflags.CommentReplies, currentUserID(c), true) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Replies are disabled"))
	}

	ctx := c.UserContext()
	created, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:   currentUserID(c),
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.userService.InvalidateStats(ctx, created.UserID)
	s.publishPostEvent(ctx, created.PostID, EventNewComment, newCommentPayload{
		PostID:  created.PostID,
		Comment: created,
	})

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Edit a comment
// @Tags comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Param request body object{content=string} true "New content"
// @Success 200 {object} models.Comment
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	updated, err := s.commentService.UpdateComment(ctx, service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(ctx, updated.PostID, EventUpdateComment, updateCommentPayload{
		PostID:    updated.PostID,
		CommentID: updated.ID,
		Content:   updated.Content,
	})

	return c.JSON(updated)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {object} object{message=string}
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	ctx := c.UserContext()
	deleted, err := s.commentService.DeleteComment(ctx, service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.userService.InvalidateStats(ctx, deleted.UserID)
	s.publishPostEvent(ctx, deleted.PostID, EventDeleteComment, deleteCommentPayload{
		PostID:    deleted.PostID,
		CommentID: deleted.ID,
	})

	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// ToggleCommentLike handles PUT /api/comments/:id/like
// @Summary Like or unlike a comment
// @Tags comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {object} object{likes=int}
// @Router /comments/{id}/like [put]
func (s *Server) ToggleCommentLike(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	ctx := c.UserContext()
	comment, count, err := s.commentService.ToggleLike(ctx, id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(ctx, comment.PostID, EventUpdateLikes, updateLikesPayload{
		PostID:     comment.PostID,
		CommentID:  comment.ID,
		LikesCount: count,
	})

	return c.JSON(fiber.Map{"likes": count})
}
