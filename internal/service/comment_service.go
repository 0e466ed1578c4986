package service

import (
	"context"
	"strings"

	"blogify/internal/models"
	"blogify/internal/observability"
	"blogify/internal/repository"
	"blogify/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	UserID   string
	PostID   string
	ParentID *string
	Content  string
}

type UpdateCommentInput struct {
	UserID    string
	CommentID string
	Content   string
}

type DeleteCommentInput struct {
	UserID    string
	CommentID string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// ListComments returns the post's comments newest first.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, mapRepoError(err, "Post", postID)
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, end := observability.StartServiceSpan(ctx, "CommentService", "CreateComment")
	defer func() { end(err) }()

	if err := validation.ValidateComment(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, mapRepoError(err, "Post", in.PostID)
	}

	var parentID *string
	if in.ParentID != nil && *in.ParentID != "" {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, mapRepoError(err, "Comment", *in.ParentID)
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		parentID = in.ParentID
	}

	created := &models.Comment{
		Content:  strings.TrimSpace(in.Content),
		UserID:   in.UserID,
		PostID:   in.PostID,
		ParentID: parentID,
	}
	if err := s.commentRepo.Create(ctx, created); err != nil {
		return nil, models.NewInternalError(err)
	}

	// Reload so the author reference is populated.
	return s.get(ctx, created.ID)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := validation.ValidateComment(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	comment, err := s.owned(ctx, in.CommentID, in.UserID, "edit")
	if err != nil {
		return nil, err
	}

	comment.Content = strings.TrimSpace(in.Content)
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// DeleteComment removes the comment and returns it so callers can address the post's room.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.owned(ctx, in.CommentID, in.UserID, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// ToggleLike flips userID's like on the comment and returns the comment with its new count.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID string) (*models.Comment, int64, error) {
	comment, err := s.get(ctx, commentID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.commentRepo.ToggleLike(ctx, userID, commentID)
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comment, count, nil
}

func (s *CommentService) get(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "Comment", id)
	}
	return comment, nil
}

func (s *CommentService) owned(ctx context.Context, commentID, userID, action string) (*models.Comment, error) {
	comment, err := s.get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, models.NewForbiddenError("Only the author can " + action + " this comment")
	}
	return comment, nil
}
